// Package api is a minimal HTTP client for the invoicing backend, covering
// the endpoints the load generator exercises.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to one invoicing backend instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL (e.g. "http://localhost:8080").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoice mirrors the backend's invoice response.
type Invoice struct {
	ID            string    `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	CustomerName  string    `json:"customer_name"`
	Amount        string    `json:"amount"`
	DueDate       time.Time `json:"due_date"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
}

// Payment mirrors the backend's payment response.
type Payment struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`
	Amount    string `json:"amount"`
}

// CreateInvoiceRequest is the body for POST /invoices.
type CreateInvoiceRequest struct {
	InvoiceNumber string  `json:"invoice_number"`
	CustomerName  string  `json:"customer_name"`
	Description   string  `json:"description,omitempty"`
	Amount        float64 `json:"amount"`
	DueDate       string  `json:"due_date"`
}

// RecordPaymentRequest is the body for POST /invoices/:id/payments.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method,omitempty"`
	Reference string  `json:"reference,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// CreateInvoice creates an invoice and returns it.
func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", req, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoice fetches a single invoice by ID.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id, nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CancelInvoice cancels an invoice and returns its updated state.
func (c *Client) CancelInvoice(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/"+id+"/cancel", nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// RecordPayment records a payment against an invoice.
func (c *Client) RecordPayment(ctx context.Context, invoiceID string, req RecordPaymentRequest) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/invoices/"+invoiceID+"/payments", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RemainingAmount fetches the open balance of an invoice.
func (c *Client) RemainingAmount(ctx context.Context, invoiceID string) (string, error) {
	var out struct {
		InvoiceID       string `json:"invoice_id"`
		RemainingAmount string `json:"remaining_amount"`
	}
	if err := c.do(ctx, http.MethodGet, "/invoices/"+invoiceID+"/remaining-amount", nil, &out); err != nil {
		return "", err
	}
	return out.RemainingAmount, nil
}

// IsPaid reports whether an invoice is fully paid.
func (c *Client) IsPaid(ctx context.Context, invoiceID string) (bool, error) {
	var out struct {
		InvoiceID string `json:"invoice_id"`
		IsPaid    bool   `json:"is_paid"`
	}
	if err := c.do(ctx, http.MethodGet, "/invoices/"+invoiceID+"/is-paid", nil, &out); err != nil {
		return false, err
	}
	return out.IsPaid, nil
}

// RunBilling triggers a billing run (late fees and reminders).
func (c *Client) RunBilling(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/billing/run", nil, nil)
}
