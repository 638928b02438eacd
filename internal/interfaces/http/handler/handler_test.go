package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invoicingapp "github.com/invoicing/backend/internal/application/invoicing"
	"github.com/invoicing/backend/internal/clock"
	"github.com/invoicing/backend/internal/domain/invoicing"
	"github.com/invoicing/backend/internal/domain/shared"
	"github.com/invoicing/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// In-memory repository stubs backing the handler tests. Lookup misses
// map to shared.ErrNotFound like the gorm implementations.

type stubPaymentRepo struct {
	payments map[uuid.UUID]invoicing.Payment
}

func (r *stubPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (r *stubPaymentRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	var result []invoicing.Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *stubPaymentRepo) Save(ctx context.Context, payment *invoicing.Payment) error {
	r.payments[payment.ID] = *payment
	return nil
}

func (r *stubPaymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.payments[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

type stubLateFeeRepo struct {
	fees map[uuid.UUID]invoicing.LateFee
}

func (r *stubLateFeeRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.LateFee, error) {
	f, ok := r.fees[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := f
	return &copied, nil
}

func (r *stubLateFeeRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.LateFee, error) {
	var result []invoicing.LateFee
	for _, f := range r.fees {
		if f.InvoiceID == invoiceID {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *stubLateFeeRepo) Save(ctx context.Context, fee *invoicing.LateFee) error {
	r.fees[fee.ID] = *fee
	return nil
}

func (r *stubLateFeeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.fees[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.fees, id)
	return nil
}

type stubReminderRepo struct {
	reminders map[uuid.UUID]invoicing.Reminder
}

func (r *stubReminderRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Reminder, error) {
	rem, ok := r.reminders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := rem
	return &copied, nil
}

func (r *stubReminderRepo) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Reminder, error) {
	var result []invoicing.Reminder
	for _, rem := range r.reminders {
		if rem.InvoiceID == invoiceID {
			result = append(result, rem)
		}
	}
	sort.Slice(result, func(a, b int) bool {
		return result[a].ID.String() < result[b].ID.String()
	})
	return result, nil
}

func (r *stubReminderRepo) Save(ctx context.Context, reminder *invoicing.Reminder) error {
	r.reminders[reminder.ID] = *reminder
	return nil
}

func (r *stubReminderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.reminders[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.reminders, id)
	return nil
}

type stubInvoiceRepo struct {
	invoices map[uuid.UUID]invoicing.Invoice
	payments *stubPaymentRepo
	fees     *stubLateFeeRepo
	rems     *stubReminderRepo
}

func (r *stubInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := inv
	return &copied, nil
}

func (r *stubInvoiceRepo) FindByIDWithDetails(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.Payments, _ = r.payments.FindByInvoiceID(ctx, id)
	inv.LateFees, _ = r.fees.FindByInvoiceID(ctx, id)
	inv.Reminders, _ = r.rems.FindByInvoiceID(ctx, id)
	return inv, nil
}

func (r *stubInvoiceRepo) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			copied := inv
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubInvoiceRepo) FindAll(ctx context.Context, filter shared.Filter) ([]invoicing.Invoice, int64, error) {
	all := r.sorted()
	return all, int64(len(all)), nil
}

func (r *stubInvoiceRepo) FindOverdue(ctx context.Context, now time.Time) ([]invoicing.Invoice, error) {
	var result []invoicing.Invoice
	for _, inv := range r.sorted() {
		if inv.DueDate.Before(startOfDay(now)) && inv.Status != invoicing.InvoiceStatusPaid {
			inv.Payments, _ = r.payments.FindByInvoiceID(ctx, inv.ID)
			result = append(result, inv)
		}
	}
	return result, nil
}

func (r *stubInvoiceRepo) FindDueWithin(ctx context.Context, now time.Time, days int) ([]invoicing.Invoice, error) {
	from := startOfDay(now)
	to := from.AddDate(0, 0, days+1)
	var result []invoicing.Invoice
	for _, inv := range r.sorted() {
		if !inv.DueDate.Before(from) && inv.DueDate.Before(to) && inv.Status != invoicing.InvoiceStatusPaid {
			inv.Payments, _ = r.payments.FindByInvoiceID(ctx, inv.ID)
			result = append(result, inv)
		}
	}
	return result, nil
}

func (r *stubInvoiceRepo) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *stubInvoiceRepo) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	r.invoices[invoice.ID] = *invoice
	return nil
}

func (r *stubInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *stubInvoiceRepo) sorted() []invoicing.Invoice {
	all := make([]invoicing.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		all = append(all, inv)
	}
	sort.Slice(all, func(a, b int) bool {
		return all[a].ID.String() < all[b].ID.String()
	})
	return all
}

// handlerEnv wires real application services over the stub repos and
// mounts every handler on a test router under /api/v1.
type handlerEnv struct {
	router *gin.Engine
	clock  *clock.FakeClock

	invoiceRepo  *stubInvoiceRepo
	paymentRepo  *stubPaymentRepo
	feeRepo      *stubLateFeeRepo
	reminderRepo *stubReminderRepo

	invoiceSvc *invoicingapp.InvoiceService
	paymentSvc *invoicingapp.PaymentService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	clk := clock.NewFakeClock(testNow)
	paymentRepo := &stubPaymentRepo{payments: make(map[uuid.UUID]invoicing.Payment)}
	feeRepo := &stubLateFeeRepo{fees: make(map[uuid.UUID]invoicing.LateFee)}
	reminderRepo := &stubReminderRepo{reminders: make(map[uuid.UUID]invoicing.Reminder)}
	invoiceRepo := &stubInvoiceRepo{
		invoices: make(map[uuid.UUID]invoicing.Invoice),
		payments: paymentRepo,
		fees:     feeRepo,
		rems:     reminderRepo,
	}

	locker := invoicingapp.NewInvoiceLocker()
	invoiceSvc := invoicingapp.NewInvoiceService(invoiceRepo, paymentRepo, locker, clk)
	paymentSvc := invoicingapp.NewPaymentService(paymentRepo, invoiceRepo, locker, clk, zap.NewNop())
	lateFeeSvc := invoicingapp.NewLateFeeService(feeRepo, invoiceRepo, paymentRepo, locker, clk)
	reminderSvc := invoicingapp.NewReminderService(reminderRepo, invoiceRepo, clk)

	runConfig := invoicingapp.BillingRunConfig{
		FeePercentage: decimal.NewFromInt(5),
		DaysBefore:    3,
		DaysAfter:     3,
	}
	billingRun := invoicingapp.NewBillingRunService(lateFeeSvc, reminderSvc, runConfig, zap.NewNop())

	router := gin.New()
	api := router.Group("/api/v1")
	NewInvoiceHandler(invoiceSvc).RegisterRoutes(api)
	NewPaymentHandler(paymentSvc, nil).RegisterRoutes(api)
	NewLateFeeHandler(lateFeeSvc, clk).RegisterRoutes(api)
	NewReminderHandler(reminderSvc).RegisterRoutes(api)
	NewBillingHandler(lateFeeSvc, reminderSvc, billingRun, runConfig).RegisterRoutes(api)
	NewSystemHandler().RegisterRoutes(api)

	return &handlerEnv{
		router:       router,
		clock:        clk,
		invoiceRepo:  invoiceRepo,
		paymentRepo:  paymentRepo,
		feeRepo:      feeRepo,
		reminderRepo: reminderRepo,
		invoiceSvc:   invoiceSvc,
		paymentSvc:   paymentSvc,
	}
}

func (e *handlerEnv) request(t *testing.T, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *handlerEnv) seedInvoice(t *testing.T, number string, amount float64, dueDate time.Time) *invoicing.Invoice {
	t.Helper()

	inv, err := e.invoiceSvc.Create(context.Background(), invoicingapp.CreateInvoiceRequest{
		InvoiceNumber: number,
		CustomerName:  "Acme Corp",
		Description:   "Consulting services",
		Amount:        decimal.NewFromFloat(amount),
		DueDate:       dueDate,
	})
	require.NoError(t, err)
	return inv
}

func (e *handlerEnv) seedPayment(t *testing.T, invoiceID uuid.UUID, amount float64) *invoicing.Payment {
	t.Helper()

	p, err := e.paymentSvc.RecordPayment(context.Background(), invoicingapp.RecordPaymentRequest{
		InvoiceID: invoiceID,
		Amount:    decimal.NewFromFloat(amount),
		Method:    "BANK_TRANSFER",
		Reference: "TXN-1",
	})
	require.NoError(t, err)
	return p
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData unmarshals the data field of a successful envelope into out.
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
