package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeNotEligible, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"ALREADY_EXISTS", ErrCodeAlreadyExists},
		{"INVALID_STATE", ErrCodeInvalidState},
		{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
		{"INVALID_AMOUNT", ErrCodeValidation},
		{"INVALID_CUSTOMER_NAME", ErrCodeValidation},
		{"INVALID_DUE_DATE", ErrCodeValidation},
		{"NOT_ELIGIBLE", ErrCodeNotEligible},
		// Already normalized and unknown codes pass through.
		{ErrCodeNotFound, ErrCodeNotFound},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.in))
		})
	}
}

func TestNewErrorResponse_NormalizesDomainCode(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Invoice not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-123-456")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be greater than 0"},
		{Field: "due_date", Message: "This field is required"},
	}

	resp := NewValidationErrorResponse("Request validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "Request validation failed", resp.Error.Message)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be greater than 0", resp.Error.Details[0].Message)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.example.com/errors/concurrency"
	resp := NewErrorResponseWithHelp(ErrCodeConcurrencyConflict, "Invoice was modified", "req-001", help)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConcurrencyConflict, resp.Error.Code)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseJSONRoundTrip(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-roundtrip-1")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Invoice not found", decoded.Error.Message)
	assert.Equal(t, "req-roundtrip-1", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "unexpected failure")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"invoice_number": "INV-2024-0001"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"INV-2024-0001", "INV-2024-0002"}, 42, 2, 10)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(42), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 5, resp.Meta.TotalPages)
}

func TestNewSuccessResponseWithMeta_Pagination(t *testing.T) {
	tests := []struct {
		total     int64
		pageSize  int
		wantPages int
		wantSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{10, 10, 1, 10},
		{11, 10, 2, 10},
		// Non-positive page sizes fall back to the default of 20.
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.wantPages, resp.Meta.TotalPages, "total=%d pageSize=%d", tt.total, tt.pageSize)
		assert.Equal(t, tt.wantSize, resp.Meta.PageSize, "total=%d pageSize=%d", tt.total, tt.pageSize)
	}
}
