package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/invoicing/backend/internal/infrastructure/cache"
)

// IdempotencyKeyHeader is the request header carrying the client-chosen key.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyReplayedHeader marks responses served from the idempotency store.
const IdempotencyReplayedHeader = "X-Idempotency-Replayed"

// MaxIdempotencyKeyLength bounds the accepted key size.
const MaxIdempotencyKeyLength = 128

// storedResponse is the envelope persisted per idempotency key.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyConfig holds configuration for the idempotency middleware.
type IdempotencyConfig struct {
	Store  cache.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency returns a middleware that makes mutating requests safe to
// retry. When a request carries an Idempotency-Key header, the first
// successful response is stored and every later request with the same
// key gets the stored response back instead of re-executing the handler.
//
// Requests without the header pass through untouched. Store failures
// degrade to normal processing; a retry storm is better than a hard
// failure on the payment path.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || cfg.Store == nil {
			c.Next()
			return
		}

		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "ERR_BAD_REQUEST",
					"message": "Idempotency-Key header exceeds maximum length",
				},
			})
			return
		}

		// Scope keys by route so the same key can be reused across endpoints
		storeKey := c.Request.Method + ":" + c.FullPath() + ":" + key

		ctx := c.Request.Context()
		if payload, found, err := cfg.Store.Lookup(ctx, storeKey); err != nil {
			logger.Warn("Idempotency lookup failed, processing request normally",
				zap.String("key", key),
				zap.Error(err),
			)
		} else if found {
			var stored storedResponse
			if err := json.Unmarshal(payload, &stored); err == nil {
				c.Header(IdempotencyReplayedHeader, "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
			logger.Warn("Discarding malformed idempotency record", zap.String("key", key))
		}

		// Capture the response body so it can be stored for replay
		writer := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		payload, err := json.Marshal(storedResponse{
			Status: status,
			Body:   json.RawMessage(writer.body.Bytes()),
		})
		if err != nil {
			logger.Warn("Failed to encode idempotency record", zap.Error(err))
			return
		}

		if err := cfg.Store.Store(ctx, storeKey, payload, cfg.TTL); err != nil {
			logger.Warn("Failed to store idempotency record",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// bodyCaptureWriter tees the response body into a buffer.
type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
