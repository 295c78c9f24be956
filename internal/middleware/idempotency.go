package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/platform/cache"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader is the request header that makes a mutation replayable.
const IdempotencyKeyHeader = "Idempotency-Key"

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first response stored for a repeated Idempotency-Key.
// Requests without the header pass through untouched. Server errors release the key
// so that the caller may retry.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		logger := GetLoggerFromCtx(ctx)
		scoped := c.Request.Method + ":" + c.FullPath() + ":" + key
		if userID, ok := GetUserIDFromContext(c); ok {
			scoped = userID + ":" + scoped
		}

		reserved, err := store.Reserve(ctx, scoped, ttl)
		if err != nil {
			logger.Error("Failed to reserve idempotency key", slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during idempotency check"})
			return
		}

		if !reserved {
			stored, err := store.Load(ctx, scoped)
			switch {
			case errors.Is(err, cache.ErrInFlight):
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "A request with this Idempotency-Key is still in progress"})
			case err != nil:
				logger.Error("Failed to load idempotent response", slog.String("error", err.Error()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during idempotency check"})
			case stored == nil:
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Idempotency-Key expired, retry with a new key"})
			default:
				logger.Info("Replaying idempotent response", slog.String("idempotency_key", key))
				c.Header("Idempotent-Replayed", "true")
				c.Data(stored.Status, stored.ContentType, stored.Body)
				c.Abort()
			}
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, scoped); err != nil {
				logger.Warn("Failed to release idempotency key", slog.String("error", err.Error()))
			}
			return
		}

		resp := cache.StoredResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.Complete(ctx, scoped, resp, ttl); err != nil {
			logger.Warn("Failed to store idempotent response", slog.String("error", err.Error()))
		}
	}
}
