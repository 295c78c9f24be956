package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SscSPs/repair_shop_billing/internal/apperrors"
	"github.com/SscSPs/repair_shop_billing/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	clock func() time.Time
}

// Now returns the service clock in UTC.
func (s *BaseService) Now() time.Time {
	if s.clock != nil {
		return s.clock().UTC()
	}
	return time.Now().UTC()
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// ServiceOption configures the shared parts of a service.
type ServiceOption func(*BaseService)

// WithClock overrides the time source of a service.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *BaseService) {
		s.clock = now
	}
}

func newBaseService(opts ...ServiceOption) BaseService {
	var b BaseService
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// logWriteFailure logs coordinator errors. Expected caller errors are logged at Warn.
func (s *BaseService) logWriteFailure(ctx context.Context, err error, msg string, attrs ...any) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrConfigurationUnavailable):
		s.GetLogger(ctx).Warn(msg, append([]any{slog.String("error", err.Error())}, attrs...)...)
	default:
		s.LogError(ctx, err, msg, attrs...)
	}
}
