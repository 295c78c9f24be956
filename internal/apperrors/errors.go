package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the request conflicts with the current state of the resource.
var ErrConflict = errors.New("conflict with current state")

// ErrForbidden indicates the caller may not perform the action.
var ErrForbidden = errors.New("forbidden")

// ErrInternal is returned when an unexpected failure happened below the service layer.
var ErrInternal = errors.New("internal error")

// Ledger errors. Handlers map these to HTTP statuses with errors.Is.
var (
	// ErrConfigurationUnavailable means the billing settings row has not been loaded.
	// The caller must load it and retry; it is never retried internally.
	ErrConfigurationUnavailable = errors.New("billing configuration unavailable")

	// ErrNumberGenerationExhausted means every candidate number collided.
	ErrNumberGenerationExhausted = errors.New("document number generation exhausted")

	// ErrInvalidPaymentAmount covers amount <= 0, amount above remaining due and payment policy violations.
	ErrInvalidPaymentAmount = fmt.Errorf("%w: invalid payment amount", ErrValidation)

	ErrInvoiceNotFound = fmt.Errorf("invoice %w", ErrNotFound)
	ErrQuoteNotFound   = fmt.Errorf("quote %w", ErrNotFound)
	ErrClientNotFound  = fmt.Errorf("client %w", ErrNotFound)

	// ErrTransactionConflict is the internal optimistic-concurrency signal. It is retried by the
	// transaction runner and only surfaces as ErrOperationFailed.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrOperationFailed is returned once transaction retries are exhausted.
	ErrOperationFailed = errors.New("operation failed")

	ErrInvalidStatusTransition = fmt.Errorf("%w: invalid status transition", ErrConflict)
	ErrQuoteNotPending         = fmt.Errorf("%w: quote is not pending", ErrConflict)
	ErrQuoteExpired            = fmt.Errorf("%w: quote has expired", ErrConflict)
	ErrClientHasActiveTickets  = fmt.Errorf("%w: client has active tickets", ErrConflict)
	ErrClientHasInvoices       = fmt.Errorf("%w: client has invoices", ErrConflict)
)

// AppError carries an HTTP-ish code and a message alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError builds an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
