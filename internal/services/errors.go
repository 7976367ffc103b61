package services

import (
	"errors"
	"net/http"
)

// Transfer engine failure modes. Every error a caller can see wraps exactly
// one of these sentinels, so handlers classify with errors.Is.
var (
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrAmountLimitExceeded = errors.New("amount exceeds the per-transfer limit")
	ErrSenderNotFound      = errors.New("sender account not found")
	ErrReceiverNotFound    = errors.New("receiver account not found")
	ErrSelfTransfer        = errors.New("cannot transfer to your own account")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRateLimitExceeded   = errors.New("transfer rate limit exceeded")
	ErrDuplicateTransfer   = errors.New("transfer already processed")
	ErrConcurrentUpdate    = errors.New("balance changed concurrently")
	ErrInvariantViolation  = errors.New("balance invariant violated")

	ErrInvalidQuery  = errors.New("invalid statement query")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user with this email or username already exists")
	ErrBadCredential = errors.New("invalid email or password")
)

// StatusCode maps a service error to the HTTP status the caller should see.
// Unknown errors are storage/logic failures and stay 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountLimitExceeded),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrBadCredential):
		return http.StatusBadRequest
	case errors.Is(err, ErrSenderNotFound),
		errors.Is(err, ErrReceiverNotFound),
		errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateTransfer),
		errors.Is(err, ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
