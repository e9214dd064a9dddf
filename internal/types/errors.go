package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Amount errors
	ErrInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrWalletCapExceeded   ErrorCode = "WALLET_CAP_EXCEEDED"
	ErrTransferCapExceeded ErrorCode = "TRANSFER_CAP_EXCEEDED"
	ErrSelfTransfer        ErrorCode = "SELF_TRANSFER"

	// Wager errors
	ErrBetOutOfRange ErrorCode = "BET_OUT_OF_RANGE"
	ErrUnknownGame   ErrorCode = "UNKNOWN_GAME"
	ErrRateLimited   ErrorCode = "RATE_LIMITED"

	// Access errors
	ErrForbidden ErrorCode = "FORBIDDEN"

	// Query errors
	ErrInvalidMetric ErrorCode = "INVALID_METRIC"

	// System errors
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// EconomyError is a recoverable failure of an economy operation. Message is
// safe to show to the user as is.
type EconomyError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *EconomyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EconomyError) Unwrap() error {
	return e.Err
}

// NewEconomyError creates a new EconomyError
func NewEconomyError(code ErrorCode, message string) *EconomyError {
	return &EconomyError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in an EconomyError
func WrapError(code ErrorCode, message string, err error) *EconomyError {
	return &EconomyError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsEconomyError checks if an error is an EconomyError and has a specific code
func IsEconomyError(err error, code ErrorCode) bool {
	var econErr *EconomyError
	if !As(err, &econErr) {
		return false
	}
	return econErr.Code == code
}

// As finds the first EconomyError in err's chain
func As(err error, target **EconomyError) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.As(err, target)
}

// CodeOf returns the code of the first EconomyError in err's chain, or an
// empty code.
func CodeOf(err error) ErrorCode {
	var econErr *EconomyError
	if As(err, &econErr) {
		return econErr.Code
	}
	return ""
}

// MessageOf returns a user-facing message for err. Errors that are not
// EconomyErrors get a generic message so internals never leak to chat.
func MessageOf(err error) string {
	var econErr *EconomyError
	if As(err, &econErr) {
		return econErr.Message
	}
	return "An unexpected error occurred"
}
