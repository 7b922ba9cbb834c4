package ledger

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes ledger errors
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindInvalidState
	KindNotOwner
	KindSelfPurchase
	KindInsufficientFunds
	KindOverPayment
	KindValidation
	KindUnauthorized
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidState:
		return "InvalidState"
	case KindNotOwner:
		return "NotOwner"
	case KindSelfPurchase:
		return "SelfPurchase"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindOverPayment:
		return "OverPayment"
	case KindValidation:
		return "ValidationError"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		return "Unknown"
	}
}

// Error is returned by every failed ledger operation
type Error struct {
	Kind      ErrorKind
	ProductID uint64
	Message   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrNotOwner          = &Error{Kind: KindNotOwner, Message: "caller is not the owner"}
	ErrSelfPurchase      = &Error{Kind: KindSelfPurchase, Message: "self purchase"}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrOverPayment       = &Error{Kind: KindOverPayment, Message: "over payment"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

// KindOf extracts the kind of a ledger error, KindUnknown for anything else
func KindOf(err error) ErrorKind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindUnknown
}

func newError(kind ErrorKind, id uint64, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, ProductID: id, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown product id
func NotFoundError(id uint64) *Error {
	return newError(KindNotFound, id, "product %d does not exist", id)
}

// ValidationError reports malformed input
func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, 0, format, args...)
}

// InsufficientFundsError reports a balance or payment shortfall
func InsufficientFundsError(id uint64, format string, args ...interface{}) *Error {
	return newError(KindInsufficientFunds, id, format, args...)
}

// UnauthorizedError reports a caller lacking a required permission
func UnauthorizedError(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, 0, format, args...)
}
