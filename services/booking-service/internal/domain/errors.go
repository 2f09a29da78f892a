package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRefundFailed      = errors.New("refund failed")
	ErrPaymentDeclined   = errors.New("payment declined")
	ErrPaymentsDisabled  = errors.New("payments not configured")
)
