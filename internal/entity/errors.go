package entity

import "errors"

var (
	// ErrEmptyCart is returned when an order is submitted without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInsufficientStock is returned when a decrement would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition is returned when the current status does not allow the requested action.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStaleWrite is returned when a concurrent writer changed the product row first.
	ErrStaleWrite = errors.New("stale write on product stock")
	// ErrTransportFailure wraps storage or network failures. Nothing was committed.
	ErrTransportFailure = errors.New("transport failure")

	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrProductInactive   = errors.New("product is not active")
	ErrDuplicateMovement = errors.New("stock movement already recorded")
	ErrDuplicateKey      = errors.New("idempotency key already used")
	ErrRequestInFlight   = errors.New("request with this idempotency key is in progress")
	ErrForbidden         = errors.New("forbidden")
)

var (
	ErrProductNotFound       = wrapNotFound("product not found")
	ErrOrderNotFound         = wrapNotFound("order not found")
	ErrPurchaseOrderNotFound = wrapNotFound("purchase order not found")
	ErrSupplierNotFound      = wrapNotFound("supplier not found")
)

type notFoundError struct {
	msg string
}

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

func wrapNotFound(msg string) error {
	return &notFoundError{msg: msg}
}
