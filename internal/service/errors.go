package service

import "errors"

var (
	ErrSizeRequired       = errors.New("size is required")
	ErrInvalidSize        = errors.New("invalid size")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrEmptyOrder         = errors.New("order must contain at least one item")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrIllegalTransition  = errors.New("illegal order status transition")
	ErrForbidden          = errors.New("actor may not access this resource")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
