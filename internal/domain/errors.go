package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrMissingCartID is returned when a cart operation arrives without a cart id.
	ErrMissingCartID     = errors.New("missing cart ID")
	ErrItemNotInCart     = errors.New("item not found in cart")
	ErrOutOfStock        = errors.New("out of stock")
	ErrUnknownUpdateType = errors.New("unknown update type")
)
