package cart

import "errors"

var (
	ErrItemNotFound        = errors.New("cart item not found")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidPrice        = errors.New("unit price must be positive")
	ErrInvalidProductID    = errors.New("product id is required")
	ErrInvalidPurchaseMode = errors.New("invalid purchase mode")
	ErrInvalidResalePlan   = errors.New("invalid resale plan")
	ErrSessionNotFound     = errors.New("cart session not found")
	ErrNotSynced           = errors.New("cart is not synced with the account")
)
