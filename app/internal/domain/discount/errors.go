package discount

import "errors"

var (
	ErrEmptyCode      = errors.New("discount code is required")
	ErrInvalidCode    = errors.New("invalid discount code")
	ErrInvalidPercent = errors.New("discount percent must be between 0 and 100")
)
