package store

import "errors"

// ValidationError marks failures detected locally, before any backend call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

var (
	ErrNoSession      = &ValidationError{Msg: "checkout requires an authenticated session"}
	ErrEmptyCart      = &ValidationError{Msg: "the cart is empty"}
	ErrUnknownCourse  = &ValidationError{Msg: "course is not in the catalog"}
	ErrInvalidPayment = &ValidationError{Msg: "unknown payment method"}
)

// IsValidation reports whether err originated from local validation rather
// than a facade call.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
