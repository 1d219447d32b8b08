package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Domain error sentinels. Services return these (optionally wrapped with
// context via fmt.Errorf and %w); handlers translate them to HTTP statuses
// with ToFiber.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyFinalized  = errors.New("already finalized")
	ErrEmptySelection    = errors.New("empty selection")
	ErrValidation        = errors.New("validation failed")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// ToFiber maps a domain error to a fiber error with the right status code.
// Unknown errors come back as 500 with a generic message so internals never
// leak to the client.
func ToFiber(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrAccessDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, ErrEmptySelection),
		errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}
