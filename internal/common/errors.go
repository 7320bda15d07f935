package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotFound is returned when a referenced request, item or reservation does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned when a reservation asks for more than is available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrAlreadyProcessed is returned when a request has already moved past the state an
	// action expects, typically because a concurrent caller got there first.
	ErrAlreadyProcessed = errors.New("request already processed")

	// ErrAlreadyReleased is returned when a reservation was released before.
	// Callers treat it as a warning.
	ErrAlreadyReleased = errors.New("reservation already released")

	// ErrInvalidTransition is returned when an action does not apply to the request's
	// type or current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrForbidden       = errors.New("forbidden")
	ErrItemInUse       = errors.New("item has active reservations")
	ErrItemUnavailable = errors.New("item is not available for reservation")
)

// ValidationError reports bad input shape or range on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SendDomainError maps a core error onto a standardized HTTP error response.
// Unknown errors are logged and reported without detail.
func SendDomainError(c echo.Context, err error) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return SendValidationError(c, ve.Field, ve.Message)
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", err.Error(), nil))
	case errors.Is(err, ErrForbidden):
		return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
	case errors.Is(err, ErrInsufficientStock):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INSUFFICIENT_STOCK", err.Error(), nil))
	case errors.Is(err, ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, CreateErrorResponse("ALREADY_PROCESSED", err.Error(), nil))
	case errors.Is(err, ErrAlreadyReleased):
		return c.JSON(http.StatusConflict, CreateErrorResponse("ALREADY_RELEASED", err.Error(), nil))
	case errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusConflict, CreateErrorResponse("INVALID_TRANSITION", err.Error(), nil))
	case errors.Is(err, ErrItemInUse):
		return c.JSON(http.StatusConflict, CreateErrorResponse("ITEM_IN_USE", err.Error(), nil))
	case errors.Is(err, ErrItemUnavailable):
		return c.JSON(http.StatusConflict, CreateErrorResponse("ITEM_UNAVAILABLE", err.Error(), nil))
	case errors.Is(err, ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, CreateErrorResponse("INVALID_AMOUNT", err.Error(), nil))
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return SendServerError(c, "operation could not be completed")
}
