package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"schoolprops/internal/models"
)

type contextKey string

const (
	PrincipalKey contextKey = "principal"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// WithPrincipal stores the authenticated caller in ctx.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipalFromContext extracts the authenticated caller from the request context
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(models.Principal)
	return p, ok
}

// ValidateUUID validates UUID format
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, NewValidationError(fieldName, "is required")
	}
	if len(idStr) != 36 {
		return uuid.Nil, NewValidationError(fieldName, "must be exactly 36 characters (including hyphens)")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, NewValidationError(fieldName, "is not a valid UUID")
	}
	return id, nil
}

// ValidatePositiveInteger validates positive integer values with upper bounds
func ValidatePositiveInteger(value int, fieldName string, maxValue int) error {
	if value <= 0 {
		return NewValidationError(fieldName, "must be positive")
	}
	if value > maxValue {
		return NewValidationError(fieldName, "cannot exceed %d", maxValue)
	}
	return nil
}

// ValidateAmount validates a money amount: non-negative, finite, bounded.
func ValidateAmount(value float64, fieldName string) error {
	if value != value || value < 0 {
		return NewValidationError(fieldName, "must be zero or positive")
	}
	if value > 1000000000 {
		return NewValidationError(fieldName, "cannot exceed 1,000,000,000")
	}
	return nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string, maxLength int) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return NewValidationError(fieldName, "is required")
	}
	if len(value) > maxLength {
		return NewValidationError(fieldName, "cannot exceed %d characters", maxLength)
	}
	return nil
}

// ValidateOptionalString validates optional string fields
func ValidateOptionalString(value, fieldName string, maxLength int) error {
	if len(value) > maxLength {
		return NewValidationError(fieldName, "cannot exceed %d characters", maxLength)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD or RFC3339 date string.
// Date-only values are taken as the end of that day in UTC.
func ParseDate(dateStr, fieldName string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, NewValidationError(fieldName, "is required")
	}
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t.UTC(), nil
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, NewValidationError(fieldName, "must be in YYYY-MM-DD or RFC3339 format")
	}
	return date.Add(24*time.Hour - time.Second), nil
}

// ParseRangeStart is ParseDate for the lower bound of a range: date-only values
// are taken as the start of that day.
func ParseRangeStart(dateStr, fieldName string) (time.Time, error) {
	t, err := ParseDate(dateStr, fieldName)
	if err != nil {
		return t, err
	}
	if _, perr := time.Parse("2006-01-02", strings.TrimSpace(dateStr)); perr == nil {
		return t.Truncate(24 * time.Hour), nil
	}
	return t, nil
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}
	return limit, offset, nil
}

// ValidateDateRange validates date ranges to prevent abuse
func ValidateDateRange(startDate, endDate time.Time) error {
	if endDate.Before(startDate) {
		return NewValidationError("to", "end date cannot be before start date")
	}
	if endDate.Sub(startDate) > time.Hour*24*365*10 {
		return NewValidationError("to", "date range cannot exceed 10 years")
	}
	return nil
}

// SanitizeSearchQuery strips LIKE wildcards and bounds the query length
func SanitizeSearchQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	query = strings.ReplaceAll(query, "%", "")
	query = strings.ReplaceAll(query, "_", "")
	if len(query) > 100 {
		query = query[:100]
	}
	return strings.TrimSpace(query)
}
