package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// APIError is the JSON body of every error response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// toAPIError maps domain errors to statuses.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var fve *domain.FilterValidationError
	switch {
	case errors.As(err, &fve):
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "VALIDATION_ERROR",
			Message: fve.Error(),
			Field:   fve.Field,
		}
	case errors.Is(err, domain.ErrOwnerRequired):
		return &APIError{Status: http.StatusBadRequest, Code: "OWNER_REQUIRED", Message: "missing " + OwnerHeader + " header"}
	case errors.Is(err, domain.ErrInvalidInput):
		return &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: err.Error()}
	case errors.Is(err, domain.ErrLinkNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "upload link not found"}
	case errors.Is(err, domain.ErrLinkInactive):
		return &APIError{Status: http.StatusForbidden, Code: "LINK_INACTIVE", Message: err.Error()}
	case errors.Is(err, domain.ErrLinkExpired):
		return &APIError{Status: http.StatusGone, Code: "LINK_EXPIRED", Message: err.Error()}
	case errors.Is(err, domain.ErrLinkExhausted):
		return &APIError{Status: http.StatusConflict, Code: "LINK_LIMIT_REACHED", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "file not found"}
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrVectorIndexUnavailable):
		return &APIError{Status: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE", Message: err.Error()}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return &APIError{Status: he.Code, Code: "HTTP_ERROR", Message: fmt.Sprintf("%v", he.Message)}
	}

	return &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "an unexpected error occurred",
		Details: err.Error(),
	}
}

// ErrorHandler writes err as an APIError.
// Usage: e.HTTPErrorHandler = ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(apiErr.Status)
	} else {
		err = c.JSON(apiErr.Status, apiErr)
	}
	if err != nil {
		logger.Warn("write error response: %v", err)
	}
}
