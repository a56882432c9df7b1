package server

import (
	"errors"
	"net/http"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	deletiondomain "github.com/akadahq/akada/internal/deletion/domain"
	enrollmentdomain "github.com/akadahq/akada/internal/enrollment/domain"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/gin-gonic/gin"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate_limited")
)

// ErrorHandlingMiddleware converts the last gin error into the JSON
// error envelope. Handlers that already wrote a body are left alone.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErrs *ValidationErrors
	if errors.As(err, &vErrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErrs.Errors,
		}
	}

	// A partial purge keeps the tenant row so the delete can be
	// retried; the per-collection failures travel in the details map.
	var partialErr *deletiondomain.PartialDeletionError
	if errors.As(err, &partialErr) {
		return http.StatusMultiStatus, errorPayload{
			Type:    "partial_deletion",
			Message: partialErr.Error(),
			Details: partialErr.Failed,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, billingdomain.ErrSignatureMismatch):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, tenantdomain.ErrCodeExhausted),
		errors.Is(err, identitydomain.ErrDuplicateEmail):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, billingdomain.ErrGatewayUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		tenantdomain.ErrInvalidName,
		tenantdomain.ErrInvalidPlan,
		tenantdomain.ErrInvalidTenantID,
		deletiondomain.ErrInvalidTenantID,
		enrollmentdomain.ErrInvalidStudent,
		enrollmentdomain.ErrInvalidTenant,
		identitydomain.ErrInvalidEmail,
		identitydomain.ErrInvalidRole,
		billingdomain.ErrInvalidTenant,
		billingdomain.ErrInvalidAmount,
		billingdomain.ErrInvalidCurrency,
		billingdomain.ErrInvalidReference,
		auditdomain.ErrInvalidEventType,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, target := range []error{
		tenantdomain.ErrNotFound,
		enrollmentdomain.ErrStudentNotFound,
		identitydomain.ErrNotFound,
		billingdomain.ErrReferenceNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
