package server

import (
	"fmt"
	"net/http"
	"testing"

	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	deletiondomain "github.com/akadahq/akada/internal/deletion/domain"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
)

func TestMapError_Taxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", tenantdomain.ErrInvalidPlan, http.StatusBadRequest, "validation_error"},
		{"validation wrapped", fmt.Errorf("create: %w", billingdomain.ErrInvalidAmount), http.StatusBadRequest, "validation_error"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"signature", billingdomain.ErrSignatureMismatch, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "forbidden"},
		{"tenant not found", tenantdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"reference not found", billingdomain.ErrReferenceNotFound, http.StatusNotFound, "not_found"},
		{"code exhausted", tenantdomain.ErrCodeExhausted, http.StatusConflict, "conflict"},
		{"duplicate email", identitydomain.ErrDuplicateEmail, http.StatusConflict, "conflict"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"gateway down", fmt.Errorf("%w: timeout", billingdomain.ErrGatewayUnavailable), http.StatusBadGateway, "gateway_unavailable"},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal_error"},
		{"nil", nil, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantType, payload.Type)
		})
	}
}

func TestMapError_PartialDeletion(t *testing.T) {
	err := &deletiondomain.PartialDeletionError{
		Failed: map[string]string{"notices": "table locked"},
	}

	status, payload := mapError(err)
	assert.Equal(t, http.StatusMultiStatus, status)
	assert.Equal(t, "partial_deletion", payload.Type)
	assert.Equal(t, "table locked", payload.Details["notices"])
}

func TestMapError_ValidationErrors(t *testing.T) {
	status, payload := mapError(newValidationError("plan", "invalid_plan", "invalid plan"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Len(t, payload.Errors, 1)
	assert.Equal(t, "plan", payload.Errors[0].Field)
}
