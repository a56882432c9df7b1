package server

import (
	"net/http"
	"strings"

	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type initiatePaymentRequest struct {
	TenantID string         `json:"tenant_id"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Metadata map[string]any `json:"metadata"`
}

// InitiatePayment resolves the tenant from the authenticated account.
// Only an unbound super_admin may (and must) name a tenant explicitly.
func (s *Server) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var tenantID snowflake.ID
	if bound, scoped := tenantScope(accountFromContext(c)); bound {
		tenantID = snowflake.ID(scoped)
		if raw := strings.TrimSpace(req.TenantID); raw != "" {
			explicit, err := snowflake.ParseString(raw)
			if err != nil || explicit != tenantID {
				AbortWithError(c, ErrForbidden)
				return
			}
		}
	} else {
		parsed, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
		if err != nil {
			AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
			return
		}
		tenantID = parsed
	}

	resp, err := s.billingSvc.Initiate(c.Request.Context(), billingdomain.InitiateRequest{
		TenantID: tenantID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

type verifyPaymentRequest struct {
	Reference string `json:"reference"`
}

func (s *Server) VerifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.billingSvc.VerifyByPull(c.Request.Context(), strings.TrimSpace(req.Reference))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
