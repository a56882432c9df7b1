package server

import (
	"net/http"
	"strings"

	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createAccountRequest struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	TenantID    string `json:"tenant_id"`
	ExternalUID string `json:"external_uid"`
}

// CreateAccount provisions an identity account. A tenant-bound caller
// creates accounts only inside its own tenant and never platform roles.
func (s *Server) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role := strings.TrimSpace(req.Role)
	var tenantID *snowflake.ID
	if bound, scoped := tenantScope(accountFromContext(c)); bound {
		if role == identitydomain.RoleSuperAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		id := snowflake.ID(scoped)
		if raw := strings.TrimSpace(req.TenantID); raw != "" {
			explicit, err := snowflake.ParseString(raw)
			if err != nil || explicit != id {
				AbortWithError(c, ErrForbidden)
				return
			}
		}
		tenantID = &id
	} else if raw := strings.TrimSpace(req.TenantID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
			return
		}
		tenantID = &parsed
	}

	account, err := s.identitySvc.CreateAccount(c.Request.Context(), identitydomain.CreateAccountRequest{
		Email:       req.Email,
		Role:        role,
		TenantID:    tenantID,
		ExternalUID: req.ExternalUID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}
