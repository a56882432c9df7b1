package server

import (
	"net/http"
	"strings"

	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createTenantRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Plan    string `json:"plan"`
}

func (s *Server) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var createdBy *snowflake.ID
	if account := accountFromContext(c); account != nil {
		id := account.ID
		createdBy = &id
	}

	resp, err := s.tenantSvc.Create(c.Request.Context(), tenantdomain.CreateRequest{
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		Plan:      strings.TrimSpace(req.Plan),
		CreatedBy: createdBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) GetTenant(c *gin.Context) {
	tenantID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_tenant_id", "invalid tenant id"))
		return
	}

	// Tenant-bound accounts may only read their own tenant.
	if bound, scoped := tenantScope(accountFromContext(c)); bound && scoped != int64(tenantID) {
		AbortWithError(c, ErrForbidden)
		return
	}

	result, err := s.tenantSvc.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DeleteTenant(c *gin.Context) {
	tenantID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_tenant_id", "invalid tenant id"))
		return
	}

	result, err := s.deletionSvc.Delete(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseSnowflakeParam(c *gin.Context, name string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(c.Param(name)))
}
