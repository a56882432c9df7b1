package server

import (
	"net/http"
	"strings"

	enrollmentdomain "github.com/akadahq/akada/internal/enrollment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createStudentRequest struct {
	TenantID  string `json:"tenant_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassName string `json:"class_name"`
}

func (s *Server) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil {
		AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
		return
	}
	if bound, scoped := tenantScope(accountFromContext(c)); bound && scoped != int64(tenantID) {
		AbortWithError(c, ErrForbidden)
		return
	}

	student, err := s.enrollmentSvc.CreateStudent(c.Request.Context(), enrollmentdomain.CreateStudentRequest{
		TenantID:  tenantID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		ClassName: strings.TrimSpace(req.ClassName),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, student)
}

func (s *Server) DeleteStudent(c *gin.Context) {
	studentID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_student_id", "invalid student id"))
		return
	}

	tenantID, err := snowflake.ParseString(strings.TrimSpace(c.Query("tenant_id")))
	if err != nil {
		AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "invalid tenant id"))
		return
	}
	if bound, scoped := tenantScope(accountFromContext(c)); bound && scoped != int64(tenantID) {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.enrollmentSvc.DeleteStudent(c.Request.Context(), tenantID, studentID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type transferStudentRequest struct {
	FromTenantID string `json:"from_tenant_id"`
	ToTenantID   string `json:"to_tenant_id"`
}

func (s *Server) TransferStudent(c *gin.Context) {
	studentID, err := parseSnowflakeParam(c, "id")
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_student_id", "invalid student id"))
		return
	}

	var req transferStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fromID, err := snowflake.ParseString(strings.TrimSpace(req.FromTenantID))
	if err != nil {
		AbortWithError(c, newValidationError("from_tenant_id", "invalid_tenant_id", "invalid tenant id"))
		return
	}
	toID, err := snowflake.ParseString(strings.TrimSpace(req.ToTenantID))
	if err != nil {
		AbortWithError(c, newValidationError("to_tenant_id", "invalid_tenant_id", "invalid tenant id"))
		return
	}

	// A transfer crosses tenants, so a tenant-bound admin must own the
	// source side.
	if bound, scoped := tenantScope(accountFromContext(c)); bound && scoped != int64(fromID) {
		AbortWithError(c, ErrForbidden)
		return
	}

	if err := s.enrollmentSvc.TransferStudent(c.Request.Context(), studentID, fromID, toID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
