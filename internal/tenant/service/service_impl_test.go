package service

import (
	"context"
	"fmt"
	"testing"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/tenant/domain"
	"github.com/akadahq/akada/internal/tenant/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type nopAudit struct{}

func (nopAudit) Append(ctx context.Context, entry auditdomain.Entry) {}
func (nopAudit) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	return auditdomain.ListResponse{}, nil
}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:tenant_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Tenant{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		AuditSvc: nopAudit{},
	})
	return svc, db
}

func TestCreateTenant_CodeFromName(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Greenwood Prep",
		Plan: domain.PlanFree,
	})
	require.NoError(t, err)
	assert.Equal(t, "GREENW", resp.Code)
	assert.NotZero(t, resp.TenantID)
}

func TestCreateTenant_CodeCollisionAppendsSuffix(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, domain.CreateRequest{Name: "Greenwood Prep", Plan: domain.PlanFree})
	require.NoError(t, err)
	assert.Equal(t, "GREENW", first.Code)

	second, err := svc.Create(ctx, domain.CreateRequest{Name: "Greenwood Prep", Plan: domain.PlanFree})
	require.NoError(t, err)
	assert.Equal(t, "GREENW1", second.Code)
	assert.NotEqual(t, first.TenantID, second.TenantID)

	third, err := svc.Create(ctx, domain.CreateRequest{Name: "Greenwood Prep", Plan: domain.PlanFree})
	require.NoError(t, err)
	assert.Equal(t, "GREENW2", third.Code)
}

func TestCreateTenant_CodeStripsNonAlphanumerics(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "St. Mary's & Co",
		Plan: domain.PlanTrial,
	})
	require.NoError(t, err)
	assert.Equal(t, "STMARY", resp.Code)
}

func TestCreateTenant_ShortNameKeepsFullCode(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Ada",
		Plan: domain.PlanFree,
	})
	require.NoError(t, err)
	assert.Equal(t, "ADA", resp.Code)
}

func TestCreateTenant_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "   ", Plan: domain.PlanFree})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{Name: "Hillcrest", Plan: "lifetime"})
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)
}

func TestCreateTenant_InitialState(t *testing.T) {
	svc, db := newTestService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		Name: "Hillcrest Academy",
		Plan: domain.PlanMonthly,
	})
	require.NoError(t, err)

	var stored domain.Tenant
	require.NoError(t, db.First(&stored, "id = ?", resp.TenantID).Error)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Equal(t, domain.BillingNone, stored.BillingStatus)
	assert.Equal(t, "hillcrest-academy", stored.Slug)
	assert.EqualValues(t, 0, stored.MemberCount)
}

func TestGetByID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Create(ctx, domain.CreateRequest{Name: "Greenwood Prep", Plan: domain.PlanFree})
	require.NoError(t, err)

	tenant, err := svc.GetByID(ctx, resp.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "Greenwood Prep", tenant.Name)

	_, err = svc.GetByID(ctx, snowflake.ID(999999))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenantID)
}
