package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/enrollment/domain"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	usageservice "github.com/akadahq/akada/internal/usage/service"
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

type enrollmentFixture struct {
	svc     domain.Service
	db      *gorm.DB
	node    *snowflake.Node
	tenantA snowflake.ID
	tenantB snowflake.ID
}

func newEnrollment(t *testing.T) *enrollmentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:enrollment_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tenantdomain.Tenant{}, &domain.Student{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	counter := usageservice.NewService(usageservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		AuditSvc: nopAudit{},
	})
	svc := NewService(Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Counter: counter,
	})

	f := &enrollmentFixture{svc: svc, db: db, node: node}
	f.tenantA = f.createTenant(t, "Greenwood Prep", "GREENW")
	f.tenantB = f.createTenant(t, "Hillcrest Academy", "HILLCR")
	return f
}

func (f *enrollmentFixture) createTenant(t *testing.T, name, code string) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&tenantdomain.Tenant{
		ID:            id,
		Name:          name,
		Code:          code,
		Slug:          code,
		Status:        tenantdomain.StatusActive,
		Plan:          tenantdomain.PlanFree,
		BillingStatus: tenantdomain.BillingNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)
	return id
}

func (f *enrollmentFixture) memberCount(t *testing.T, tenantID snowflake.ID) int64 {
	t.Helper()
	var tenant tenantdomain.Tenant
	require.NoError(t, f.db.First(&tenant, "id = ?", tenantID).Error)
	return tenant.MemberCount
}

func TestCreateStudent_IncrementsMemberCount(t *testing.T) {
	f := newEnrollment(t)

	student, err := f.svc.CreateStudent(context.Background(), domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
		ClassName: "JSS1",
	})
	require.NoError(t, err)
	assert.NotZero(t, student.ID)
	assert.EqualValues(t, 1, f.memberCount(t, f.tenantA))
}

func TestCreateStudent_Validation(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	_, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{TenantID: 0, FirstName: "Ada", LastName: "Obi"})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)

	_, err = f.svc.CreateStudent(ctx, domain.CreateStudentRequest{TenantID: f.tenantA, FirstName: " ", LastName: "Obi"})
	assert.ErrorIs(t, err, domain.ErrInvalidStudent)

	_, err = f.svc.CreateStudent(ctx, domain.CreateStudentRequest{TenantID: snowflake.ID(999), FirstName: "Ada", LastName: "Obi"})
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
}

func TestDeleteStudent_DecrementsMemberCount(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteStudent(ctx, f.tenantA, student.ID))
	assert.EqualValues(t, 0, f.memberCount(t, f.tenantA))

	err = f.svc.DeleteStudent(ctx, f.tenantA, student.ID)
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestDeleteStudent_WrongTenantDoesNotDelete(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	err = f.svc.DeleteStudent(ctx, f.tenantB, student.ID)
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
	assert.EqualValues(t, 1, f.memberCount(t, f.tenantA))
}

func TestTransferStudent_MovesRecordAndCounts(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.TransferStudent(ctx, student.ID, f.tenantA, f.tenantB))

	var moved domain.Student
	require.NoError(t, f.db.First(&moved, "id = ?", student.ID).Error)
	assert.Equal(t, f.tenantB, moved.TenantID)
	assert.EqualValues(t, 0, f.memberCount(t, f.tenantA))
	assert.EqualValues(t, 1, f.memberCount(t, f.tenantB))
}

func TestTransferStudent_UnknownTargetTenant(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	err = f.svc.TransferStudent(ctx, student.ID, f.tenantA, snowflake.ID(999))
	assert.ErrorIs(t, err, domain.ErrInvalidTenant)
	assert.EqualValues(t, 1, f.memberCount(t, f.tenantA))
}

func TestTransferStudent_SameTenantIsNoOp(t *testing.T) {
	f := newEnrollment(t)
	ctx := context.Background()

	student, err := f.svc.CreateStudent(ctx, domain.CreateStudentRequest{
		TenantID:  f.tenantA,
		FirstName: "Ada",
		LastName:  "Obi",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.TransferStudent(ctx, student.ID, f.tenantA, f.tenantA))
	assert.EqualValues(t, 1, f.memberCount(t, f.tenantA))
}
