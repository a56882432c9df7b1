package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/config"
	"github.com/akadahq/akada/internal/deletion/domain"
	enrollmentdomain "github.com/akadahq/akada/internal/enrollment/domain"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	identityrepo "github.com/akadahq/akada/internal/identity/repository"
	"github.com/akadahq/akada/internal/migration"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []auditdomain.Entry
}

func (r *recordingAudit) Append(ctx context.Context, entry auditdomain.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, entry)
}

func (r *recordingAudit) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	return auditdomain.ListResponse{}, nil
}

func (r *recordingAudit) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.EventType)
	}
	return types
}

type recordingAuthProvider struct {
	mu      sync.Mutex
	deleted []string
	failAll bool
}

func (p *recordingAuthProvider) DeleteUser(ctx context.Context, externalUID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return fmt.Errorf("idp unavailable")
	}
	p.deleted = append(p.deleted, externalUID)
	return nil
}

type engineFixture struct {
	engine   domain.Engine
	db       *gorm.DB
	node     *snowflake.Node
	audit    *recordingAudit
	provider *recordingAuthProvider
	tenantID snowflake.ID
}

func newEngine(t *testing.T, batchSize int) *engineFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:deletion_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	audit := &recordingAudit{}
	provider := &recordingAuthProvider{}

	engine := NewService(Params{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{
			MaxBatchSize:      batchSize,
			DeleteConcurrency: 4,
		},
		IdentityRepo: identityrepo.Provide(),
		AuthProvider: provider,
		AuditSvc:     audit,
	})

	tenantID := node.Generate()
	now := time.Now().UTC()
	require.NoError(t, db.Create(&tenantdomain.Tenant{
		ID:            tenantID,
		Name:          "Greenwood Prep",
		Code:          "GREENW",
		Slug:          "greenwood-prep",
		Status:        tenantdomain.StatusActive,
		Plan:          tenantdomain.PlanFree,
		BillingStatus: tenantdomain.BillingNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)

	return &engineFixture{
		engine:   engine,
		db:       db,
		node:     node,
		audit:    audit,
		provider: provider,
		tenantID: tenantID,
	}
}

func (f *engineFixture) seedStudents(t *testing.T, count int) {
	t.Helper()
	now := time.Now().UTC()
	students := make([]enrollmentdomain.Student, 0, count)
	for i := 0; i < count; i++ {
		students = append(students, enrollmentdomain.Student{
			ID:        f.node.Generate(),
			TenantID:  f.tenantID,
			FirstName: "Student",
			LastName:  fmt.Sprintf("Number%d", i),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	require.NoError(t, f.db.CreateInBatches(students, 200).Error)
}

func (f *engineFixture) tenantExists(t *testing.T) bool {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&tenantdomain.Tenant{}).Where("id = ?", f.tenantID).Count(&count).Error)
	return count > 0
}

func TestDelete_RemovesScopedRecordsAndTenantRow(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()

	f.seedStudents(t, 1240)
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&enrollmentdomain.Notice{
		ID:        f.node.Generate(),
		TenantID:  f.tenantID,
		Title:     "Term dates",
		CreatedAt: now,
	}).Error)
	require.NoError(t, f.db.Create(&tenantdomain.TenantSettings{
		TenantID:  f.tenantID,
		UpdatedAt: now,
	}).Error)

	result, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)

	assert.Equal(t, 1240, result.DeletedByCollection["students"])
	assert.Equal(t, 1, result.DeletedByCollection["notices"])
	assert.Equal(t, 1, result.DeletedByCollection["tenant_settings"])
	assert.False(t, f.tenantExists(t))

	var remaining int64
	require.NoError(t, f.db.Model(&enrollmentdomain.Student{}).Where("tenant_id = ?", f.tenantID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	types := f.audit.eventTypes()
	assert.Contains(t, types, auditdomain.EventTenantDeletionStarted)
	assert.Contains(t, types, auditdomain.EventTenantDeletionCompleted)
}

func TestDelete_RecordsScopedToOtherTenantsSurvive(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()

	otherTenant := f.node.Generate()
	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&tenantdomain.Tenant{
		ID:            otherTenant,
		Name:          "Hillcrest Academy",
		Code:          "HILLCR",
		Slug:          "hillcrest-academy",
		Status:        tenantdomain.StatusActive,
		Plan:          tenantdomain.PlanFree,
		BillingStatus: tenantdomain.BillingNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)
	require.NoError(t, f.db.Create(&enrollmentdomain.Student{
		ID:        f.node.Generate(),
		TenantID:  otherTenant,
		FirstName: "Kept",
		LastName:  "Student",
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
	f.seedStudents(t, 5)

	_, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)

	var survivors int64
	require.NoError(t, f.db.Model(&enrollmentdomain.Student{}).Where("tenant_id = ?", otherTenant).Count(&survivors).Error)
	assert.EqualValues(t, 1, survivors)
}

func TestDelete_Idempotent(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()

	f.seedStudents(t, 3)
	_, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)

	// Second pass on an already-clean tenant: zero counts, no error.
	result, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Zero(t, result.DeletedIdentityCount)
	assert.Zero(t, result.DeletedByCollection["students"])
}

func TestDelete_IdentityAccounts(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()
	now := time.Now().UTC()

	tenantID := f.tenantID
	for i, role := range []string{identitydomain.RoleTenantAdmin, identitydomain.RoleStaff} {
		require.NoError(t, f.db.Create(&identitydomain.IdentityAccount{
			ID:          f.node.Generate(),
			Email:       fmt.Sprintf("member%d@greenwood.example", i),
			Role:        role,
			TenantID:    &tenantID,
			ExternalUID: fmt.Sprintf("ext-%d", i),
			Status:      identitydomain.StatusActive,
			CreatedAt:   now,
		}).Error)
	}
	// Platform operators are never tenant-scoped casualties.
	require.NoError(t, f.db.Create(&identitydomain.IdentityAccount{
		ID:        f.node.Generate(),
		Email:     "root@akada.example",
		Role:      identitydomain.RoleSuperAdmin,
		Status:    identitydomain.StatusActive,
		CreatedAt: now,
	}).Error)

	result, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.DeletedIdentityCount)
	assert.Len(t, f.provider.deleted, 2)

	var rootCount int64
	require.NoError(t, f.db.Model(&identitydomain.IdentityAccount{}).Where("role = ?", identitydomain.RoleSuperAdmin).Count(&rootCount).Error)
	assert.EqualValues(t, 1, rootCount)
}

func TestDelete_ExternalProviderFailureDoesNotBlock(t *testing.T) {
	f := newEngine(t, 400)
	f.provider.failAll = true
	ctx := context.Background()
	now := time.Now().UTC()

	tenantID := f.tenantID
	require.NoError(t, f.db.Create(&identitydomain.IdentityAccount{
		ID:          f.node.Generate(),
		Email:       "admin@greenwood.example",
		Role:        identitydomain.RoleTenantAdmin,
		TenantID:    &tenantID,
		ExternalUID: "ext-1",
		Status:      identitydomain.StatusActive,
		CreatedAt:   now,
	}).Error)

	result, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedIdentityCount)
	assert.False(t, f.tenantExists(t))
}

func TestDelete_PartialFailureRetainsTenantRow(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()

	f.seedStudents(t, 10)
	require.NoError(t, f.db.Exec(`DROP TABLE notices`).Error)

	result, err := f.engine.Delete(ctx, f.tenantID)
	require.Error(t, err)

	var partial *domain.PartialDeletionError
	require.ErrorAs(t, err, &partial)
	assert.Contains(t, partial.Failed, "notices")

	assert.True(t, f.tenantExists(t))
	assert.Equal(t, 10, result.DeletedByCollection["students"])
}

func TestDelete_AuditEventsNeverCascaded(t *testing.T) {
	f := newEngine(t, 400)
	ctx := context.Background()
	now := time.Now().UTC()

	tenantID := f.tenantID
	require.NoError(t, f.db.Create(&auditdomain.AuditEvent{
		ID:        f.node.Generate(),
		EventType: auditdomain.EventTenantCreated,
		TenantID:  &tenantID,
		EntityID:  tenantID.String(),
		CreatedAt: now,
	}).Error)

	_, err := f.engine.Delete(ctx, f.tenantID)
	require.NoError(t, err)

	var kept int64
	require.NoError(t, f.db.Model(&auditdomain.AuditEvent{}).Where("tenant_id = ?", tenantID).Count(&kept).Error)
	assert.EqualValues(t, 1, kept)
}

func TestDelete_InvalidTenantID(t *testing.T) {
	f := newEngine(t, 400)

	_, err := f.engine.Delete(context.Background(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidTenantID)
}

func TestChunkIDs_BatchCeiling(t *testing.T) {
	ids := make([]snowflake.ID, 1240)
	for i := range ids {
		ids[i] = snowflake.ID(i + 1)
	}

	chunks := chunkIDs(ids, 400)
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 400)
	assert.Len(t, chunks[1], 400)
	assert.Len(t, chunks[2], 400)
	assert.Len(t, chunks[3], 40)
}

func TestChunkIDs_Empty(t *testing.T) {
	assert.Empty(t, chunkIDs(nil, 400))
}
