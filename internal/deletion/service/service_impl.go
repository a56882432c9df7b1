package service

import (
	"context"
	"fmt"
	"sync"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/config"
	"github.com/akadahq/akada/internal/deletion/domain"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	obsmetrics "github.com/akadahq/akada/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// collection describes one tenant-scoped table. keyColumn is the
// column whose values get batched into DELETE ... IN commits;
// tenant_settings is keyed by the tenant id itself.
type collection struct {
	table     string
	keyColumn string
}

// The fixed deletion list. Order is irrelevant for correctness, only
// the tenant row must go last. audit_events are append-only and are
// deliberately not part of the cascade.
var collections = []collection{
	{table: "students", keyColumn: "id"},
	{table: "staff_members", keyColumn: "id"},
	{table: "attendance_entries", keyColumn: "id"},
	{table: "assessments", keyColumn: "id"},
	{table: "notices", keyColumn: "id"},
	{table: "timetable_slots", keyColumn: "id"},
	{table: "payment_records", keyColumn: "id"},
	{table: "tenant_settings", keyColumn: "tenant_id"},
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	IdentityRepo identitydomain.Repository
	AuthProvider identitydomain.AuthProvider
	AuditSvc     auditdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	batchSize    int
	concurrency  int
	identityRepo identitydomain.Repository
	authProvider identitydomain.AuthProvider
	auditSvc     auditdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Engine {
	batchSize := p.Cfg.MaxBatchSize
	if batchSize <= 0 || batchSize > config.AbsoluteBatchCeiling {
		batchSize = config.AbsoluteBatchCeiling
	}
	concurrency := p.Cfg.DeleteConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("deletion.engine"),
		batchSize:    batchSize,
		concurrency:  concurrency,
		identityRepo: p.IdentityRepo,
		authProvider: p.AuthProvider,
		auditSvc:     p.AuditSvc,
		obsMetrics:   p.ObsMetrics,
	}
}

// Delete runs the three phases: identity accounts, scoped collections,
// then the tenant row. Phases one and two continue on error; only a
// failure removing the tenant row itself is surfaced as hard.
func (s *Service) Delete(ctx context.Context, tenantID snowflake.ID) (*domain.Result, error) {
	if tenantID == 0 {
		return nil, domain.ErrInvalidTenantID
	}

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventTenantDeletionStarted,
		TenantID:  &tenantID,
		EntityID:  tenantID.String(),
	})

	result := &domain.Result{
		DeletedByCollection: make(map[string]int, len(collections)),
		Failed:              make(map[string]string),
	}

	identityCount, err := s.deleteIdentityAccounts(ctx, tenantID)
	if err != nil {
		// Account rows left behind are retried on re-invocation.
		s.log.Warn("identity account cleanup incomplete", zap.Error(err))
		result.Failed["identity_accounts"] = err.Error()
	}
	result.DeletedIdentityCount = identityCount

	s.deleteCollections(ctx, tenantID, result)

	if len(result.Failed) > 0 {
		// Keep the tenant row so the remaining children stay reachable
		// for the next pass.
		s.log.Warn("tenant deletion incomplete, retaining tenant record",
			zap.Int64("tenant_id", int64(tenantID)),
			zap.Int("failed_collections", len(result.Failed)))
		return result, &domain.PartialDeletionError{Failed: result.Failed}
	}

	if err := s.db.WithContext(ctx).Exec(`DELETE FROM tenants WHERE id = ?`, tenantID).Error; err != nil {
		return result, fmt.Errorf("%w: %v", domain.ErrTenantDeleteFailed, err)
	}

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventTenantDeletionCompleted,
		TenantID:  &tenantID,
		EntityID:  tenantID.String(),
		Metadata: map[string]any{
			"deleted_identity_count": result.DeletedIdentityCount,
			"deleted_by_collection":  result.DeletedByCollection,
		},
	})

	result.Failed = nil
	return result, nil
}

func (s *Service) deleteIdentityAccounts(ctx context.Context, tenantID snowflake.ID) (int, error) {
	accounts, err := s.identityRepo.ListByTenant(ctx, s.db, tenantID)
	if err != nil {
		return 0, err
	}
	if len(accounts) == 0 {
		return 0, nil
	}

	// External principals first, best-effort. A failed IdP delete does
	// not keep the account row alive.
	for _, account := range accounts {
		if account.ExternalUID == "" {
			continue
		}
		if err := s.authProvider.DeleteUser(ctx, account.ExternalUID); err != nil {
			s.log.Warn("external auth principal delete failed",
				zap.String("external_uid", account.ExternalUID),
				zap.Error(err))
		}
	}

	ids := make([]snowflake.ID, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}

	deleted := 0
	for _, chunk := range chunkIDs(ids, s.batchSize) {
		affected, err := s.identityRepo.DeleteByIDs(ctx, s.db, chunk)
		deleted += int(affected)
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

// deleteCollections clears every scoped table, at most s.concurrency
// collections in flight at once. Batches within a collection commit
// sequentially.
func (s *Service) deleteCollections(ctx context.Context, tenantID snowflake.ID, result *domain.Result) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for _, col := range collections {
		wg.Add(1)
		sem <- struct{}{}
		go func(col collection) {
			defer wg.Done()
			defer func() { <-sem }()

			count, err := s.deleteCollection(ctx, col, tenantID)

			mu.Lock()
			defer mu.Unlock()
			result.DeletedByCollection[col.table] = count
			if err != nil {
				result.Failed[col.table] = err.Error()
			}
		}(col)
	}
	wg.Wait()

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventTenantDeletionProgress,
		TenantID:  &tenantID,
		EntityID:  tenantID.String(),
		Metadata:  map[string]any{"deleted_by_collection": result.DeletedByCollection},
	})
}

func (s *Service) deleteCollection(ctx context.Context, col collection, tenantID snowflake.ID) (int, error) {
	var keys []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT %s FROM %s WHERE tenant_id = ?`, col.keyColumn, col.table),
		tenantID,
	).Scan(&keys).Error
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted := 0
	for _, chunk := range chunkIDs(keys, s.batchSize) {
		result := s.db.WithContext(ctx).Exec(
			fmt.Sprintf(`DELETE FROM %s WHERE %s IN ?`, col.table, col.keyColumn),
			chunk,
		)
		deleted += int(result.RowsAffected)
		if result.Error != nil {
			return deleted, result.Error
		}
		if s.obsMetrics != nil {
			s.obsMetrics.DeletionBatches.WithLabelValues(col.table).Inc()
			s.obsMetrics.DeletedRecords.WithLabelValues(col.table).Add(float64(result.RowsAffected))
		}
	}
	return deleted, nil
}

func chunkIDs(ids []snowflake.ID, size int) [][]snowflake.ID {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]snowflake.ID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
