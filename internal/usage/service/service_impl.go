package service

import (
	"context"
	"time"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	obsmetrics "github.com/akadahq/akada/internal/observability/metrics"
	"github.com/akadahq/akada/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Maintainer {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("usage.service"),
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

// ApplyDelta runs the read-modify-write as one guarded statement inside
// a transaction scoped to the tenant row. The CASE floor keeps the
// counter non-negative regardless of interleaving; a missing tenant
// matches zero rows and the call returns without error.
func (s *Service) ApplyDelta(ctx context.Context, tenantID snowflake.ID, delta int64) error {
	if tenantID == 0 || delta == 0 {
		return nil
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE tenants
			 SET member_count = CASE
				WHEN member_count + ? < 0 THEN 0
				ELSE member_count + ?
			 END,
			 updated_at = ?
			 WHERE id = ?`,
			delta,
			delta,
			time.Now().UTC(),
			tenantID,
		)
		if result.Error != nil {
			return result.Error
		}
		affected = result.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}

	if affected == 0 {
		s.log.Debug("usage counter delta skipped, tenant missing",
			zap.Int64("tenant_id", int64(tenantID)))
		return nil
	}

	if s.obsMetrics != nil {
		s.obsMetrics.CounterDeltas.Inc()
	}
	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventMemberCountAdjusted,
		TenantID:  &tenantID,
		EntityID:  tenantID.String(),
		Metadata:  map[string]any{"delta": delta},
	})
	return nil
}

func (s *Service) OnCreate(ctx context.Context, tenantID snowflake.ID) error {
	return s.ApplyDelta(ctx, tenantID, +1)
}

func (s *Service) OnDelete(ctx context.Context, tenantID snowflake.ID) error {
	return s.ApplyDelta(ctx, tenantID, -1)
}

// OnReassign decrements the old tenant and increments the new one in
// separate transactions. If the second write fails the two counters
// disagree until a later correction; callers accept this window.
func (s *Service) OnReassign(ctx context.Context, fromTenantID, toTenantID snowflake.ID) error {
	if fromTenantID == toTenantID {
		return nil
	}
	if err := s.ApplyDelta(ctx, fromTenantID, -1); err != nil {
		return err
	}
	return s.ApplyDelta(ctx, toTenantID, +1)
}
