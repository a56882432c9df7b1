package repository

import (
	"context"

	"github.com/akadahq/akada/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_events (
			id, event_type, tenant_id, actor_id, entity_id,
			metadata, ip_address, user_agent, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.EventType,
		event.TenantID,
		event.ActorID,
		event.EntityID,
		event.Metadata,
		event.IPAddress,
		event.UserAgent,
		event.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditEvent, error) {
	var events []*domain.AuditEvent
	stmt := db.WithContext(ctx).Model(&domain.AuditEvent{})

	if filter.EventType != "" {
		stmt = stmt.Where("event_type = ?", filter.EventType)
	}
	if filter.TenantID != nil && *filter.TenantID != 0 {
		stmt = stmt.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndAt)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	err := stmt.Order("created_at DESC, id DESC").Limit(limit + 1).Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
