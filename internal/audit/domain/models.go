// Package domain contains the append-only audit trail types.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/akadahq/akada/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types recorded by the core components.
const (
	EventTenantCreated           = "tenant_created"
	EventTenantDeletionStarted   = "tenant_deletion_started"
	EventTenantDeletionProgress  = "tenant_deletion_collections"
	EventTenantDeletionCompleted = "tenant_deletion_completed"
	EventMemberCountAdjusted     = "member_count_adjusted"
	EventBillingInitiated        = "billing_initiated"
	EventBillingStatusApplied    = "billing_status_applied"
	EventBillingSignalIgnored    = "billing_signal_ignored"
	EventWebhookRejected         = "billing_webhook_rejected"
	EventWebhookIgnored          = "billing_webhook_ignored"
	EventAccountCreated          = "identity_account_created"
)

// KnownEventType reports whether a list filter names an event type the
// platform actually records.
func KnownEventType(eventType string) bool {
	switch eventType {
	case EventTenantCreated, EventTenantDeletionStarted,
		EventTenantDeletionProgress, EventTenantDeletionCompleted,
		EventMemberCountAdjusted, EventBillingInitiated,
		EventBillingStatusApplied, EventBillingSignalIgnored,
		EventWebhookRejected, EventWebhookIgnored, EventAccountCreated:
		return true
	default:
		return false
	}
}

// AuditEvent is immutable once written. There is no update or delete path.
type AuditEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType string            `gorm:"type:text;not null;index" json:"event_type"`
	TenantID  *snowflake.ID     `gorm:"index" json:"tenant_id,omitempty"`
	ActorID   *string           `gorm:"type:text" json:"actor_id,omitempty"`
	EntityID  string            `gorm:"type:text" json:"entity_id"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	IPAddress *string           `gorm:"type:text" json:"ip_address,omitempty"`
	UserAgent *string           `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditEvent) TableName() string { return "audit_events" }

// Entry is the caller-facing shape of an event to append.
type Entry struct {
	EventType string
	TenantID  *snowflake.ID
	ActorID   *string
	EntityID  string
	Metadata  map[string]any
}

type ListRequest struct {
	pagination.Pagination
	EventType string
	TenantID  *snowflake.ID
	StartAt   *time.Time
	EndAt     *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Events []AuditEvent `json:"events"`
}

type ListFilter struct {
	EventType string
	TenantID  *snowflake.ID
	StartAt   *time.Time
	EndAt     *time.Time
	Cursor    *Cursor
	Limit     int
}

type Cursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

// Service appends events best-effort: Append never returns an error to
// the caller. A storage failure is logged and swallowed so that an
// audit outage can never abort a tenant-lifecycle or billing operation.
type Service interface {
	Append(ctx context.Context, entry Entry)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *AuditEvent) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditEvent, error)
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)
