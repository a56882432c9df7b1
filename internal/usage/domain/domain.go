// Package domain defines the tenant usage counter contract.
package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Maintainer keeps the tenant member_count aggregate consistent. All
// mutation goes through ApplyDelta; nothing else writes the counter.
type Maintainer interface {
	// ApplyDelta adjusts the counter inside a single-row transaction,
	// flooring at zero. A missing tenant is a silent no-op.
	ApplyDelta(ctx context.Context, tenantID snowflake.ID, delta int64) error

	OnCreate(ctx context.Context, tenantID snowflake.ID) error
	OnDelete(ctx context.Context, tenantID snowflake.ID) error

	// OnReassign moves a counted record between tenants. The decrement
	// and increment run in separate transactions: the two counters are
	// eventually consistent with each other, never atomically moved.
	OnReassign(ctx context.Context, fromTenantID, toTenantID snowflake.ID) error
}
