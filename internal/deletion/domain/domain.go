// Package domain defines the cascading tenant deletion contract.
package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Result reports what a deletion pass removed. Re-invoking on an
// already-clean tenant yields all-zero counts and no error.
type Result struct {
	DeletedIdentityCount int            `json:"deleted_identity_count"`
	DeletedByCollection  map[string]int `json:"deleted_by_collection"`
	Failed               map[string]string `json:"failed,omitempty"`
}

// Engine irreversibly removes every record scoped to a tenant. It is
// the only component permitted to delete the tenant row, and does so
// last: partial cleanup with the tenant row intact is recoverable by
// re-invocation, the reverse is not.
type Engine interface {
	Delete(ctx context.Context, tenantID snowflake.ID) (*Result, error)
}

// PartialDeletionError reports collections that could not be fully
// cleared. The tenant row is retained when this is returned.
type PartialDeletionError struct {
	Failed map[string]string
}

func (e *PartialDeletionError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for name := range e.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("partial deletion, failed collections: %s", strings.Join(names, ", "))
}

var (
	ErrInvalidTenantID    = errors.New("invalid_tenant_id")
	ErrTenantDeleteFailed = errors.New("tenant_record_delete_failed")
)
