// Package domain contains identity account types and the external auth
// principal contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	RoleSuperAdmin  = "super_admin"
	RoleTenantAdmin = "tenant_admin"
	RoleStaff       = "staff"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// IdentityAccount is an authenticated principal. TenantID is nil only
// for super_admin accounts.
type IdentityAccount struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email       string        `gorm:"type:text;not null;uniqueIndex:ux_identity_accounts_email" json:"email"`
	Role        string        `gorm:"type:text;not null" json:"role"`
	TenantID    *snowflake.ID `gorm:"index" json:"tenant_id,omitempty"`
	ExternalUID string        `gorm:"type:text;column:external_uid" json:"external_uid"`
	Status      string        `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (IdentityAccount) TableName() string { return "identity_accounts" }

type CreateAccountRequest struct {
	Email       string
	Role        string
	TenantID    *snowflake.ID
	ExternalUID string
}

// Service provisions identity accounts. Lookups go straight through
// the repository; creation is the only operation with rules of its own.
type Service interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*IdentityAccount, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *IdentityAccount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*IdentityAccount, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*IdentityAccount, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]IdentityAccount, error)
	DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
}

// AuthProvider removes principals from the external identity system.
// Deletion of a tenant calls this best-effort before removing the
// account rows.
type AuthProvider interface {
	DeleteUser(ctx context.Context, externalUID string) error
}

var (
	ErrNotFound       = errors.New("identity_account_not_found")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrDuplicateEmail = errors.New("duplicate_email")
)

func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleTenantAdmin, RoleStaff:
		return true
	default:
		return false
	}
}
