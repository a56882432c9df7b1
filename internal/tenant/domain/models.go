// Package domain contains persistence models for the tenant registry.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	PlanFree    = "free"
	PlanTrial   = "trial"
	PlanMonthly = "monthly"
	PlanTermly  = "termly"
	PlanYearly  = "yearly"
)

// Billing status values form a small state machine; transitions are
// enforced by the billing service, never written directly by handlers.
const (
	BillingNone    = "none"
	BillingPending = "pending"
	BillingActive  = "active"
	BillingPastDue = "past_due"
)

// Tenant represents a school owning an isolated partition of data.
type Tenant struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name               string            `gorm:"type:text;not null" json:"name"`
	Code               string            `gorm:"type:text;not null;uniqueIndex:ux_tenants_code" json:"code"`
	Slug               string            `gorm:"type:text;not null" json:"slug"`
	Status             string            `gorm:"type:text;not null" json:"status"`
	Plan               string            `gorm:"type:text;not null" json:"plan"`
	PlanEndsAt         *time.Time        `json:"plan_ends_at,omitempty"`
	BillingStatus      string            `gorm:"type:text;not null;default:'none'" json:"billing_status"`
	GatewayCustomerRef string            `gorm:"type:text" json:"gateway_customer_ref"`
	LastPaymentAt      *time.Time        `json:"last_payment_at,omitempty"`
	MemberCount        int64             `gorm:"not null;default:0" json:"member_count"`
	Phone              string            `gorm:"type:text" json:"phone"`
	Address            string            `gorm:"type:text" json:"address"`
	Metadata           datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedBy          *snowflake.ID     `json:"created_by,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// TenantSettings is scoped by the tenant id itself rather than a
// tenant_id column; the deletion engine treats it as a special case.
type TenantSettings struct {
	TenantID  snowflake.ID      `gorm:"primaryKey;column:tenant_id" json:"tenant_id"`
	Settings  datatypes.JSONMap `gorm:"type:jsonb" json:"settings"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (TenantSettings) TableName() string { return "tenant_settings" }

type CreateRequest struct {
	Name      string
	Phone     string
	Address   string
	Plan      string
	CreatedBy *snowflake.ID
}

type CreateResponse struct {
	TenantID snowflake.ID `json:"tenant_id"`
	Code     string       `json:"code"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Tenant, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPlan     = errors.New("invalid_plan")
	ErrNotFound        = errors.New("tenant_not_found")
	ErrCodeExhausted   = errors.New("tenant_code_exhausted")
	ErrInvalidTenantID = errors.New("invalid_tenant_id")
)

func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanTrial, PlanMonthly, PlanTermly, PlanYearly:
		return true
	default:
		return false
	}
}
