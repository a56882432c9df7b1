// Package domain contains the billing state machine, payment records
// and the external gateway contract.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentRecord statuses. pending is the only state with outgoing
// transitions; the rest are terminal for a given reference.
const (
	StatusPending   = "pending"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPastDue   = "past_due"
)

// Channels that can report a gateway status for a reference. Both feed
// the same apply routine so they cannot diverge.
const (
	ChannelPull = "pull"
	ChannelPush = "push"
)

// PaymentRecord is keyed by its globally unique reference; the
// reference doubles as the idempotency key against the gateway.
type PaymentRecord struct {
	ID                  snowflake.ID      `gorm:"primaryKey" json:"id"`
	Reference           string            `gorm:"type:text;not null;uniqueIndex:ux_payment_records_reference" json:"reference"`
	TenantID            snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	Amount              int64             `gorm:"not null" json:"amount"`
	Currency            string            `gorm:"type:text;not null" json:"currency"`
	Status              string            `gorm:"type:text;not null" json:"status"`
	GatewayResponseCode string            `gorm:"type:text" json:"gateway_response_code"`
	Channel             string            `gorm:"type:text" json:"channel"`
	PaidAt              *time.Time        `json:"paid_at,omitempty"`
	VerifiedAt          *time.Time        `json:"verified_at,omitempty"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt           time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (PaymentRecord) TableName() string { return "payment_records" }

// CanTransition reports whether a payment record may move from one
// status to another. Identical statuses are a duplicate delivery, not
// a transition; callers treat them as a no-op before asking here.
func CanTransition(from, to string) bool {
	if from != StatusPending {
		return false
	}
	switch to {
	case StatusSuccess, StatusFailed, StatusAbandoned, StatusPastDue:
		return true
	default:
		return false
	}
}

// NextBillingStatus maps an applied payment status onto the tenant's
// billing state machine. ok is false when the signal has no valid
// effect on the current state and must be ignored.
func NextBillingStatus(current, paymentStatus string) (next string, ok bool) {
	switch paymentStatus {
	case StatusSuccess:
		// pending -> active, past_due -> active, active renewal stays
		// active. A success signal is never downgraded.
		return "active", true
	case StatusFailed, StatusAbandoned:
		switch current {
		case "pending":
			return "none", true
		case "active":
			return "past_due", true
		default:
			return current, false
		}
	case StatusPastDue:
		switch current {
		case "active", "pending":
			return "past_due", true
		default:
			return current, false
		}
	default:
		return current, false
	}
}

type InitiateRequest struct {
	TenantID snowflake.ID
	Amount   int64
	Currency string
	Metadata map[string]any
}

type InitiateResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

type VerifyResult struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	VerifyByPull(ctx context.Context, reference string) (*VerifyResult, error)
	// ReceiveWebhook authenticates the raw body against the shared
	// secret before any parsing. ErrSignatureMismatch means the caller
	// must answer 401 with no body; any other accepted delivery is
	// acknowledged even when the state transition was a no-op.
	ReceiveWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *PaymentRecord) error
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*PaymentRecord, error)
	// UpdateStatusCAS transitions the record only if its stored status
	// still equals fromStatus, returning false when a concurrent apply
	// won the race.
	UpdateStatusCAS(ctx context.Context, db *gorm.DB, record *PaymentRecord, fromStatus string) (bool, error)
}

// GatewayInitialize is the outbound initialize call.
type GatewayInitialize struct {
	Reference string
	TenantID  snowflake.ID
	Amount    int64
	Currency  string
}

type GatewayInitializeResult struct {
	AuthorizationURL string
	Reference        string
	CustomerRef      string
}

type GatewayVerifyResult struct {
	Status              string
	GatewayResponseCode string
	PaidAt              *time.Time
}

// Gateway is the external payment processor. Calls are bounded by the
// client's timeout; a stuck pending record is recovered through
// VerifyByPull, never by automatic rollback.
type Gateway interface {
	Initialize(ctx context.Context, req GatewayInitialize) (*GatewayInitializeResult, error)
	Verify(ctx context.Context, reference string) (*GatewayVerifyResult, error)
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrReferenceNotFound  = errors.New("reference_not_found")
	ErrSignatureMismatch  = errors.New("signature_mismatch")
	ErrGatewayUnavailable = errors.New("external_gateway_unavailable")
)
