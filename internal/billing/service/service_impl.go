package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/billing/domain"
	"github.com/akadahq/akada/internal/config"
	obsmetrics "github.com/akadahq/akada/internal/observability/metrics"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Cfg        config.Config
	Repo       domain.Repository
	Gateway    domain.Gateway
	AuditSvc   auditdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	gateway       domain.Gateway
	webhookSecret string
	auditSvc      auditdomain.Service
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("billing.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		gateway:       p.Gateway,
		webhookSecret: p.Cfg.GatewayWebhookSecret,
		auditSvc:      p.AuditSvc,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "NGN"
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	var tenant tenantdomain.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", req.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidTenant
		}
		return nil, err
	}

	reference := newReference()

	initResult, err := s.gateway.Initialize(ctx, domain.GatewayInitialize{
		Reference: reference,
		TenantID:  req.TenantID,
		Amount:    req.Amount,
		Currency:  currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	now := time.Now().UTC()
	record := domain.PaymentRecord{
		ID:        s.genID.Generate(),
		Reference: reference,
		TenantID:  req.TenantID,
		Amount:    req.Amount,
		Currency:  currency,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	metadata := datatypes.JSONMap{"tenant_id": req.TenantID.String()}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	record.Metadata = metadata

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &record); err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE tenants
			 SET billing_status = ?, gateway_customer_ref = ?, updated_at = ?
			 WHERE id = ?`,
			tenantdomain.BillingPending,
			initResult.CustomerRef,
			now,
			req.TenantID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventBillingInitiated,
		TenantID:  &req.TenantID,
		EntityID:  reference,
		Metadata: map[string]any{
			"reference": reference,
			"amount":    req.Amount,
			"currency":  currency,
		},
	})

	return &domain.InitiateResponse{
		AuthorizationURL: initResult.AuthorizationURL,
		Reference:        reference,
	}, nil
}

func (s *Service) VerifyByPull(ctx context.Context, reference string) (*domain.VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrInvalidReference
	}

	// The record must exist before asking the gateway: pull is a
	// reconciliation path for references we initiated, not discovery.
	if _, err := s.repo.FindByReference(ctx, s.db, reference); err != nil {
		return nil, err
	}

	verified, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}

	status := mapGatewayStatus(verified.Status)
	if status == "" {
		s.log.Warn("gateway returned unknown status on verify",
			zap.String("reference", reference),
			zap.String("status", verified.Status))
		record, err := s.repo.FindByReference(ctx, s.db, reference)
		if err != nil {
			return nil, err
		}
		return &domain.VerifyResult{Reference: reference, Status: record.Status}, nil
	}

	final, err := s.applyGatewayStatus(ctx, reference, status, verified.GatewayResponseCode, verified.PaidAt, domain.ChannelPull)
	if err != nil {
		return nil, err
	}
	return &domain.VerifyResult{Reference: reference, Status: final}, nil
}

// webhookEnvelope is the push payload shape. The tenant id travels in
// the charge metadata the initiate call attached.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string         `json:"reference"`
		Status          string         `json:"status"`
		Amount          int64          `json:"amount"`
		Currency        string         `json:"currency"`
		GatewayResponse string         `json:"gateway_response"`
		PaidAt          *time.Time     `json:"paid_at"`
		Metadata        map[string]any `json:"metadata"`
	} `json:"data"`
}

func (s *Service) ReceiveWebhook(ctx context.Context, rawBody []byte, signatureHeader string) error {
	if !s.verifySignature(rawBody, signatureHeader) {
		if s.obsMetrics != nil {
			s.obsMetrics.WebhookRejected.Inc()
		}
		s.auditSvc.Append(ctx, auditdomain.Entry{
			EventType: auditdomain.EventWebhookRejected,
			EntityID:  "webhook",
			Metadata:  map[string]any{"reason": "signature_mismatch"},
		})
		return domain.ErrSignatureMismatch
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		// Authentic but unparseable: acknowledge so the gateway stops
		// retrying a payload we will never understand.
		s.log.Warn("authenticated webhook with malformed body", zap.Error(err))
		return nil
	}

	reference := strings.TrimSpace(envelope.Data.Reference)
	tenantID := tenantIDFromMetadata(envelope.Data.Metadata)
	if reference == "" || tenantID == 0 {
		s.auditSvc.Append(ctx, auditdomain.Entry{
			EventType: auditdomain.EventWebhookIgnored,
			EntityID:  reference,
			Metadata:  map[string]any{"reason": "missing_reference_or_tenant", "event": envelope.Event},
		})
		return nil
	}

	status := mapWebhookEvent(envelope.Event, envelope.Data.Status)
	if status == "" {
		s.auditSvc.Append(ctx, auditdomain.Entry{
			EventType: auditdomain.EventWebhookIgnored,
			TenantID:  &tenantID,
			EntityID:  reference,
			Metadata:  map[string]any{"reason": "unhandled_event", "event": envelope.Event},
		})
		return nil
	}

	_, err := s.applyGatewayStatus(ctx, reference, status, envelope.Data.GatewayResponse, envelope.Data.PaidAt, domain.ChannelPush)
	if errors.Is(err, domain.ErrReferenceNotFound) {
		// Push cannot fabricate a record the initiate path never
		// wrote. Acknowledge and record the orphan delivery.
		s.auditSvc.Append(ctx, auditdomain.Entry{
			EventType: auditdomain.EventWebhookIgnored,
			TenantID:  &tenantID,
			EntityID:  reference,
			Metadata:  map[string]any{"reason": "unknown_reference", "event": envelope.Event},
		})
		return nil
	}
	return err
}

// applyGatewayStatus is the single reconciliation routine shared by
// the pull and push channels. It is idempotent: duplicate deliveries
// and out-of-order signals leave the record and tenant untouched.
func (s *Service) applyGatewayStatus(
	ctx context.Context,
	reference string,
	status string,
	gatewayResponseCode string,
	paidAt *time.Time,
	channel string,
) (string, error) {

	var (
		finalStatus string
		applied     bool
		tenantID    snowflake.ID
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := s.repo.FindByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		tenantID = record.TenantID
		finalStatus = record.Status

		if record.Status == status {
			// Duplicate delivery of a status already applied.
			return nil
		}
		if !domain.CanTransition(record.Status, status) {
			s.log.Info("ignoring billing signal that violates the transition table",
				zap.String("reference", reference),
				zap.String("from", record.Status),
				zap.String("to", status),
				zap.String("channel", channel))
			s.auditSvc.Append(ctx, auditdomain.Entry{
				EventType: auditdomain.EventBillingSignalIgnored,
				TenantID:  &tenantID,
				EntityID:  reference,
				Metadata: map[string]any{
					"from":    record.Status,
					"to":      status,
					"channel": channel,
				},
			})
			return nil
		}

		now := time.Now().UTC()
		previous := record.Status
		record.Status = status
		record.GatewayResponseCode = gatewayResponseCode
		record.Channel = channel
		record.UpdatedAt = now
		record.VerifiedAt = &now
		if status == domain.StatusSuccess {
			if paidAt != nil {
				record.PaidAt = paidAt
			} else {
				record.PaidAt = &now
			}
		}

		won, err := s.repo.UpdateStatusCAS(ctx, tx, record, previous)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent delivery applied first; this one is a no-op.
			return nil
		}
		applied = true
		finalStatus = status

		return s.applyTenantBilling(ctx, tx, record, now)
	})
	if err != nil {
		return "", err
	}

	if applied {
		if s.obsMetrics != nil {
			s.obsMetrics.PaymentEvents.WithLabelValues(channel, status).Inc()
		}
		s.auditSvc.Append(ctx, auditdomain.Entry{
			EventType: auditdomain.EventBillingStatusApplied,
			TenantID:  &tenantID,
			EntityID:  reference,
			Metadata: map[string]any{
				"status":  status,
				"channel": channel,
			},
		})
	}
	return finalStatus, nil
}

// applyTenantBilling updates the tenant's billing sub-state in the
// same transaction as the payment record, so a success can never be
// recorded while the tenant stays unbilled.
func (s *Service) applyTenantBilling(ctx context.Context, tx *gorm.DB, record *domain.PaymentRecord, now time.Time) error {
	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).First(&tenant, "id = ?", record.TenantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Tenant already destroyed; the payment record keeps its
		// terminal status for bookkeeping.
		return nil
	}
	if err != nil {
		return err
	}

	next, ok := domain.NextBillingStatus(tenant.BillingStatus, record.Status)
	if !ok {
		s.log.Info("billing signal has no effect on tenant state",
			zap.String("reference", record.Reference),
			zap.String("tenant_billing", tenant.BillingStatus),
			zap.String("payment_status", record.Status))
		return nil
	}

	if record.Status == domain.StatusSuccess {
		planEnds := planEndsAt(tenant.Plan, now)
		return tx.WithContext(ctx).Exec(
			`UPDATE tenants
			 SET billing_status = ?, last_payment_at = ?, plan_ends_at = ?, updated_at = ?
			 WHERE id = ?`,
			next, record.PaidAt, planEnds, now, tenant.ID,
		).Error
	}

	return tx.WithContext(ctx).Exec(
		`UPDATE tenants SET billing_status = ?, updated_at = ? WHERE id = ?`,
		next, now, tenant.ID,
	).Error
}

func (s *Service) verifySignature(rawBody []byte, signatureHeader string) bool {
	if s.webhookSecret == "" {
		return false
	}
	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(s.webhookSecret))
	_, _ = mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}

// referenceEntropy is shared across calls: the locked monotonic reader
// keeps ULIDs distinct even for calls within the same millisecond.
var referenceEntropy = ulid.DefaultEntropy()

// newReference generates the globally unique idempotency key before
// the first gateway call.
func newReference() string {
	return "AKD-" + ulid.MustNew(ulid.Now(), referenceEntropy).String()
}

func mapGatewayStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return domain.StatusSuccess
	case "failed":
		return domain.StatusFailed
	case "abandoned":
		return domain.StatusAbandoned
	case "past_due":
		return domain.StatusPastDue
	case "pending", "ongoing":
		return domain.StatusPending
	default:
		return ""
	}
}

func mapWebhookEvent(event, dataStatus string) string {
	switch strings.ToLower(strings.TrimSpace(event)) {
	case "charge.success":
		return domain.StatusSuccess
	case "charge.failed":
		return domain.StatusFailed
	case "charge.abandoned":
		return domain.StatusAbandoned
	case "invoice.payment_failed", "subscription.past_due":
		return domain.StatusPastDue
	case "charge.updated":
		return mapGatewayStatus(dataStatus)
	default:
		return ""
	}
}

func tenantIDFromMetadata(metadata map[string]any) snowflake.ID {
	if metadata == nil {
		return 0
	}
	raw, ok := metadata["tenant_id"]
	if !ok {
		return 0
	}
	switch typed := raw.(type) {
	case string:
		id, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err != nil {
			return 0
		}
		return id
	case float64:
		return snowflake.ID(int64(typed))
	case int64:
		return snowflake.ID(typed)
	default:
		return 0
	}
}

func planEndsAt(plan string, from time.Time) *time.Time {
	var d time.Duration
	switch plan {
	case tenantdomain.PlanMonthly:
		d = 30 * 24 * time.Hour
	case tenantdomain.PlanTermly:
		d = 120 * 24 * time.Hour
	case tenantdomain.PlanYearly:
		d = 365 * 24 * time.Hour
	case tenantdomain.PlanTrial:
		d = 14 * 24 * time.Hour
	default:
		return nil
	}
	ends := from.Add(d)
	return &ends
}
