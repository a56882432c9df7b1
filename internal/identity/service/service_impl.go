package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/identity/domain"
	"github.com/akadahq/akada/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("identity.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.IdentityAccount, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validEmail(email) {
		return nil, domain.ErrInvalidEmail
	}
	if !domain.ValidRole(req.Role) {
		return nil, domain.ErrInvalidRole
	}
	// super_admin accounts are platform-level and never tenant-bound;
	// every other role must belong to a tenant.
	if req.Role == domain.RoleSuperAdmin && req.TenantID != nil {
		return nil, domain.ErrInvalidRole
	}
	if req.Role != domain.RoleSuperAdmin && (req.TenantID == nil || *req.TenantID == 0) {
		return nil, domain.ErrInvalidRole
	}

	account := domain.IdentityAccount{
		ID:          s.genID.Generate(),
		Email:       email,
		Role:        req.Role,
		TenantID:    req.TenantID,
		ExternalUID: strings.TrimSpace(req.ExternalUID),
		Status:      domain.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(ctx, s.db, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, err
	}

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventAccountCreated,
		TenantID:  account.TenantID,
		EntityID:  account.ID.String(),
		Metadata: map[string]any{
			"email": account.Email,
			"role":  account.Role,
		},
	})

	return &account, nil
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}
	return !strings.ContainsAny(email, " \t")
}
