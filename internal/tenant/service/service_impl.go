package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode"

	auditdomain "github.com/akadahq/akada/internal/audit/domain"
	"github.com/akadahq/akada/internal/tenant/domain"
	"github.com/akadahq/akada/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeWidth = 6
	// One base attempt, then numeric suffixes 1..9, then a single
	// random-suffix attempt. The loop always terminates.
	maxSuffixAttempts = 9
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
		log:      p.Log.Named("tenant.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.CreateResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !domain.ValidPlan(req.Plan) {
		return nil, domain.ErrInvalidPlan
	}

	now := time.Now().UTC()
	tenant := domain.Tenant{
		ID:            s.genID.Generate(),
		Name:          name,
		Slug:          slug.Make(name),
		Status:        domain.StatusActive,
		Plan:          req.Plan,
		BillingStatus: domain.BillingNone,
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		CreatedBy:     req.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	code, err := s.insertWithUniqueCode(ctx, &tenant, baseCode(name))
	if err != nil {
		return nil, err
	}

	s.auditSvc.Append(ctx, auditdomain.Entry{
		EventType: auditdomain.EventTenantCreated,
		TenantID:  &tenant.ID,
		ActorID:   actorPointer(req.CreatedBy),
		EntityID:  tenant.ID.String(),
		Metadata: map[string]any{
			"name": name,
			"code": code,
			"plan": req.Plan,
		},
	})

	return &domain.CreateResponse{TenantID: tenant.ID, Code: code}, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	if id == 0 {
		return nil, domain.ErrInvalidTenantID
	}
	return s.repo.FindByID(ctx, s.db, id)
}

// insertWithUniqueCode attempts the base code, then bounded numeric
// suffixes, then one random suffix. Collisions surface through the
// storage layer's unique constraint rather than a pre-read, so two
// concurrent creates with the same name cannot race past each other.
func (s *Service) insertWithUniqueCode(ctx context.Context, tenant *domain.Tenant, base string) (string, error) {
	candidates := make([]string, 0, maxSuffixAttempts+2)
	candidates = append(candidates, base)
	for i := 1; i <= maxSuffixAttempts; i++ {
		candidates = append(candidates, fmt.Sprintf("%s%d", base, i))
	}
	candidates = append(candidates, fmt.Sprintf("%s%04d", base, rand.Intn(10000)))

	for _, code := range candidates {
		tenant.Code = code
		err := s.repo.Insert(ctx, s.db, tenant)
		if err == nil {
			return code, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return "", err
		}
		s.log.Debug("tenant code collision, retrying", zap.String("code", code))
	}

	return "", domain.ErrCodeExhausted
}

// baseCode derives the human-readable code: alphanumerics only,
// uppercased, truncated to a fixed width.
func baseCode(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() >= codeWidth {
			break
		}
	}
	if b.Len() == 0 {
		return "TENANT"
	}
	return b.String()
}

func actorPointer(id *snowflake.ID) *string {
	if id == nil || *id == 0 {
		return nil
	}
	value := id.String()
	return &value
}
