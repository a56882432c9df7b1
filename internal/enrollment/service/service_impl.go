package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/akadahq/akada/internal/enrollment/domain"
	tenantdomain "github.com/akadahq/akada/internal/tenant/domain"
	usagedomain "github.com/akadahq/akada/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Counter usagedomain.Maintainer
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	counter usagedomain.Maintainer
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("enrollment.service"),
		genID:   p.GenID,
		counter: p.Counter,
	}
}

func (s *Service) CreateStudent(ctx context.Context, req domain.CreateStudentRequest) (*domain.Student, error) {
	if req.TenantID == 0 {
		return nil, domain.ErrInvalidTenant
	}
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, domain.ErrInvalidStudent
	}

	var tenant tenantdomain.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, "id = ?", req.TenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInvalidTenant
		}
		return nil, err
	}

	now := time.Now().UTC()
	student := domain.Student{
		ID:        s.genID.Generate(),
		TenantID:  req.TenantID,
		FirstName: firstName,
		LastName:  lastName,
		ClassName: strings.TrimSpace(req.ClassName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&student).Error; err != nil {
		return nil, err
	}

	if err := s.counter.OnCreate(ctx, req.TenantID); err != nil {
		s.log.Warn("member count increment failed", zap.Error(err))
	}
	return &student, nil
}

func (s *Service) DeleteStudent(ctx context.Context, tenantID, studentID snowflake.ID) error {
	if studentID == 0 {
		return domain.ErrInvalidStudent
	}

	result := s.db.WithContext(ctx).Exec(
		`DELETE FROM students WHERE id = ? AND tenant_id = ?`, studentID, tenantID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStudentNotFound
	}

	if err := s.counter.OnDelete(ctx, tenantID); err != nil {
		s.log.Warn("member count decrement failed", zap.Error(err))
	}
	return nil
}

// TransferStudent reassigns the record, then settles the two counters.
// The counter moves are deliberately not atomic with each other; see
// usage.Maintainer.OnReassign.
func (s *Service) TransferStudent(ctx context.Context, studentID, fromTenantID, toTenantID snowflake.ID) error {
	if studentID == 0 || toTenantID == 0 {
		return domain.ErrInvalidStudent
	}
	if fromTenantID == toTenantID {
		return nil
	}

	var target tenantdomain.Tenant
	if err := s.db.WithContext(ctx).First(&target, "id = ?", toTenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrInvalidTenant
		}
		return err
	}

	result := s.db.WithContext(ctx).Exec(
		`UPDATE students SET tenant_id = ?, updated_at = ? WHERE id = ? AND tenant_id = ?`,
		toTenantID, time.Now().UTC(), studentID, fromTenantID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStudentNotFound
	}

	if err := s.counter.OnReassign(ctx, fromTenantID, toTenantID); err != nil {
		s.log.Warn("member count reassignment incomplete", zap.Error(err))
	}
	return nil
}
