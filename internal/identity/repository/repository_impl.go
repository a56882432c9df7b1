package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/akadahq/akada/internal/identity/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.IdentityAccount) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO identity_accounts (id, email, role, tenant_id, external_uid, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		strings.ToLower(strings.TrimSpace(account.Email)),
		account.Role,
		account.TenantID,
		account.ExternalUID,
		account.Status,
		account.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.IdentityAccount, error) {
	var account domain.IdentityAccount
	err := db.WithContext(ctx).First(&account, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.IdentityAccount, error) {
	var account domain.IdentityAccount
	err := db.WithContext(ctx).First(&account, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]domain.IdentityAccount, error) {
	var accounts []domain.IdentityAccount
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("role IN ?", []string{domain.RoleTenantAdmin, domain.RoleStaff}).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM identity_accounts WHERE id IN ?`, ids)
	return result.RowsAffected, result.Error
}
