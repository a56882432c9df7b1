package repository

import (
	"context"
	"errors"

	"github.com/akadahq/akada/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_records (
			id, reference, tenant_id, amount, currency, status,
			gateway_response_code, channel, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Reference,
		record.TenantID,
		record.Amount,
		record.Currency,
		record.Status,
		record.GatewayResponseCode,
		record.Channel,
		record.Metadata,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, reference string) (*domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := db.WithContext(ctx).First(&record, "reference = ?", reference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrReferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) UpdateStatusCAS(ctx context.Context, db *gorm.DB, record *domain.PaymentRecord, fromStatus string) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payment_records
		 SET status = ?, gateway_response_code = ?, channel = ?,
		     paid_at = ?, verified_at = ?, updated_at = ?
		 WHERE reference = ? AND status = ?`,
		record.Status,
		record.GatewayResponseCode,
		record.Channel,
		record.PaidAt,
		record.VerifiedAt,
		record.UpdatedAt,
		record.Reference,
		fromStatus,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
