// Package seed bootstraps the platform-level account a fresh install
// needs before anyone can authenticate.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/akadahq/akada/internal/identity/domain"
	"gorm.io/gorm"
)

// EnsureRootAdmin creates the super_admin account for the configured
// email. Existing accounts are left untouched, so repeated startups
// are safe.
func EnsureRootAdmin(db *gorm.DB, node *snowflake.Node, email string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing identitydomain.IdentityAccount
		err := tx.First(&existing, "email = ?", email).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		account := identitydomain.IdentityAccount{
			ID:        node.Generate(),
			Email:     email,
			Role:      identitydomain.RoleSuperAdmin,
			Status:    identitydomain.StatusActive,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Create(&account).Error
	})
}
