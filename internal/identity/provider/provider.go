// Package provider holds AuthProvider implementations.
package provider

import (
	"context"

	"github.com/akadahq/akada/internal/identity/domain"
	"go.uber.org/zap"
)

// LogOnly satisfies AuthProvider when no external identity system is
// wired. It records the requested deletion and succeeds.
type LogOnly struct {
	log *zap.Logger
}

func NewLogOnly(log *zap.Logger) domain.AuthProvider {
	return &LogOnly{log: log.Named("identity.provider")}
}

func (p *LogOnly) DeleteUser(ctx context.Context, externalUID string) error {
	p.log.Info("external auth principal delete requested", zap.String("external_uid", externalUID))
	return nil
}
