package tenant

import (
	"github.com/akadahq/akada/internal/tenant/repository"
	"github.com/akadahq/akada/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
