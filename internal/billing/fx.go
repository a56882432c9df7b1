package billing

import (
	"github.com/akadahq/akada/internal/billing/gateway"
	"github.com/akadahq/akada/internal/billing/repository"
	"github.com/akadahq/akada/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(gateway.NewClient),
	fx.Provide(service.NewService),
)
