package identity

import (
	"github.com/akadahq/akada/internal/identity/provider"
	"github.com/akadahq/akada/internal/identity/repository"
	"github.com/akadahq/akada/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(repository.Provide),
	fx.Provide(provider.NewLogOnly),
	fx.Provide(service.NewService),
)
