package audit

import (
	"github.com/akadahq/akada/internal/audit/repository"
	"github.com/akadahq/akada/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
