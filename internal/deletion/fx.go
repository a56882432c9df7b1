package deletion

import (
	"github.com/akadahq/akada/internal/deletion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("deletion.engine",
	fx.Provide(service.NewService),
)
