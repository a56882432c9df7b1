package observability

import (
	"github.com/akadahq/akada/internal/observability/logger"
	"github.com/akadahq/akada/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(logger.New),
	fx.Provide(func() *metrics.Metrics {
		return metrics.New(prometheus.DefaultRegisterer)
	}),
)
