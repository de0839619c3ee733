package cli

import (
	"context"
	"time"

	"github.com/apmoronez/dogbot/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewServeCmd runs the metrics and health server until interrupted
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve Prometheus metrics and health probes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := deps.Engine.Ping(ctx); err != nil {
				deps.Logger.Warn("Engine not reachable at startup", zap.Error(err))
			}

			if !deps.Config.Metrics.Enabled {
				deps.Logger.Info("Metrics disabled, nothing to serve")
				<-ctx.Done()
				return nil
			}

			ms := server.NewMetricsServer(server.MetricsServerConfig{
				Port:          deps.Config.Metrics.Port,
				Path:          deps.Config.Metrics.Path,
				Gatherer:      deps.Registry,
				HealthChecker: deps.Health,
			}, deps.Metrics, deps.Logger)
			if err := ms.Start(); err != nil {
				return err
			}

			deps.Logger.Info("Dog store ready",
				zap.String("namespace", deps.Config.Store.Namespace),
				zap.String("collection", deps.Config.Store.Collection),
				zap.Int("metrics_port", deps.Config.Metrics.Port))

			<-ctx.Done()
			deps.Logger.Info("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return ms.Stop(shutdownCtx)
		},
	}
}
