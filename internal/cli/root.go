// Package cli is the dogstore admin command line: dog, photo, import and
// metadata commands over the store, plus the metrics/health server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/apmoronez/dogbot/internal/config"
	"github.com/apmoronez/dogbot/internal/health"
	"github.com/apmoronez/dogbot/internal/kv"
	"github.com/apmoronez/dogbot/internal/metrics"
	"github.com/apmoronez/dogbot/internal/service"
	"github.com/apmoronez/dogbot/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Deps carries flags and the wired store for every command. Tests preset
// Engine and Logger to skip connecting to Redis.
type Deps struct {
	ConfigPath string
	Tenant     string
	Output     string
	Instance   string

	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Engine   kv.Engine

	Collections *store.Collections
	Dogs        *service.DogService
	Importer    *service.ImportService
	Health      *health.HealthChecker
}

// NewRootCmd builds the root command and its subcommands
func NewRootCmd(deps *Deps) *cobra.Command {
	if deps == nil {
		deps = &Deps{}
	}

	cmd := &cobra.Command{
		Use:           "dogstore",
		Short:         "manage the dog profile store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(deps.Output); err != nil {
				return err
			}
			return deps.wire()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if deps.Logger != nil {
				_ = deps.Logger.Sync()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	cmd.PersistentFlags().StringVarP(&deps.Tenant, "tenant", "t", "", "tenant (team) id")
	cmd.PersistentFlags().StringVarP(&deps.Output, "output", "o", outputJSON, "output format: json or yaml")
	cmd.PersistentFlags().StringVar(&deps.Instance, "instance", hostname(), "instance id label for metrics")

	cmd.AddCommand(
		NewDogCmd(deps),
		NewPhotoCmd(deps),
		NewImportCmd(deps),
		NewMetadataCmd(deps, "team", store.CollectionTeams),
		NewMetadataCmd(deps, "user", store.CollectionUsers),
		NewMetadataCmd(deps, "channel", store.CollectionChannels),
		NewServeCmd(deps),
	)

	return cmd
}

// wire loads config and builds the engine, store and services once
func (d *Deps) wire() error {
	if d.Dogs != nil {
		return nil
	}

	if d.Config == nil {
		cfg, err := config.Load(d.ConfigPath)
		if err != nil {
			return err
		}
		d.Config = cfg
	}

	if d.Logger == nil {
		logger, err := NewLogger(d.Config.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		d.Logger = logger
	}

	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
		d.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	d.Metrics = metrics.NewMetrics(d.Registry, d.Instance)

	if d.Engine == nil {
		engine, err := kv.NewRedisEngine(kv.RedisOptions{
			URL:          d.Config.Redis.URL,
			Addr:         d.Config.Redis.Addr(),
			Password:     d.Config.Redis.Password,
			DB:           d.Config.Redis.DB,
			PoolSize:     d.Config.Redis.PoolSize,
			MinIdleConns: d.Config.Redis.MinIdleConns,
			MaxRetries:   d.Config.Redis.MaxRetries,
			DialTimeout:  d.Config.Redis.DialTimeout,
			ReadTimeout:  d.Config.Redis.ReadTimeout,
			WriteTimeout: d.Config.Redis.WriteTimeout,
		}, d.Logger)
		if err != nil {
			return err
		}
		d.Engine = engine
	}
	engine := kv.NewInstrumentedEngine(d.Engine, d.Metrics)

	d.Collections = store.NewCollections(engine, d.Config.Store.Namespace)
	col, err := d.Collections.Get(d.Config.Store.Collection)
	if err != nil {
		return err
	}
	d.Dogs = service.NewDogService(col.Dogs, d.Metrics, d.Logger)
	d.Importer = service.NewImportService(d.Dogs, service.ImportConfig{
		Workers:   d.Config.Import.Workers,
		QueueSize: d.Config.Import.QueueSize,
	}, d.Metrics, d.Logger)
	d.Health = health.NewHealthChecker(engine, d.Logger)
	return nil
}

func (d *Deps) tenant() (string, error) {
	if d.Tenant == "" {
		return "", errors.New("a tenant is required (--tenant)")
	}
	return d.Tenant, nil
}

// NewLogger builds the process logger from logging configuration
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// Run executes the command line and returns the process exit code. Failures
// are reported on stderr as an ErrorResponse.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := &Deps{}
	cmd := NewRootCmd(deps)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if deps.Engine != nil {
		_ = deps.Engine.Close()
	}
	if err != nil {
		return writeError(stderr, deps.Output, deps.Logger, err)
	}
	return exitOK
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "dogstore"
	}
	return h
}
