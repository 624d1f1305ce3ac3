package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/geojson-featureserver/internal/core/config"
	"github.com/mohammed-shakir/geojson-featureserver/internal/core/health"
	"github.com/mohammed-shakir/geojson-featureserver/internal/core/server"
	"github.com/mohammed-shakir/geojson-featureserver/internal/featureserver"
	"github.com/mohammed-shakir/geojson-featureserver/internal/geojson/hint"
	"github.com/mohammed-shakir/geojson-featureserver/internal/info"
	"github.com/mohammed-shakir/geojson-featureserver/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/geojson-featureserver/internal/logger"
	"github.com/mohammed-shakir/geojson-featureserver/internal/metrics"
	"github.com/mohammed-shakir/geojson-featureserver/internal/query"
	"github.com/mohammed-shakir/geojson-featureserver/internal/renderer"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/cache"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/filestore"
	"github.com/mohammed-shakir/geojson-featureserver/internal/source/redisstore"
)

// serveFlags override the environment when set.
type serveFlags struct {
	addr     string
	driver   string
	catalog  string
	logLevel string
	owner    string
}

func newServeCmd(envFiles *[]string) *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*envFiles, func(c *config.Config) {
				if cmd.Flags().Changed("addr") {
					c.Addr = f.addr
				}
				if cmd.Flags().Changed("driver") {
					c.Source.Driver = f.driver
				}
				if cmd.Flags().Changed("catalog") {
					c.Source.Catalog = f.catalog
				}
				if cmd.Flags().Changed("log-level") {
					c.LogLevel = f.logLevel
				}
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, f.owner)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (ADDR)")
	cmd.Flags().StringVar(&f.driver, "driver", "", "source driver: file|redis (SOURCE_DRIVER)")
	cmd.Flags().StringVar(&f.catalog, "catalog", "", "source catalog for the file driver (SOURCE_CATALOG)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error (LOG_LEVEL)")
	cmd.Flags().StringVar(&f.owner, "owning-system-url", os.Getenv("OWNING_SYSTEM_URL"), "owningSystemUrl reported by rest/info")
	return cmd
}

func loadConfig(envFiles []string, override func(*config.Config)) (config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return config.Config{}, fmt.Errorf("dotenv: %w", err)
	}
	cfg := config.FromEnv()
	if override != nil {
		override(&cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config, component string) *slog.Logger {
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "featureserver",
		Component: component,
	}, os.Stdout)
	return logger.NewSlog(&zl)
}

// stores is the source backend chosen by SOURCE_DRIVER.
type stores struct {
	provider source.Provider
	evicter  source.Evicter
	remover  kafkaconsumer.Remover
	checks   []health.Check
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	dc, err := cache.New(cfg.Source.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("source cache: %w", err)
	}

	switch cfg.Source.Driver {
	case config.DriverRedis:
		client, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		st, err := redisstore.NewStore(client, dc, cfg.RedisOpTimeout, log)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return &stores{
			provider: st,
			evicter:  st,
			remover:  st,
			checks:   []health.Check{{Name: "redis", Probe: st.Ready}},
			close:    func() { _ = client.Close() },
		}, nil
	default:
		st, err := filestore.Open(cfg.Source.Catalog, dc, log)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		if cfg.Source.Watch {
			if err := st.Watch(ctx); err != nil {
				return nil, fmt.Errorf("watch catalog: %w", err)
			}
		}
		return &stores{
			provider: st,
			evicter:  st,
			checks:   []health.Check{{Name: "catalog", Probe: st.Ready}},
			close:    func() {},
		}, nil
	}
}

func serve(ctx context.Context, cfg config.Config, owningSystemURL string) error {
	log := newLogger(cfg, "http")
	log.Info("starting featureserver",
		"addr", cfg.Addr, "version", Version, "driver", cfg.Source.Driver, "env", cfg.AppEnv)

	var mp *metrics.Provider
	if cfg.Metrics.Enabled {
		var err error
		mp, err = metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build:   metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate},
		})
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	checks := st.checks

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg.Invalidation),
			newLogger(cfg, "kafka_consumer"), st.evicter, st.remover)
		checks = append(checks, health.Check{Name: "kafka", Probe: consumer.Ready})
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}

	infoCfg := info.DefaultConfig()
	infoCfg.OwningSystemURL = owningSystemURL
	d := featureserver.New(
		featureserver.Options{Production: cfg.Production(), Trace: cfg.Trace()},
		featureserver.Operations{
			Info:     info.New(infoCfg),
			Query:    query.New(),
			Renderer: renderer.New(),
			Linter:   hint.New(),
		},
		newLogger(cfg, "featureserver"),
	)

	err = server.Run(ctx, cfg.Addr, log, server.Deps{
		Dispatcher: d,
		Sources:    st.provider,
		Metrics:    mp,
		Checks:     checks,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server: %w", err)
	}
	log.Info("server stopped")
	return nil
}
