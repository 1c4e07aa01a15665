package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/scribehq/scribe/cache"
	"github.com/scribehq/scribe/config"
	"github.com/scribehq/scribe/gemini"
	"github.com/scribehq/scribe/pipeline"
	"github.com/scribehq/scribe/reposcan"
	"github.com/scribehq/scribe/server"
	"github.com/scribehq/scribe/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scribe generation server",
	Long: `Run the HTTP server that hosts generation sessions. Configuration is
read from the --config file when given, with SCRIBE_* environment
variables taking precedence. The server exposes the generation stream on
/v1/generate, health on /healthz, and Prometheus metrics on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("config", "", "path to the YAML configuration file")
}

func newLogger(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "scribe").Logger(), nil
}

func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "scribe",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	store, closeStore, err := newCache(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	writer, err := newWriter(ctx, cfg.Gemini)
	if err != nil {
		return err
	}

	var scanOpts []reposcan.ScannerOption
	if len(cfg.Repos.Ignore) > 0 {
		scanOpts = append(scanOpts, reposcan.WithIgnore(cfg.Repos.Ignore...))
	}
	scanner := reposcan.New(cfg.Repos.Root, scanOpts...)

	var templates pipeline.TemplateSource
	if cfg.Templates.Dir != "" {
		templates = pipeline.NewDirTemplates(cfg.Templates.Dir)
	}

	generator := pipeline.New(scanner, templates, writer,
		pipeline.WithCache(store, cfg.Cache.TTL.Std()),
		pipeline.WithLogger(logger),
	)

	srv := server.New(server.Config{
		Logger:      logger,
		Generator:   generator,
		Verifier:    server.NewStaticVerifier(cfg.Tokens...),
		Version:     version,
		RateLimit:   cfg.RateLimit.Requests,
		RateWindow:  cfg.RateLimit.Window.Std(),
		QuotaTokens: cfg.Quota.Balance,
		QuotaWindow: cfg.Quota.Window.Std(),
		Tracing:     cfg.Telemetry.Enabled,
		Checks: map[string]server.HealthCheck{
			"cache": store.Ping,
		},
	})

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.Listen).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newCache(cfg config.CacheConfig, logger zerolog.Logger) (cache.Cache, func(), error) {
	if cfg.Backend == "redis" {
		r, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return r, func() {
			if err := r.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing redis")
			}
		}, nil
	}
	return cache.NewMemory(), func() {}, nil
}

func newWriter(ctx context.Context, cfg config.GeminiConfig) (pipeline.Writer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("a Gemini API key is required (SCRIBE_GEMINI_API_KEY)")
	}
	var opts []gemini.Option
	if cfg.Model != "" {
		opts = append(opts, gemini.WithModel(cfg.Model))
	}
	w, err := gemini.New(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing gemini writer: %w", err)
	}
	return w, nil
}
