package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	tracker "github.com/goliatone/go-tracker"
	"github.com/goliatone/go-tracker/activitymap"
	"github.com/goliatone/go-tracker/config"
	"github.com/goliatone/go-tracker/delivery"
	"github.com/goliatone/go-tracker/metrics"
	"github.com/goliatone/go-tracker/persistence"
	"github.com/spf13/pflag"
)

func main() {
	var (
		configDir   = pflag.String("config-dir", "configs", "directory holding common.yaml and {env}.yaml")
		env         = pflag.String("env", "", "configuration environment, defaults to APP_ENV")
		addr        = pflag.String("addr", "", "HTTP listen address, overrides server.addr")
		migrateOnly = pflag.Bool("migrate-only", false, "apply database migrations and exit")
	)
	pflag.Parse()

	cfg, err := config.Load(config.Options{Dir: *configDir, Env: *env})
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if cfg.Server.Debug {
		fmt.Println(print.MaybeHighlightJSON(cfg))
	}

	ctx := context.Background()
	if err := run(ctx, cfg, logger, *migrateOnly); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "tracker stopped", gerrors.ToSlogAttributes(err)...)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrateOnly bool) error {
	db, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := persistence.Migrate(ctx, db, logger.With("component", "migrations")); err != nil {
		return err
	}
	if migrateOnly {
		return nil
	}

	mailer, closeMailer, err := delivery.New(ctx, cfg.Mail, logger.With("component", "delivery"))
	if err != nil {
		return err
	}
	defer closeMailer()

	var mtr *metrics.Metrics
	sinks := []tracker.ActivitySink{activitymap.NewLogSink(logger.With("component", "audit"))}
	if cfg.Metrics.Enabled {
		mtr = metrics.New(cfg.Metrics.Namespace)
		sinks = append(sinks, mtr)
	}
	sink := activitymap.Tee(sinks...)

	coreLogger := logger.With("component", "tracker")
	repo := tracker.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := tracker.NewTokenServiceFromConfig(cfg.Auth, coreLogger)

	signup := tracker.NewRequestSignupHandler(repo, mailer,
		tracker.WithSignupHashCost(cfg.Auth.GetHashCost()),
		tracker.WithSignupLogger(coreLogger),
		tracker.WithSignupActivitySink(sink),
	)
	exchange := tracker.NewExchangeTokenHandler(repo, tokens,
		tracker.WithExchangeLogger(coreLogger),
		tracker.WithExchangeActivitySink(sink),
	)

	serviceOpts := []tracker.ServiceOption{
		tracker.WithServiceLogger(coreLogger),
		tracker.WithServiceActivitySink(sink),
	}

	controller := tracker.NewController(
		tracker.WithControllerLogger(logger.With("component", "http")),
		tracker.WithControllerDebug(cfg.Server.Debug),
		tracker.WithPageSize(cfg.Server.PageSize),
		tracker.WithContextKey(cfg.Auth.GetContextKey()),
		tracker.WithCommandHandlers(signup, exchange),
		tracker.WithResourceServices(
			tracker.NewUserDirectory(repo, serviceOpts...),
			tracker.NewProjectService(repo, serviceOpts...),
			tracker.NewTaskService(repo, serviceOpts...),
		),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "go-tracker",
			DisableStartupMessage: true,
			StrictRouting:         false,
			ReadTimeout:           cfg.Server.ReadTimeout,
			WriteTimeout:          cfg.Server.WriteTimeout,
		}))
		if mtr != nil {
			app.Use(mtr.Middleware())
		}
		return app
	})
	srv.Router().WithLogger(logger.With("component", "router"))

	resolve := tracker.PrincipalMiddleware(cfg.Auth, tokens, coreLogger, sink)
	api := srv.Router().Group(strings.TrimRight(cfg.Server.APIPrefix, "/"))
	tracker.RegisterRoutes(api, controller, resolve)

	errc := make(chan error, 2)

	var metricsSrv *http.Server
	if mtr != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", mtr.Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	go func() {
		logger.Info("tracker listening", "addr", cfg.Server.Addr, "prefix", cfg.Server.APIPrefix)
		if err := srv.Serve(cfg.Server.Addr); err != nil {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errc:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "go-tracker")
}
