package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autotube/internal/events"
	"autotube/internal/httpapi"
	"autotube/internal/logging"
	"autotube/internal/notifications"
	"autotube/internal/pipeline"
	"autotube/internal/workspace"
)

const shutdownGrace = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, bind string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if strings.TrimSpace(bind) == "" {
		bind = cfg.Paths.APIBind
	}

	ws, err := workspace.New(cfg.Paths.WorkDir)
	if err != nil {
		return err
	}
	if err := ws.Lock(); err != nil {
		return err
	}
	defer ws.Unlock() //nolint:errcheck

	store, err := openStore(signalCtx, cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	stages, err := buildStages(cfg, logger)
	if err != nil {
		return err
	}
	executor, err := buildExecutor(cfg, ws, stages, logger, pipeline.Hooks{})
	if err != nil {
		return err
	}
	sink, metricsHandler := buildMetrics(cfg, logger)

	bus := events.NewBus(logger)
	defer bus.Close()
	// Subscribers outlive the signal so terminal events from draining jobs
	// are still delivered.
	eventsCtx, stopEvents := context.WithCancel(context.Background())
	defer stopEvents()
	var watchers sync.WaitGroup
	stream, err := bus.Subscribe(eventsCtx)
	if err != nil {
		return fmt.Errorf("subscribe to job events: %w", err)
	}
	watchers.Add(1)
	go func() {
		defer watchers.Done()
		notifications.Watch(eventsCtx, stream, notifications.NewService(cfg), logger)
	}()
	if cfg.Events.RedisAddr != "" {
		client := events.NewRedisClient(cfg.Events.RedisAddr, cfg.Events.RedisPassword, cfg.Events.RedisDB)
		defer client.Close()
		forwarder := events.NewRedisForwarder(client, cfg.Events.RedisChannel, logger)
		redisStream, err := bus.Subscribe(eventsCtx)
		if err != nil {
			return fmt.Errorf("subscribe redis forwarder: %w", err)
		}
		watchers.Add(1)
		go func() {
			defer watchers.Done()
			forwarder.Run(eventsCtx, redisStream)
		}()
	}

	service, err := pipeline.NewService(store, executor,
		pipeline.WithEvents(bus),
		pipeline.WithMetrics(sink),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(service, httpapi.Options{
		Logger:  logger,
		Health:  healthChecks(stages),
		Metrics: metricsHandler,
	})
	server := &http.Server{
		Addr:              bind,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	logger.Info("gateway listening",
		logging.String("bind", bind),
		logging.String("store", cfg.Store.Backend),
		logging.String("script_provider", cfg.Script.Provider),
		logging.String("narration_provider", cfg.Narration.Provider),
		logging.String("publish_provider", cfg.Publish.Provider),
		logging.Bool("metrics", metricsHandler != nil),
	)

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownServe(logger, server, service)
	stopEvents()
	watchers.Wait()
	logger.Info("autotube stopped")
	return runErr
}

// shutdownServe stops the service before the HTTP server: canceling jobs
// lets synchronous /api/run handlers answer, so the server can drain. Each
// step gets its own grace period.
func shutdownServe(logger *slog.Logger, server *http.Server, service *pipeline.Service) {
	serviceCtx, cancelService := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelService()
	if err := service.Shutdown(serviceCtx); err != nil {
		logging.WarnWithContext(logger, "jobs still running at shutdown", "shutdown",
			logging.Error(err),
		)
	}

	serverCtx, cancelServer := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancelServer()
	if err := server.Shutdown(serverCtx); err != nil {
		logging.WarnWithContext(logger, "http server shutdown incomplete", "shutdown",
			logging.Error(err),
		)
	}
}
