// Package app composes the alert service from its runtime components.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"alertbot/internal/audit"
	"alertbot/internal/bot"
	"alertbot/internal/clock"
	"alertbot/internal/config"
	"alertbot/internal/dispatch"
	"alertbot/internal/format"
	"alertbot/internal/ingest"
	"alertbot/internal/logging"
	"alertbot/internal/metrics"
	"alertbot/internal/monitor"
	"alertbot/internal/notify"
	"alertbot/internal/report"
	containerruntime "alertbot/internal/runtime"
	"alertbot/internal/silence"
	"alertbot/internal/store"

	tgbot "github.com/go-telegram/bot"
)

const escalationActor = "telegram-user"

// Service composes runtime dependencies and process lifecycle.
// Params: config source and shared runtime components.
// Returns: runnable alert service.
type Service struct {
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func()
	store     *store.Store
	pipeline  *Pipeline
	sender    *notify.TelegramSender
	botClient *tgbot.Bot
	httpSrv   *http.Server
	natsSub   interface{ Close() error }
	scheduler *report.Scheduler
	readyFlag atomic.Bool
	clock     clock.Clock
}

// NewService builds a service instance from a config source.
// Params: config source and clock implementation.
// Returns: initialized service or setup error.
func NewService(source config.ConfigSource, clk clock.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	registry := store.New(clk.Now)
	formatter := format.New(format.Links{
		RunbookBase: cfg.Links.RunbookBase,
		Runbooks:    cfg.Links.Runbooks,
		GrafanaBase: cfg.Links.GrafanaBase,
		Dashboards:  cfg.Links.Dashboards,
	}, clk.Now)

	sender := notify.NewTelegramSender(cfg.Telegram)
	botClient := sender.Client()
	if botClient == nil {
		closeLog()
		return nil, errors.New("telegram client initialization failed")
	}

	silences := silence.New(
		cfg.Alertmanager.URL,
		cfg.Alertmanager.CreatedBy,
		time.Duration(cfg.Alertmanager.TimeoutSec)*time.Second,
		clk.Now,
	)
	auditLog := audit.NewLog(cfg.Audit.EscalationLog)

	var runtime containerruntime.ContainerRuntime
	if cfg.Runtime.Enabled {
		runtime = containerruntime.NewDockerClient(cfg.Runtime.Socket, cfg.Runtime.StopTimeoutSec)
	}

	dispatcher := dispatch.New(registry, silences, auditLog, restarterOrNil(runtime), logger, clk.Now, escalationActor)
	pipeline := NewPipeline(registry, formatter, sender, cfg.Webhook.DeadManSwitch, logger)

	hostMonitor := monitor.NewProcMonitor("/", time.Second)
	builder := report.NewBuilder(hostMonitor, runtime, clk.Now)

	handlers := bot.NewHandlers(
		dispatcher,
		registry,
		builder,
		silences,
		runtime,
		logger,
		cfg.Telegram.ChatID,
		clk.Now,
		cfg.Service.Version,
	)
	handlers.Register(botClient)

	service := &Service{
		cfg:       cfg,
		logger:    logger,
		closeLog:  closeLog,
		store:     registry,
		pipeline:  pipeline,
		sender:    sender,
		botClient: botClient,
		clock:     clk,
	}

	service.buildHTTPServer()
	if err := service.buildNATSSubscriber(); err != nil {
		service.cleanupInitResources()
		return nil, err
	}
	if cfg.Report.Enabled {
		service.scheduler = report.NewScheduler(builder, sender, *cfg.Report.Hour, cfg.Report.Minute, logger, clk.Now)
	}

	return service, nil
}

// Run starts the service lifecycle and blocks until shutdown.
// Params: root context for service runtime.
// Returns: terminal run error.
func (s *Service) Run(ctx context.Context) error {
	shutdownCtx, shutdownCancel := context.WithCancel(ctx)
	defer shutdownCancel()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.Webhook.Listen)
		err := s.httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		s.logger.Info("telegram long poll starting", "chat_id", s.cfg.Telegram.ChatID)
		s.botClient.Start(shutdownCtx)
	}()

	if s.scheduler != nil {
		go s.scheduler.Run(shutdownCtx)
	}

	s.readyFlag.Store(true)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		return s.shutdown(shutdownCancel)
	case err := <-errChan:
		_ = s.shutdown(shutdownCancel)
		return fmt.Errorf("http server failed: %w", err)
	case <-sigChan:
		return s.shutdown(shutdownCancel)
	}
}

// shutdown closes runtime resources in dependency order.
// Params: cancel function stopping the long poll and scheduler.
// Returns: first close error.
func (s *Service) shutdown(cancel context.CancelFunc) error {
	s.readyFlag.Store(false)
	cancel()

	ctx, ctxCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ctxCancel()
	var firstErr error
	markErr := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", "error", err.Error())
		markErr(fmt.Errorf("http shutdown: %w", err))
	}
	if s.natsSub != nil {
		if err := s.natsSub.Close(); err != nil {
			s.logger.Error("nats subscriber close failed", "error", err.Error())
			markErr(fmt.Errorf("nats subscriber close: %w", err))
		}
	}
	if s.closeLog != nil {
		s.closeLog()
	}
	return firstErr
}

// cleanupInitResources closes partially initialized resources.
// Params: none.
// Returns: all acquired resources closed best-effort.
func (s *Service) cleanupInitResources() {
	if s.natsSub != nil {
		_ = s.natsSub.Close()
		s.natsSub = nil
	}
	if s.httpSrv != nil {
		_ = s.httpSrv.Close()
		s.httpSrv = nil
	}
	if s.closeLog != nil {
		s.closeLog()
		s.closeLog = nil
	}
}

// buildHTTPServer wires the webhook, health, and metrics endpoints.
// Params: none.
// Returns: nothing; the server starts in Run.
func (s *Service) buildHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(s.cfg.Webhook.WebhookPath, ingest.NewHTTPHandler(s.pipeline, s.cfg.Webhook.MaxBodyBytes))
	mux.HandleFunc(s.cfg.Webhook.HealthPath, s.handleHealth)
	if s.cfg.Metrics.Enabled {
		mux.Handle(s.cfg.Metrics.Path, metrics.Handler())
	}

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Webhook.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// buildNATSSubscriber starts NATS ingest when enabled.
// Params: none.
// Returns: initialization error.
func (s *Service) buildNATSSubscriber() error {
	if !s.cfg.Ingest.NATS.Enabled {
		return nil
	}
	subscriber, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.pipeline, s.logger)
	if err != nil {
		return err
	}
	s.natsSub = subscriber
	return nil
}

// handleHealth serves the liveness document.
// Params: HTTP request/response pair.
// Returns: JSON body with store counters.
func (s *Service) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	stats := s.store.Size()
	status := "ok"
	if !s.readyFlag.Load() {
		status = "starting"
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(map[string]any{
		"status":         status,
		"version":        s.cfg.Service.Version,
		"timestamp":      s.clock.Now().Format(time.RFC3339),
		"alerts_tracked": stats.Tracked,
		"alerts_acked":   stats.Acked,
	})
}

// restarterOrNil narrows the runtime to the dispatcher interface.
// Params: container runtime, possibly nil.
// Returns: typed nil-safe restarter.
func restarterOrNil(runtime containerruntime.ContainerRuntime) dispatch.ContainerRestarter {
	if runtime == nil {
		return nil
	}
	return runtime
}
