// Package main is the message dispatch controller entry point: it wires the
// queue, enforcer, band selector, fault manager, and monitoring surface, then
// runs until signalled.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mission-control/mdc/internal/audit"
	"github.com/mission-control/mdc/internal/auth"
	"github.com/mission-control/mdc/internal/band"
	"github.com/mission-control/mdc/internal/config"
	"github.com/mission-control/mdc/internal/dispatch"
	"github.com/mission-control/mdc/internal/fault"
	"github.com/mission-control/mdc/internal/message"
	"github.com/mission-control/mdc/internal/scheduler"
	"github.com/mission-control/mdc/internal/telemetry"
	"github.com/mission-control/mdc/internal/timing"
	"github.com/mission-control/mdc/internal/transceiver"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting message dispatch controller", zap.String("version", version))

	// Monitoring surface: SSE hub, metric registry, and the recorder that
	// feeds both.
	hub := telemetry.NewHub(cfg.HubBufferSize)
	metrics := telemetry.NewMetrics()
	recorder := telemetry.NewRecorder(hub, metrics)

	auditLog, err := audit.NewLogger(cfg.AuditDir)
	if err != nil {
		logger.Fatal("audit logger", zap.Error(err))
	}

	verifier, err := auth.NewVerifier([]byte(cfg.AuthSecret), cfg.ReplayWindow)
	if err != nil {
		logger.Fatal("verifier", zap.Error(err))
	}

	faults := fault.NewManager(recorder, cfg.WatchdogTimeout, logger)
	enforcer := timing.NewEnforcer(verifier, recorder, faults, logger)

	// Demo wiring uses the in-memory radio; a hardware adapter slots in
	// behind the same port.
	radio := transceiver.NewFake()
	selector := band.NewSelector(radio, cfg.BandSwitchTimeout, logger)
	if fb, err := cfg.ParseFallbackBand(); err == nil {
		selector.SetFallback(fb)
	}

	queue := scheduler.New(cfg.QueueCapacity, cfg.EvictOnOverflow)
	dispatcher := dispatch.New(queue, enforcer, verifier, selector, radio, faults,
		recorder, auditLog, nil, logger, dispatch.Options{SweepInterval: cfg.SweepInterval})
	dispatcher.RegisterTransmitDefault()
	registerModeExecutors(dispatcher, faults)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go faults.RunWatchdog(ctx)
	go dispatcher.Run(ctx)

	server := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: telemetry.Handler(hub, metrics, func() map[string]any {
			return map[string]any{
				"mode":       faults.Mode().String(),
				"queueDepth": queue.Len(),
				"band":       selector.Current().String(),
			}
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("monitoring surface listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("http server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	hub.Stop()
	if err := auditLog.Close(); err != nil {
		logger.Warn("audit close", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// registerModeExecutors overrides the transmit default for commands that also
// change the local operating mode before going out over RF.
func registerModeExecutors(d *dispatch.Dispatcher, faults *fault.Manager) {
	d.Register(message.ActivateSafeMode, dispatch.ExecutorFunc(func(ctx context.Context, m *message.Message) error {
		faults.EnterSafe("commanded")
		return d.Transmit(ctx, m)
	}))
	d.Register(message.EmergencyAbort, dispatch.ExecutorFunc(func(ctx context.Context, m *message.Message) error {
		faults.EnterEmergency("emergency abort commanded")
		return d.Transmit(ctx, m)
	}))
	d.Register(message.ResetSystem, dispatch.ExecutorFunc(func(ctx context.Context, m *message.Message) error {
		faults.Recover("system reset commanded")
		return d.Transmit(ctx, m)
	}))
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
