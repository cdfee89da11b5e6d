package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pair-lab/contract"
	"pair-lab/domain"
	"pair-lab/internal"
	"pair-lab/observability"
	"pair-lab/repositories"
	"pair-lab/runtime"
	"pair-lab/runtime/workers"
	"pair-lab/services"
	"pair-lab/sink"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Audit database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Engine wiring
	monitoring := observability.NewMonitoringManager(log)
	registry := runtime.NewRegistry(log)
	queue := runtime.NewQueue()
	notifier := newLogNotifier(log)
	engine := runtime.NewEngine(
		log, queue, registry, notifier, monitoring,
		config.BufferSize, config.SessionTimeout, config.EffectiveWaitingTimeout(),
	)

	archive := repositories.NewArchiveRepository(db, log)
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, engine, supervisor, runtime.Intervals{
		Pair:    config.PairInterval,
		Cleanup: config.CleanupInterval,
		Metric:  config.MetricInterval,
	})
	orchestrator.Add(sink.NewArchiveSink(archive, log))
	supervisor.Add(workers.NewHealthWorker(log, monitoring))

	pairingService := services.NewPairingService(engine)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Debug / scrape / ops endpoint
	internal.StartDebugServer(log, config.DebugPort, engine.Stats, archive, pairingService)

	// 6. gRPC health endpoint
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting gRPC health server", "address", address, "at", time.Now().UTC())
		if err := s.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Start the engine and wait for Stop or Error
	go func() {
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator failed to start: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.GracefulStop()
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// logNotifier is the boundary adapter used when no platform gateway is
// linked in: every outbound notification lands in the logs. Production
// deployments replace it with the gateway's own implementation.
type logNotifier struct {
	log *slog.Logger
}

func newLogNotifier(log *slog.Logger) logNotifier {
	return logNotifier{log: log}
}

func (n logNotifier) Notify(_ context.Context, pid domain.ParticipantID, notification contract.Notification) error {
	switch v := notification.(type) {
	case contract.PairedNotification:
		n.log.Info("notify: paired", "participant", pid, "session", v.Session, "partner", v.PartnerHandle)
	case contract.SessionEndedNotification:
		n.log.Info("notify: session ended", "participant", pid, "reason", string(v.Reason))
	case contract.NoPartnerFoundNotification:
		n.log.Info("notify: no partner found", "participant", pid)
	}
	return nil
}

func (n logNotifier) Deliver(_ context.Context, pid domain.ParticipantID, content string) error {
	n.log.Info("deliver", "participant", pid, "bytes", len(content))
	return nil
}
