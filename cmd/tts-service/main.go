// main package for the dialogue-tts service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/dialogue-tts/internal/batch"
	"github.com/book-expert/dialogue-tts/internal/config"
	"github.com/book-expert/dialogue-tts/internal/mediastore"
	"github.com/book-expert/dialogue-tts/internal/server"
	"github.com/book-expert/dialogue-tts/internal/tts"
	"github.com/book-expert/dialogue-tts/internal/worker"
)

const (
	healthCheckTimeout   = 10 * time.Second
	shutdownTimeout      = 15 * time.Second
	readHeaderTimeout    = 10 * time.Second
	defaultListenAddress = ":8080"
	defaultEngineTimeout = 300
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "dialogue-tts.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator. A broken or
	// incomplete configuration must keep the process from serving.
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Initialize the final logger based on the loaded configuration.
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, finalLog)
}

func serve(cfg *config.Config, log *logger.Logger) error {
	registries, err := cfg.Registries()
	if err != nil {
		log.Error("Failed to build registries: %v", err)

		return err
	}

	engineTimeout := cfg.Engine.TimeoutSeconds
	if engineTimeout <= 0 {
		engineTimeout = defaultEngineTimeout
	}

	engineClient := tts.NewClient(cfg.Engine.BaseURL, time.Duration(engineTimeout)*time.Second)
	checkEngineHealth(engineClient, log)

	store := mediastore.New(cfg.Paths.MediaRoot, cfg.Paths.MediaNamespace)
	generator := tts.NewGenerator(
		registries,
		tts.NewSerialSynthesizer(engineClient),
		store,
		cfg.Paths.VoiceRefDir,
		log,
	)
	processor := batch.NewProcessor(generator, store, log)

	controller := &server.Controller{
		Generator:  generator,
		Processor:  processor,
		Registries: registries,
		Store:      store,
		Log:        log,
	}

	listenAddress := cfg.HTTP.ListenAddress
	if listenAddress == "" {
		listenAddress = defaultListenAddress
	}

	httpServer := &http.Server{
		Addr:              listenAddress,
		Handler:           server.NewRouter(controller),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startWorker(ctx, cfg, generator, log)

	serverErrors := make(chan error, 1)

	go func() {
		log.System("Dialogue TTS service listening on %s", listenAddress)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.System("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// checkEngineHealth fails fast in the logs when the engine is down but does
// not abort startup: the engine may simply come up after this service.
func checkEngineHealth(engineClient *tts.Client, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	err := engineClient.HealthCheck(ctx)
	if err != nil {
		log.Warn("Synthesis engine health check failed: %v", err)

		return
	}

	log.Info("Synthesis engine is healthy")
}

// startWorker connects the NATS job intake when configured. The worker shares
// the serialized generator with the HTTP surface, so jobs from both paths
// queue on the same engine lock.
func startWorker(ctx context.Context, cfg *config.Config, generator *tts.Generator, log *logger.Logger) {
	if cfg.NATS.URL == "" {
		log.Info("NATS intake disabled (no url configured)")

		return
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		log.Error("Failed to connect to NATS at %s: %v", cfg.NATS.URL, err)

		return
	}

	natsWorker, err := worker.NewNatsWorker(
		natsConnection,
		cfg.NATS.DialogueLineSubject,
		cfg.NATS.AudioCreatedSubject,
		generator,
		log,
	)
	if err != nil {
		log.Error("Failed to create NATS worker: %v", err)

		return
	}

	go func() {
		defer natsConnection.Close()

		runErr := natsWorker.Run(ctx)
		if runErr != nil {
			log.Error("NATS worker stopped: %v", runErr)
		}
	}()

	log.System("Listening for dialogue jobs on subject: %s", cfg.NATS.DialogueLineSubject)
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
