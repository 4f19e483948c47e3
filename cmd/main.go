package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-hub/auth"
	"task-hub/contract"
	"task-hub/infrastructure/httpapi"
	"task-hub/infrastructure/ws"
	"task-hub/internal"
	"task-hub/realtime"
	"task-hub/realtime/workers"
	"task-hub/repositories"
	"task-hub/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Live state, delivery, and pipelines
	registry := realtime.NewRegistry(log)
	broadcaster := realtime.NewBroadcaster(log, registry)
	typing := realtime.NewTypingTracker(log, broadcaster)

	messageRepository := repositories.NewMessageRepository(db, log)
	notificationRepository := repositories.NewNotificationRepository(db, log)

	chatService := services.NewChatService(log, messageRepository, broadcaster,
		config.MaxContentLength, config.HistoryLimit)
	notificationService := services.NewNotificationService(log, notificationRepository,
		broadcaster, config.NotificationListLimit)

	gate := auth.NewGate(config.JWTSecret)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	supervised := []contract.Worker{
		workers.NewStorageGC(log, db, config.StorageGCInterval),
	}
	if config.TypingIdleTimeout > 0 {
		supervised = append(supervised, workers.NewTypingSweeper(log, typing, config.TypingIdleTimeout))
	}
	sup := workers.NewSupervisor(log)
	sup.Add(supervised...)
	go sup.Run(ctx)

	// 6. HTTP server: live endpoint + notification pull path
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(log, gate, registry, broadcaster, typing,
		chatService, notificationService, config.ConnectionBufferSize))
	httpapi.NewNotificationHandler(log, gate, notificationService).Register(mux)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown interrupted", "error", err)
	}
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
