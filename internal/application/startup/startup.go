// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BallotDesk/ballotdesk-go/internal/application/container"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/email"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/performance"
	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/persistence/database"
	"github.com/BallotDesk/ballotdesk-go/internal/presentation/http/server"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("BallotDesk starting...")

	// Step 1: Required secrets. Credential operations must never run
	// without the encryption key, so this is fatal.
	secret, err := config.RequireVoterKeySecret()
	if err != nil {
		return fmt.Errorf("startup aborted: %w", err)
	}

	// Step 2: Channeled logging
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized")

	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())

	// Step 3: Database connection and schema
	startDBTime := time.Now()
	db, err := database.Open(logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.NewTableCreator().CreateSchema(db.DB); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	logger.LogStartupPhase("database", time.Since(startDBTime), true)

	// Step 4: Email provider (optional)
	var emailService email.Service
	if config.ResendAPIKey != "" {
		emailService, err = email.NewService()
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		logger.Startup().Info("Email service initialized", "from", config.EmailFrom)
	} else {
		logger.Startup().Warn("RESEND_API_KEY not set; voter key emails and EMAIL notifications are log-only")
	}

	// Step 5: Dependency injection container
	appContainer := container.NewContainer(db, logger, perfTracker, emailService, secret)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 6: Background scheduler
	if err := appContainer.SchedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	logger.Startup().Info("Background scheduler started",
		"cleanupInterval", config.NotificationCleanupInterval,
		"flushInterval", config.ScheduledFlushInterval,
		"reminderInterval", config.ReminderSweepInterval,
		"activationInterval", config.ActivationSweepInterval)

	// Step 7: Ops feed broadcaster
	go appContainer.OpsBroadcaster.Run(ctx)
	logger.Startup().Info("Ops feed broadcaster started", "interval", config.OpsFeedInterval)

	// Step 8: HTTP server
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Stop background work before the HTTP surface so no sweep writes race
	// the connection teardown.
	appContainer.SchedulerService.Stop()
	logger.Shutdown().Info("Background scheduler stopped")

	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Closing database...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
}
