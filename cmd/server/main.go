package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/gtsops/gts-workflow/internal/application/dispatcher"
	"github.com/gtsops/gts-workflow/internal/application/port"
	"github.com/gtsops/gts-workflow/internal/application/service"
	"github.com/gtsops/gts-workflow/internal/config"
	"github.com/gtsops/gts-workflow/internal/domain/trip"
	"github.com/gtsops/gts-workflow/internal/infrastructure/directory"
	"github.com/gtsops/gts-workflow/internal/infrastructure/fcm"
	"github.com/gtsops/gts-workflow/internal/infrastructure/gauge"
	"github.com/gtsops/gts-workflow/internal/infrastructure/memstore"
	httpiface "github.com/gtsops/gts-workflow/internal/interfaces/http"
	"github.com/gtsops/gts-workflow/pkg/utils"
)

func main() {
	// Local overrides for development; missing .env is fine.
	gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting GTS workflow gateway",
		zap.Int("port", cfg.Server.Port),
		zap.Bool("mock_tokens", cfg.Workflow.AllowMockTokens))

	kv := utils.NewKVLogger(logger)

	// Stores
	tokenStore := memstore.NewTokenStore()
	tripStore := memstore.NewTripStore()
	sessionStore := memstore.NewSessionStore()
	registrationStore := memstore.NewRegistrationStore()
	seedTrips(tripStore)

	// External collaborators
	users := directory.NewStaticDirectory(directory.DefaultUsers())
	gauges := gauge.NewSimulator()

	ctx := context.Background()
	var sender port.PushSender
	if cfg.Notifications.CredentialsFile != "" {
		fcmSender, err := fcm.NewSender(ctx, cfg.Notifications.CredentialsFile, kv)
		if err != nil {
			logger.Fatal("Failed to initialize FCM", zap.Error(err))
		}
		sender = fcmSender
	} else {
		logger.Info("No Firebase credentials configured, logging pushes instead")
		sender = fcm.NewLogSender(kv)
	}

	// Event dispatcher and services
	events := dispatcher.New(dispatcher.WithLogger(kv))

	tokens := service.NewTokenService(tokenStore, users, events, cfg.Workflow.AllowMockTokens, kv)
	trips := service.NewTripService(tripStore, tokens, gauges, events, kv)
	station := service.NewStationService(sessionStore, tripStore, tokens, events, kv)
	notifications := service.NewNotificationService(registrationStore, sender, kv)
	notifications.Bind(events)

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := httpiface.NewServer(cfg.Server,
		trips, station, tokens, notifications,
		tripStore, sessionStore, tokenStore,
		logger)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := events.Close(); err != nil {
		logger.Error("Dispatcher close", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

func configPath() string {
	if p := os.Getenv("GTS_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

// seedTrips loads the demo trips the mobile clients expect on a fresh start.
func seedTrips(store *memstore.TripStore) {
	for _, t := range []*trip.Trip{
		{ID: "TRIP-001", Status: trip.StatusCreated, MSID: "MS-BHOPAL-01", Vehicle: "MP09-AB-1234", DriverName: "Ramesh Kumar", DriverID: "driver-001"},
		{ID: "TRIP-002", Status: trip.StatusCreated, MSID: "MS-BHOPAL-01", Vehicle: "MP09-CD-5678", DriverName: "Suresh Patel", DriverID: "driver-002"},
	} {
		store.Seed(t)
	}
}
