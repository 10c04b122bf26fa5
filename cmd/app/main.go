package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymdesk/internal/api"
	"gymdesk/internal/booking"
	"gymdesk/internal/catalog"
	"gymdesk/internal/checkin"
	"gymdesk/internal/config"
	"gymdesk/internal/db"
	"gymdesk/internal/events"
	"gymdesk/internal/logger"
	"gymdesk/internal/member"
	"gymdesk/internal/schedule"
	"gymdesk/internal/server"
	"gymdesk/internal/subscription"

	"github.com/redis/go-redis/v9"
)

// @title GymDesk API
// @version 1.0
// @description Class scheduling, bookings and QR check-in for a gym.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting GymDesk application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	if err := api.RegisterValidators(); err != nil {
		logger.Fatalf("Failed to register validators: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		publisher  events.Publisher = events.Nop{}
		nonces     checkin.NonceStore
		workerDone = make(chan struct{})
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer rdb.Close()

	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, events disabled and QR replay check off", "addr", cfg.RedisAddr, "error", err)
		close(workerDone)
	} else {
		sink := events.NewAMQPSink(cfg.RabbitMQURL)
		defer sink.Close()

		outbox := events.NewOutbox(rdb, sink)
		go func() {
			defer close(workerDone)
			outbox.Start(ctx)
		}()

		publisher = outbox
		nonces = checkin.NewRedisNonceStore(rdb)
		logger.Infof("Redis connected at %s", cfg.RedisAddr)
	}
	pingCancel()

	memberRepo := member.NewRepository(database)
	subscriptionRepo := subscription.NewRepository(database)
	catalogRepo := catalog.NewRepository(database)
	scheduleRepo := schedule.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	checkinRepo := checkin.NewRepository(database)

	memberService := member.NewService(memberRepo)
	subscriptionService := subscription.NewService(subscriptionRepo,
		subscription.WithLocation(cfg.Timezone),
	)
	catalogService := catalog.NewService(catalogRepo)
	scheduleService := schedule.NewService(scheduleRepo, catalogService, publisher)
	bookingService := booking.NewService(bookingRepo, memberService, scheduleService, publisher,
		booking.WithLocation(cfg.Timezone),
	)

	checkinOpts := []checkin.ServiceOption{
		checkin.WithLocation(cfg.Timezone),
		checkin.WithTokenTTL(cfg.QRTTL),
		checkin.WithPublisher(publisher),
	}
	if nonces != nil {
		checkinOpts = append(checkinOpts, checkin.WithNonceStore(nonces))
	}
	checkinService := checkin.NewService(checkinRepo, memberService, subscriptionRepo,
		db.NewTransactor(database), cfg.QRSecret, checkinOpts...)

	srv := server.New(cfg, server.Handlers{
		Members:       member.NewHandler(memberService),
		Subscriptions: subscription.NewHandler(subscriptionService),
		Catalog:       catalog.NewHandler(catalogService),
		Schedule:      schedule.NewHandler(scheduleService),
		Bookings:      booking.NewHandler(bookingService),
		CheckIns:      checkin.NewHandler(checkinService),
	})

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()

	// The worker must be idle before the deferred sink and redis closes run.
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("Event worker did not stop before the shutdown deadline")
	}

	logger.Info("Server stopped")
}
