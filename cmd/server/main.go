package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortly/internal/codec"
	"shortly/internal/config"
	"shortly/internal/db"
	"shortly/internal/jobs"
	"shortly/internal/metrics"
	"shortly/internal/qr"
	"shortly/internal/server"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")

	tiers, err := config.LoadPlanTiers(cfg.PlansFile)
	if err != nil {
		log.Fatalf("Failed to load plan tiers: %v", err)
	}

	images, err := qr.NewFileStore(cfg.QRImageDir, cfg.BaseURL)
	if err != nil {
		log.Fatalf("Failed to set up QR image store: %v", err)
	}

	metrics.Init(database, codec.Encode)

	srv := server.New(cfg)
	if err := srv.RegisterRoutes(ctx, database, tiers, images); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}

	// Background destination checks
	jobsCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	if cfg.EnableHealthChecks {
		checker := jobs.NewHealthChecker(database, 10*time.Minute, 24*time.Hour)
		go checker.Start(jobsCtx)
	}

	go func() {
		if err := srv.Start(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("Server started on %s", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancelJobs()
	if err := srv.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
