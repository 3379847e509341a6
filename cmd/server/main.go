package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drivelane/service-crm/internal/api"
	"github.com/drivelane/service-crm/internal/carrier"
	"github.com/drivelane/service-crm/internal/compose"
	"github.com/drivelane/service-crm/internal/config"
	"github.com/drivelane/service-crm/internal/llm"
	"github.com/drivelane/service-crm/internal/mailer"
	"github.com/drivelane/service-crm/internal/repository/postgres"
	"github.com/drivelane/service-crm/internal/service/analytics"
	"github.com/drivelane/service-crm/internal/service/dispatch"
	"github.com/drivelane/service-crm/internal/service/engagement"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it, analytics summaries are computed
	// on every request.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Redis unavailable, analytics caching disabled: %v", err)
			redisClient = nil
		}
		cancel()
	}

	customers := postgres.NewCustomerRepo(db)
	insights := postgres.NewInsightRepo(db)
	ledger := postgres.NewLedgerRepo(db)
	engagementRepo := postgres.NewEngagementRepo(db)
	analyticsRepo := postgres.NewAnalyticsRepo(db)

	composer := compose.New(llm.NewClient(cfg.OpenAI))
	dispatchSvc := dispatch.NewService(
		customers, insights, ledger,
		carrier.NewClient(cfg.Carrier),
		mailer.NewSESMailer(cfg.SES),
		composer,
		cfg.Links,
	)
	ingest := engagement.NewIngest(engagementRepo)
	tracker := engagement.NewTracker(engagementRepo, customers)
	analyticsSvc := analytics.NewService(analyticsRepo,
		analytics.NewRedisCache(redisClient, cfg.Redis.TTL()))

	handlers := api.NewHandlers(dispatchSvc, ingest, tracker, analyticsSvc)
	server := api.NewServer(cfg.Server, cfg.Links, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Server stopped")
}
