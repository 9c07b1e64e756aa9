package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/evently-hq/evently/config"
	httpDelivery "github.com/evently-hq/evently/internal/delivery/http"
	"github.com/evently-hq/evently/internal/infra/postgres"
	"github.com/evently-hq/evently/internal/infra/redis"
	"github.com/evently-hq/evently/internal/kafka"
	pgRepo "github.com/evently-hq/evently/internal/repository/postgres"
	redisRepo "github.com/evently-hq/evently/internal/repository/redis"
	"github.com/evently-hq/evently/internal/service"
	pkgKafka "github.com/evently-hq/evently/pkg/kafka"
	pkgLog "github.com/evently-hq/evently/pkg/logger"
	"github.com/evently-hq/evently/pkg/mailer"
	"github.com/evently-hq/evently/pkg/paystack"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})

	db, err := postgres.Connect(ctx, cfg.Postgres)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Postgres: %v", err)
	}
	defer postgres.Disconnect(db)

	redisCli, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer redis.Disconnect(redisCli)

	// Initialize Kafka producer
	var prod kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = kafka.NewProducer(kafkaSyncProd, l)
		defer prod.Close()
	}

	// Initialize repositories
	tierRepo := pgRepo.NewTierRepository(db)
	intentRepo := pgRepo.NewIntentRepository(db)
	credRepo := pgRepo.NewCredentialRepository(db)
	eventRepo := pgRepo.NewEventRepository(db)
	reconRepo := pgRepo.NewReconciliationRepository(db)
	tierCache := redisRepo.NewRedisTierCache(redisCli, l)

	// Initialize external clients
	gateway := paystack.NewClient(paystack.Config{
		BaseURL:     cfg.Paystack.BaseURL,
		SecretKey:   cfg.Paystack.SecretKey,
		CallbackURL: cfg.App.FrontendBaseURL,
		Timeout:     cfg.Paystack.Timeout,
	})
	mail := mailer.New(mailer.Config{
		Domain:  cfg.Mailgun.Domain,
		APIKey:  cfg.Mailgun.APIKey,
		From:    cfg.Mailgun.From,
		AppName: cfg.App.Name,
	})

	// Initialize services
	credSvc := service.NewCredentialService(tierRepo, eventRepo, mail, nil, prod, cfg.Scan.TokenSecret, cfg.App.Name, l)
	resSvc := service.NewReservationService(tierRepo, intentRepo, reconRepo, tierCache, credSvc, gateway, prod, cfg.App.DeliveryTimeout, l)
	redSvc := service.NewRedemptionService(credRepo, tierRepo, eventRepo, l)
	tickSvc := service.NewTicketService(tierRepo, eventRepo, tierCache, l)
	reconSvc := service.NewReconciliationService(reconRepo, l)

	handler := httpDelivery.NewHTTPHandler(resSvc, credSvc, redSvc, tickSvc, reconSvc, gateway, l)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatalf(ctx, "Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info(ctx, "Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf(ctx, "HTTP server shutdown: %v", err)
	}

	cancel()

	l.Info(ctx, "Server exited")
}
