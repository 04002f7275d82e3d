package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/senyabanana/tender-engine/internal/db"
	"github.com/senyabanana/tender-engine/internal/handlers"
	"github.com/senyabanana/tender-engine/internal/lock"
	"github.com/senyabanana/tender-engine/internal/notify"
	"github.com/senyabanana/tender-engine/internal/repository"
	"github.com/senyabanana/tender-engine/internal/router"
	"github.com/senyabanana/tender-engine/internal/router/config"
	"github.com/senyabanana/tender-engine/internal/scheduler"
	"github.com/senyabanana/tender-engine/internal/services"
	"github.com/senyabanana/tender-engine/internal/settlement"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/redis/go-redis/v9"
)

type stores struct {
	tenders       repository.TenderRepository
	verifications repository.VerificationRepository
	contractors   repository.ContractorRepository
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal("cannot load config:", err)
	}

	logger := log.New(os.Stdout, "INFO: ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st stores
	switch cfg.StorageMode {
	case config.StoragePostgres:
		runDBMigration(cfg.MigrationURL, cfg.DatabaseURL())

		dbPool, err := db.InitDb(ctx, cfg)
		if err != nil {
			log.Fatalf("error initializing database: %v", err)
		}
		defer dbPool.Close()

		st = stores{
			tenders:       repository.NewPostgresTenderRepository(dbPool),
			verifications: repository.NewPostgresVerificationRepository(dbPool),
			contractors:   repository.NewPostgresContractorRepository(dbPool),
		}
	default:
		logger.Println("Using in-memory storage, data is lost on restart")
		memory := repository.NewMemoryStore()
		st = stores{tenders: memory, verifications: memory, contractors: memory}
	}

	var locker lock.Locker
	switch cfg.LockMode {
	case config.LockRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("cannot connect to redis: %v", err)
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, "tender-lock:", cfg.LockTTL, logger)
	default:
		locker = lock.NewLocalLocker(0)
	}

	var notifier notify.SettlementNotifier = &notify.NoopNotifier{Logger: logger}
	if cfg.NotifierMode == config.NotifierRabbitMQ {
		rabbit, err := notify.NewRabbitMQNotifier(cfg.RabbitMQURL, cfg.NotifierExchange, logger)
		if err != nil {
			log.Fatalf("cannot connect to rabbitmq: %v", err)
		}
		defer rabbit.Close()
		notifier = rabbit
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyTimeout, logger)

	var backend settlement.Backend = settlement.NewInstantBackend()
	if cfg.SettlementMode == config.SettlementHTTP {
		backend = settlement.NewHTTPBackend(cfg.SettlementURL, cfg.SettlementTimeout)
	}

	verificationService := services.NewVerificationService(st.verifications, st.contractors)
	tenderService := services.NewTenderService(st.tenders, verificationService, locker, dispatcher, cfg.UpdateAttempts)
	bidService := services.NewBidService(st.tenders, verificationService, locker, cfg.UpdateAttempts, cfg.EnforceMaxBids)
	paymentService := services.NewPaymentService(st.tenders, backend, locker, dispatcher, cfg.UpdateAttempts, cfg.SettlementTimeout, logger)
	contractorService := services.NewContractorService(st.contractors)

	routes := router.InitRoutes(router.Handlers{
		Tender:       handlers.NewTenderHandler(tenderService, logger, cfg.RequestTimeout),
		Bid:          handlers.NewBidHandler(bidService, logger, cfg.RequestTimeout),
		Payment:      handlers.NewPaymentHandler(paymentService, logger, cfg.RequestTimeout+cfg.SettlementTimeout),
		Verification: handlers.NewVerificationHandler(verificationService, logger, cfg.RequestTimeout),
		Contractor:   handlers.NewContractorHandler(contractorService, logger, cfg.RequestTimeout),
	}, []byte(cfg.JWTSecret), cfg.CORSOrigins)

	jobs := scheduler.NewScheduler(paymentService, time.Minute, logger)
	if err := jobs.Start(cfg.ReconcileSchedule); err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("server is listening on %s...", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown failed: %v", err)
	}
	<-jobs.Stop().Done()
}

func runDBMigration(migrationURL string, dbSource string) {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		log.Fatal("cannot create a new migrate instance", err)
	}

	if err = migration.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatal("failed to run migrate up:", err)
	}
	log.Println("db migrated successfully")
}
