package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-sync/internal/config"
	"github.com/ignite/audience-sync/internal/discovery"
	"github.com/ignite/audience-sync/internal/ingest"
	"github.com/ignite/audience-sync/internal/mailgun"
	"github.com/ignite/audience-sync/internal/pkg/distlock"
	"github.com/ignite/audience-sync/internal/pkg/logger"
	"github.com/ignite/audience-sync/internal/store"
	"github.com/ignite/audience-sync/internal/warehouse"
	"github.com/ignite/audience-sync/internal/worker"
)

func main() {
	log.Println("Starting IGNITE Audience Sync Worker...")

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	// Platform database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Task queue / lock backend
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Stores
	customers := store.NewCustomerStore(db)
	fields := store.NewFieldStore(db)
	sink := store.NewEventSink(db)
	staging := store.NewStagingStore(db)
	accounts := store.NewAccountStore(db)
	integrations := store.NewIntegrationStore(db)

	// Jobs
	discoveryJob := discovery.NewJob(customers, fields, cfg.Jobs.BatchSize, cfg.Discovery.ExcludedFields)
	ingestJob := ingest.NewJob(mailgun.NewClient(cfg.Mailgun), accounts, sink, staging, cfg.Jobs.BatchSize)
	syncJob := warehouse.NewJob(integrations, warehouse.NewRegistry(warehouse.NewSnowflakeConnector(cfg.Snowflake)), customers)
	queue := warehouse.NewQueue(rdb)
	enqueuer := warehouse.NewEnqueuer(integrations, queue, cfg.Jobs.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Workers
	go worker.NewDiscoveryWorker(discoveryJob, cfg.Jobs.DiscoveryInterval()).Start(ctx)
	log.Printf("Discovery worker started (interval=%s)", cfg.Jobs.DiscoveryInterval())

	go worker.NewIngestionWorker(ingestJob, cfg.Jobs.IngestionInterval()).Start(ctx)
	log.Printf("Ingestion worker started (interval=%s)", cfg.Jobs.IngestionInterval())

	go worker.NewEnqueueWorker(enqueuer, cfg.Jobs.EnqueueInterval()).Start(ctx)
	log.Printf("Enqueue worker started (interval=%s)", cfg.Jobs.EnqueueInterval())

	locks := func(key string) distlock.DistLock {
		return distlock.NewLock(rdb, db, key, worker.SyncLockTTL)
	}
	go worker.NewSyncConsumer(queue, syncJob, locks, cfg.Jobs.SyncWorkers).Start(ctx)
	log.Printf("Sync consumer started (workers=%d)", cfg.Jobs.SyncWorkers)

	go worker.NewExpirySweepWorker(db).Start(ctx)
	log.Println("Expiry sweep worker started")

	log.Println("Worker running...")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	time.Sleep(2 * time.Second)
	log.Println("Worker stopped")
}
