package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/robertmedinasb/payments-pipeline/internal/config"
	"github.com/robertmedinasb/payments-pipeline/internal/db"
	"github.com/robertmedinasb/payments-pipeline/internal/ledger"
	"github.com/robertmedinasb/payments-pipeline/internal/mq"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.FeedQueue)
	if err != nil {
		log.Fatalf("Failed to create publisher: %v", err)
	}
	defer pub.Close()

	relay := ledger.NewRelay(pool, pub, cfg.FeedPollInterval, cfg.FeedBatchSize)
	go relay.Start(ctx)

	log.Println("[Relay] Relaying change feed. To exit press CTRL+C")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("[Relay] Shutting down...")
}
