package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/robertmedinasb/payments-pipeline/internal/activity"
	"github.com/robertmedinasb/payments-pipeline/internal/config"
	"github.com/robertmedinasb/payments-pipeline/internal/db"
	"github.com/robertmedinasb/payments-pipeline/internal/model"
	"github.com/robertmedinasb/payments-pipeline/internal/projector"
)

// Delivers the same insert event twice to show that a redelivered batch does
// not produce a second activity: the store's uniqueness constraint on
// transaction_id absorbs the duplicate.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	proj := projector.New(
		activity.NewStore(pool),
		projector.WithPolicy(projector.ParsePolicy(cfg.RedeliveryPolicy)),
	)

	event := model.ChangeEvent{
		EventID:       "550e8400-e29b-41d4-a716-446655449999",
		Kind:          model.ChangeInsert,
		TransactionID: "replay-txn-123",
		NewImage: &model.Transaction{
			TransactionID: "replay-txn-123",
			UserID:        "u1",
			Amount:        "100",
		},
	}

	log.Println("1st delivery:")
	result := proj.ProcessBatch(ctx, []model.ChangeEvent{event})
	log.Printf("failed items: %d", len(result.FailedItems))

	log.Println("2nd delivery (activity write is a no-op):")
	result = proj.ProcessBatch(ctx, []model.ChangeEvent{event})
	log.Printf("failed items: %d", len(result.FailedItems))

	log.Println("Done")
}
