package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Store writes audit activity records. The unique index on transaction_id
// makes redelivered batches idempotent at the persistence layer, so the
// projector never has to remember what it already wrote.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// BulkWrite inserts all records in one round trip. The whole batch succeeds
// or the first failure is reported; partial acceptance is not surfaced.
func (s *Store) BulkWrite(ctx context.Context, records []model.ActivityRecord) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO activities (activity_id, transaction_id, date)
			VALUES ($1, $2, $3)
			ON CONFLICT (transaction_id) DO NOTHING
		`, r.ActivityID, r.TransactionID, r.Date)
	}

	results := s.db.SendBatch(ctx, batch)

	var writeErr error
	for range records {
		if _, err := results.Exec(); err != nil && writeErr == nil {
			writeErr = err
		}
	}
	if err := results.Close(); err != nil && writeErr == nil {
		writeErr = err
	}

	if writeErr != nil {
		return fmt.Errorf("failed to write activities: %w", writeErr)
	}
	return nil
}
