package ledger

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Publisher hands a change event to the delivery mechanism. A returned error
// means the event was NOT delivered and must stay in the feed.
type Publisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// Relay drains the transaction_feed table in insertion order and pushes each
// event to the publisher. Rows are deleted only after a successful publish,
// so delivery is at-least-once. SKIP LOCKED keeps concurrent relay instances
// from claiming the same rows.
type Relay struct {
	db        *pgxpool.Pool
	publisher Publisher
	interval  time.Duration
	batchSize int
}

func NewRelay(db *pgxpool.Pool, pub Publisher, interval time.Duration, batchSize int) *Relay {
	return &Relay{
		db:        db,
		publisher: pub,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (r *Relay) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drainOnce(ctx)
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		log.Printf("[Relay] Failed to begin transaction: %v", err)
		return
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT event_id, kind, transaction_id, user_id, amount
		FROM transaction_feed
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		log.Printf("[Relay] Failed to fetch feed events: %v", err)
		return
	}

	var events []model.ChangeEvent
	for rows.Next() {
		var (
			e      model.ChangeEvent
			userID string
			amount string
		)
		if err := rows.Scan(&e.EventID, &e.Kind, &e.TransactionID, &userID, &amount); err != nil {
			rows.Close()
			log.Printf("[Relay] Failed to scan row: %v", err)
			return
		}
		if e.Kind == model.ChangeInsert {
			e.NewImage = &model.Transaction{
				TransactionID: e.TransactionID,
				UserID:        userID,
				Amount:        amount,
			}
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		log.Printf("[Relay] Failed to read feed events: %v", err)
		return
	}

	if len(events) == 0 {
		return
	}

	log.Printf("[Relay] Delivering batch of %d events", len(events))

	var delivered []string
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			log.Printf("[Relay] Failed to publish event %s: %v", event.EventID, err)
			// Stop here so feed order is preserved on the next tick.
			break
		}
		delivered = append(delivered, event.EventID)
	}

	if len(delivered) == 0 {
		return
	}

	if _, err := tx.Exec(ctx, `DELETE FROM transaction_feed WHERE event_id = ANY($1)`, delivered); err != nil {
		log.Printf("[Relay] Failed to delete delivered events: %v", err)
		// At-least-once: the rows stay and the events are republished next tick.
		return
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("[Relay] Failed to commit: %v", err)
	}
}
