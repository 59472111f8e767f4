package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// ErrNotCommitted is returned when the ledger write was accepted by the
// database but the acknowledgment does not prove the row exists. Callers must
// treat it exactly like a write error.
var ErrNotCommitted = errors.New("ledger write not committed")

// Ledger owns the transactions table and its change feed. Every append writes
// the transaction row and one feed row in a single database transaction, so
// each committed payment emits exactly one ordered insert event.
type Ledger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// Append durably records txn and stages its insert event for the change feed.
func (l *Ledger) Append(ctx context.Context, txn model.Transaction) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op once committed.
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO transactions (transaction_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, txn.TransactionID, txn.UserID, txn.Amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	// Check the acknowledgment, not just the absence of an error.
	if tag.RowsAffected() != 1 {
		return ErrNotCommitted
	}

	eventID := uuid.New().String()
	tag, err = tx.Exec(ctx, `
		INSERT INTO transaction_feed (event_id, kind, transaction_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, eventID, model.ChangeInsert, txn.TransactionID, txn.UserID, txn.Amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert feed event: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrNotCommitted
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Get returns the committed transaction with the given id.
func (l *Ledger) Get(ctx context.Context, transactionID string) (model.Transaction, error) {
	var txn model.Transaction
	err := l.db.QueryRow(ctx, `
		SELECT transaction_id, user_id, amount
		FROM transactions
		WHERE transaction_id = $1
	`, transactionID).Scan(&txn.TransactionID, &txn.UserID, &txn.Amount)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Transaction{}, model.ErrTransactionNotFound
	}
	if err != nil {
		return model.Transaction{}, fmt.Errorf("failed to get transaction %s: %w", transactionID, err)
	}

	return txn, nil
}
