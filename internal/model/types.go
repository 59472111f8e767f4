package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// User is a read-only profile record owned by the user directory.
type User struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

// PaymentRequest is the transient input of one workflow run.
type PaymentRequest struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// Transaction is a committed payment. The amount is string-normalized at
// execution time and never changes afterwards.
type Transaction struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
	Amount        string `json:"amount"`
}

// PaymentReceipt is what the payment executor returns for a successful charge.
type PaymentReceipt struct {
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
}

// ActivityRecord is the audit projection of one transaction. Date is the
// projection time, not the transaction time.
type ActivityRecord struct {
	ActivityID    string    `json:"activityId"`
	TransactionID string    `json:"transactionId"`
	Date          time.Time `json:"date"`
}

// WorkflowResult is the terminal outcome of one workflow run. TransactionID
// is empty on failure.
type WorkflowResult struct {
	Succeeded     bool   `json:"-"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId,omitempty"`
}

type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeModify ChangeKind = "MODIFY"
	ChangeRemove ChangeKind = "REMOVE"
)

// ChangeEvent is one entry of the transaction ledger's change feed. NewImage
// is set for inserts only.
type ChangeEvent struct {
	EventID       string       `json:"eventId"`
	Kind          ChangeKind   `json:"kind"`
	TransactionID string       `json:"transactionId"`
	NewImage      *Transaction `json:"newImage,omitempty"`
}

// ItemFailure identifies one batch item the delivery mechanism must redeliver.
type ItemFailure struct {
	ItemID string `json:"itemIdentifier"`
}

// BatchResult is the projector's answer for one delivered batch. An empty
// FailedItems list accepts the whole batch.
type BatchResult struct {
	FailedItems []ItemFailure `json:"batchItemFailures"`
}
