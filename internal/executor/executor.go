package executor

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// Simulated stands in for the real payment gateway: it always charges
// successfully, mints a fresh transaction id and normalizes the amount. The
// Latency knob mimics gateway round-trip time so timeout handling can be
// exercised end to end.
type Simulated struct {
	Latency time.Duration
}

func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{Latency: latency}
}

func (s *Simulated) Execute(ctx context.Context, user model.User, amount decimal.Decimal) (model.PaymentReceipt, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return model.PaymentReceipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	receipt := model.PaymentReceipt{
		Message:       "Payment registered successfully",
		TransactionID: uuid.New().String(),
		Amount:        amount.String(),
	}

	log.Printf("[Executor] Charged %s to user %s (transaction %s)", receipt.Amount, user.UserID, receipt.TransactionID)
	return receipt, nil
}
