package mq

import (
	"context"
	"errors"
	"log"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// ErrRedeliveryRequested reports that the projector asked for the event to be
// delivered again.
var ErrRedeliveryRequested = errors.New("redelivery requested")

// BatchHandler is the projector's contract as seen by a delivery mechanism.
type BatchHandler interface {
	ProcessBatch(ctx context.Context, events []model.ChangeEvent) model.BatchResult
}

// InProcFeed delivers change events straight to the projector without a
// broker, one event per batch. Used by the single-binary server and by tests.
// A redelivery request surfaces as a publish error, which leaves the event in
// the feed table for the relay's next tick.
type InProcFeed struct {
	handler BatchHandler
}

func NewInProcFeed(handler BatchHandler) *InProcFeed {
	return &InProcFeed{handler: handler}
}

// Publish implements ledger.Publisher.
func (f *InProcFeed) Publish(ctx context.Context, event model.ChangeEvent) error {
	log.Printf("[InProcFeed] Delivering event %s directly to the projector", event.EventID)

	result := f.handler.ProcessBatch(ctx, []model.ChangeEvent{event})
	if len(result.FailedItems) > 0 {
		return ErrRedeliveryRequested
	}
	return nil
}
