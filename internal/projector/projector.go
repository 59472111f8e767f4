package projector

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

// ActivityWriter persists a batch of activity records in one bulk operation.
type ActivityWriter interface {
	BulkWrite(ctx context.Context, records []model.ActivityRecord) error
}

// RedeliveryPolicy selects how the bulk-write acknowledgment maps to the
// batch result handed back to the delivery mechanism.
type RedeliveryPolicy int

const (
	// RedeliverStrict is the corrected at-least-once contract: a failed bulk
	// write marks every retained item for redelivery, a successful one marks
	// none.
	RedeliverStrict RedeliveryPolicy = iota
	// RedeliverLegacy reproduces the inherited behavior: a successful bulk
	// write marks EVERY item of the original batch for redelivery and a
	// failed one marks none. Kept selectable until the intended semantics are
	// confirmed; see DESIGN.md.
	RedeliverLegacy
)

// ParsePolicy maps the config string to a policy, defaulting to strict.
func ParsePolicy(s string) RedeliveryPolicy {
	if s == "legacy" {
		return RedeliverLegacy
	}
	return RedeliverStrict
}

// Projector turns insert events from the transaction change feed into audit
// activity records. It keeps no state between batches; duplicate suppression
// across redeliveries is the activity store's job.
type Projector struct {
	store  ActivityWriter
	policy RedeliveryPolicy

	// Injectable for tests.
	now   func() time.Time
	newID func() string
}

type Option func(*Projector)

func WithPolicy(p RedeliveryPolicy) Option {
	return func(pr *Projector) { pr.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(pr *Projector) { pr.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(pr *Projector) { pr.newID = newID }
}

func New(store ActivityWriter, opts ...Option) *Projector {
	p := &Projector{
		store:  store,
		policy: RedeliverStrict,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessBatch projects one delivered batch. It never returns an error: a
// write failure is always converted into a batch result, because the delivery
// mechanism is the only entity that can act on it.
func (p *Projector) ProcessBatch(ctx context.Context, events []model.ChangeEvent) model.BatchResult {
	// Keep inserts only, at most one per transaction id within this batch.
	seen := make(map[string]bool, len(events))
	var retained []model.ChangeEvent
	for _, e := range events {
		if e.Kind != model.ChangeInsert || e.NewImage == nil {
			continue
		}
		if seen[e.TransactionID] {
			continue
		}
		seen[e.TransactionID] = true
		retained = append(retained, e)
	}

	if len(retained) == 0 {
		return model.BatchResult{}
	}

	records := make([]model.ActivityRecord, 0, len(retained))
	for _, e := range retained {
		records = append(records, model.ActivityRecord{
			ActivityID:    p.newID(),
			TransactionID: e.NewImage.TransactionID,
			Date:          p.now(),
		})
	}

	err := p.store.BulkWrite(ctx, records)
	if err != nil {
		log.Printf("[Projector] Bulk write of %d activities failed: %v", len(records), err)
	} else {
		log.Printf("[Projector] Wrote %d activities", len(records))
	}

	switch p.policy {
	case RedeliverLegacy:
		if err == nil {
			return failAll(events)
		}
		return model.BatchResult{}
	default:
		if err != nil {
			return failAll(retained)
		}
		return model.BatchResult{}
	}
}

func failAll(events []model.ChangeEvent) model.BatchResult {
	failures := make([]model.ItemFailure, 0, len(events))
	for _, e := range events {
		failures = append(failures, model.ItemFailure{ItemID: e.TransactionID})
	}
	return model.BatchResult{FailedItems: failures}
}
