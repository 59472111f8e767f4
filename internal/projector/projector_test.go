package projector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/robertmedinasb/payments-pipeline/internal/model"
)

var errFakeWrite = errors.New("fake bulk write error")

// fakeWriter implements ActivityWriter for testing
type fakeWriter struct {
	WriteFunc func(ctx context.Context, records []model.ActivityRecord) error
	CallCount int
	Written   [][]model.ActivityRecord
}

func (f *fakeWriter) BulkWrite(ctx context.Context, records []model.ActivityRecord) error {
	f.CallCount++
	f.Written = append(f.Written, records)

	if f.WriteFunc != nil {
		return f.WriteFunc(ctx, records)
	}
	return nil
}

func insertEvent(txnID string) model.ChangeEvent {
	return model.ChangeEvent{
		EventID:       "evt-" + txnID,
		Kind:          model.ChangeInsert,
		TransactionID: txnID,
		NewImage: &model.Transaction{
			TransactionID: txnID,
			UserID:        "u1",
			Amount:        "100",
		},
	}
}

func newTestProjector(w *fakeWriter, opts ...Option) *Projector {
	n := 0
	base := []Option{
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("activity-%d", n) }),
	}
	return New(w, append(base, opts...)...)
}

func TestProcessBatch_OneRecordPerInsert(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	events := []model.ChangeEvent{insertEvent("t1"), insertEvent("t2"), insertEvent("t3")}
	result := p.ProcessBatch(context.Background(), events)

	if len(result.FailedItems) != 0 {
		t.Errorf("expected no failed items, got %d", len(result.FailedItems))
	}
	if w.CallCount != 1 {
		t.Fatalf("expected exactly one bulk write, got %d", w.CallCount)
	}
	records := w.Written[0]
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	seen := make(map[string]bool)
	for _, r := range records {
		if r.ActivityID == "" {
			t.Error("record is missing an activity id")
		}
		if seen[r.TransactionID] {
			t.Errorf("transaction %s projected twice", r.TransactionID)
		}
		seen[r.TransactionID] = true
	}
	for _, id := range []string{"t1", "t2", "t3"} {
		if !seen[id] {
			t.Errorf("missing record for transaction %s", id)
		}
	}
}

func TestProcessBatch_FiltersNonInsertEvents(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	events := []model.ChangeEvent{
		insertEvent("t1"),
		{EventID: "evt-m", Kind: model.ChangeModify, TransactionID: "t2"},
		{EventID: "evt-r", Kind: model.ChangeRemove, TransactionID: "t3"},
	}
	result := p.ProcessBatch(context.Background(), events)

	if len(result.FailedItems) != 0 {
		t.Errorf("expected no failed items, got %d", len(result.FailedItems))
	}
	if len(w.Written) != 1 || len(w.Written[0]) != 1 {
		t.Fatalf("expected a single record for the single insert, got %+v", w.Written)
	}
	if w.Written[0][0].TransactionID != "t1" {
		t.Errorf("expected record for t1, got %s", w.Written[0][0].TransactionID)
	}
}

func TestProcessBatch_DedupsWithinBatch(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	events := []model.ChangeEvent{insertEvent("t1"), insertEvent("t1"), insertEvent("t2")}
	p.ProcessBatch(context.Background(), events)

	if len(w.Written[0]) != 2 {
		t.Fatalf("expected 2 records after dedup, got %d", len(w.Written[0]))
	}
}

func TestProcessBatch_EmptyBatchSkipsWrite(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	for name, events := range map[string][]model.ChangeEvent{
		"empty":           {},
		"non-insert only": {{EventID: "evt-m", Kind: model.ChangeModify, TransactionID: "t1"}},
	} {
		t.Run(name, func(t *testing.T) {
			result := p.ProcessBatch(context.Background(), events)
			if len(result.FailedItems) != 0 {
				t.Errorf("expected empty failed-item list, got %d", len(result.FailedItems))
			}
		})
	}
	if w.CallCount != 0 {
		t.Errorf("no bulk write should happen for empty batches, got %d", w.CallCount)
	}
}

func TestProcessBatch_StampsProjectionTime(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProjector(w)

	p.ProcessBatch(context.Background(), []model.ChangeEvent{insertEvent("t1")})

	want := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if got := w.Written[0][0].Date; !got.Equal(want) {
		t.Errorf("record date %v, want projection time %v", got, want)
	}
}

func TestProcessBatch_StrictPolicy(t *testing.T) {
	t.Run("write failure marks retained items", func(t *testing.T) {
		w := &fakeWriter{
			WriteFunc: func(ctx context.Context, records []model.ActivityRecord) error {
				return errFakeWrite
			},
		}
		p := newTestProjector(w, WithPolicy(RedeliverStrict))

		events := []model.ChangeEvent{
			insertEvent("t1"),
			{EventID: "evt-m", Kind: model.ChangeModify, TransactionID: "t2"},
			insertEvent("t3"),
		}
		result := p.ProcessBatch(context.Background(), events)

		if len(result.FailedItems) != 2 {
			t.Fatalf("expected the 2 retained inserts marked for redelivery, got %d", len(result.FailedItems))
		}
		ids := map[string]bool{result.FailedItems[0].ItemID: true, result.FailedItems[1].ItemID: true}
		if !ids["t1"] || !ids["t3"] {
			t.Errorf("expected t1 and t3 marked, got %v", result.FailedItems)
		}
	})

	t.Run("write success marks nothing", func(t *testing.T) {
		w := &fakeWriter{}
		p := newTestProjector(w, WithPolicy(RedeliverStrict))

		result := p.ProcessBatch(context.Background(), []model.ChangeEvent{insertEvent("t1")})
		if len(result.FailedItems) != 0 {
			t.Errorf("expected no redelivery on success, got %d items", len(result.FailedItems))
		}
	})
}

func TestProcessBatch_LegacyPolicy(t *testing.T) {
	t.Run("write success marks the whole original batch", func(t *testing.T) {
		w := &fakeWriter{}
		p := newTestProjector(w, WithPolicy(RedeliverLegacy))

		events := []model.ChangeEvent{
			insertEvent("t1"),
			{EventID: "evt-m", Kind: model.ChangeModify, TransactionID: "t2"},
		}
		result := p.ProcessBatch(context.Background(), events)

		if len(result.FailedItems) != 2 {
			t.Fatalf("legacy policy marks every original item on success, got %d", len(result.FailedItems))
		}
	})

	t.Run("write failure marks nothing", func(t *testing.T) {
		w := &fakeWriter{
			WriteFunc: func(ctx context.Context, records []model.ActivityRecord) error {
				return errFakeWrite
			},
		}
		p := newTestProjector(w, WithPolicy(RedeliverLegacy))

		result := p.ProcessBatch(context.Background(), []model.ChangeEvent{insertEvent("t1")})
		if len(result.FailedItems) != 0 {
			t.Errorf("legacy policy reports nothing on failure, got %d items", len(result.FailedItems))
		}
	})
}

func TestParsePolicy(t *testing.T) {
	if ParsePolicy("legacy") != RedeliverLegacy {
		t.Error(`"legacy" should select RedeliverLegacy`)
	}
	if ParsePolicy("strict") != RedeliverStrict {
		t.Error(`"strict" should select RedeliverStrict`)
	}
	if ParsePolicy("") != RedeliverStrict {
		t.Error("unknown values should default to RedeliverStrict")
	}
}
