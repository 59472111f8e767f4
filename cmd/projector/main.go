package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/robertmedinasb/payments-pipeline/internal/activity"
	"github.com/robertmedinasb/payments-pipeline/internal/config"
	"github.com/robertmedinasb/payments-pipeline/internal/db"
	"github.com/robertmedinasb/payments-pipeline/internal/model"
	"github.com/robertmedinasb/payments-pipeline/internal/mq"
	"github.com/robertmedinasb/payments-pipeline/internal/projector"
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

	proj := projector.New(
		activity.NewStore(pool),
		projector.WithPolicy(projector.ParsePolicy(cfg.RedeliveryPolicy)),
	)

	consumer, err := mq.NewConsumer(cfg.RabbitURL, cfg.FeedQueue, cfg.ProjectorBatchSize)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries(ctx)
	if err != nil {
		log.Fatalf("Failed to register a consumer: %v", err)
	}

	go runLoop(ctx, proj, msgs, cfg.ProjectorBatchSize, cfg.ProjectorBatchWindow)

	log.Println("[Projector] Waiting for change events. To exit press CTRL+C")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("[Projector] Shutting down...")
}

// runLoop assembles deliveries into bounded batches and acknowledges each
// delivery according to the projector's batch result: failed items are
// nacked back onto the queue, everything else is acked.
func runLoop(ctx context.Context, proj *projector.Projector, msgs <-chan amqp.Delivery, batchSize int, window time.Duration) {
	var (
		deliveries []amqp.Delivery
		events     []model.ChangeEvent
	)

	timer := time.NewTimer(window)
	defer timer.Stop()

	flush := func() {
		if len(events) == 0 {
			return
		}
		result := proj.ProcessBatch(ctx, events)

		failed := make(map[string]bool, len(result.FailedItems))
		for _, f := range result.FailedItems {
			failed[f.ItemID] = true
		}

		for i, d := range deliveries {
			if failed[events[i].TransactionID] {
				_ = d.Nack(false, true)
			} else {
				_ = d.Ack(false)
			}
		}

		deliveries = deliveries[:0]
		events = events[:0]
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			flush()
			timer.Reset(window)
		case d, ok := <-msgs:
			if !ok {
				flush()
				return
			}

			var event model.ChangeEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Printf("[Projector] Dropping malformed event %s: %v", d.MessageId, err)
				// Redelivering a message that cannot parse will never help.
				_ = d.Nack(false, false)
				continue
			}

			deliveries = append(deliveries, d)
			events = append(events, event)

			if len(events) >= batchSize {
				flush()
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(window)
			}
		}
	}
}
