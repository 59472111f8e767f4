package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/robertmedinasb/payments-pipeline/internal/activity"
	"github.com/robertmedinasb/payments-pipeline/internal/config"
	"github.com/robertmedinasb/payments-pipeline/internal/db"
	"github.com/robertmedinasb/payments-pipeline/internal/directory"
	"github.com/robertmedinasb/payments-pipeline/internal/executor"
	"github.com/robertmedinasb/payments-pipeline/internal/ledger"
	"github.com/robertmedinasb/payments-pipeline/internal/model"
	"github.com/robertmedinasb/payments-pipeline/internal/mq"
	"github.com/robertmedinasb/payments-pipeline/internal/projector"
	"github.com/robertmedinasb/payments-pipeline/internal/workflow"
)

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
	log.Println("Connected to PostgreSQL")

	// Workflow wiring.
	dir := directory.NewDirectory(pool)
	exec := executor.NewSimulated(cfg.ExecutorLatency)
	led := ledger.NewLedger(pool)
	engine := workflow.NewEngine(dir, exec, led, cfg.CallTimeout)

	// Single-binary mode: the change feed is relayed straight into the
	// projector without a broker. Run cmd/relay + cmd/projector instead for
	// the queued deployment.
	store := activity.NewStore(pool)
	proj := projector.New(store, projector.WithPolicy(projector.ParsePolicy(cfg.RedeliveryPolicy)))
	relay := ledger.NewRelay(pool, mq.NewInProcFeed(proj), cfg.FeedPollInterval, cfg.FeedBatchSize)
	go relay.Start(ctx)

	r := gin.Default()

	r.POST("/payments", func(c *gin.Context) {
		var req model.PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
			return
		}

		result := engine.Execute(c.Request.Context(), req)
		if !result.Succeeded {
			c.JSON(http.StatusPaymentRequired, result)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.GET("/transactions/:id", func(c *gin.Context) {
		txn, err := led.Get(c.Request.Context(), c.Param("id"))
		if errors.Is(err, model.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Transaction not found"})
			return
		}
		if err != nil {
			log.Printf("[Server] Failed to get transaction: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
			return
		}
		c.JSON(http.StatusOK, txn)
	})

	log.Printf("Server starting on %s", cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
