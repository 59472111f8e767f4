package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/robertmedinasb/payments-pipeline/internal/config"
	"github.com/robertmedinasb/payments-pipeline/internal/db"
)

var demoUsers = []struct {
	userID, name, lastName string
}{
	{"u1", "Robert", "Medina"},
	{"u2", "Jane", "Doe"},
	{"u3", "Carlos", "Perez"},
}

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

	schema, err := os.ReadFile("migrations/schema.sql")
	if err != nil {
		log.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("Schema applied")

	for _, u := range demoUsers {
		_, err := pool.Exec(ctx, `
			INSERT INTO users (user_id, name, last_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id) DO NOTHING
		`, u.userID, u.name, u.lastName)
		if err != nil {
			log.Fatalf("Failed to seed user %s: %v", u.userID, err)
		}
	}
	log.Printf("Seeded %d users", len(demoUsers))

	if len(os.Args) > 1 && os.Args[1] == "fire" {
		fire()
	}
}

// fire sends concurrent payment requests at the running server, alternating
// between seeded users and one that does not exist.
func fire() {
	start := time.Now()
	var wg sync.WaitGroup

	totalRequests := 50

	fmt.Printf("Firing %d payment requests...\n", totalRequests)

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			userID := demoUsers[id%len(demoUsers)].userID
			if id%10 == 9 {
				userID = "ghost"
			}
			jsonBody := []byte(fmt.Sprintf(`{"userId": "%s", "amount": 100}`, userID))

			resp, err := http.Post("http://localhost:8080/payments", "application/json", bytes.NewBuffer(jsonBody))
			if err != nil {
				fmt.Printf("Request %d failed: %v\n", id, err)
				return
			}
			resp.Body.Close()
		}(i)
	}

	wg.Wait()
	fmt.Printf("Finished %d requests in %v\n", totalRequests, time.Since(start))
}
