package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/V4T54L/watch-tower-console/internal/adapter/api/client"
	"github.com/V4T54L/watch-tower-console/internal/adapter/repository/memory"
	"github.com/V4T54L/watch-tower-console/internal/domain"
	"github.com/V4T54L/watch-tower-console/internal/session"
	"github.com/V4T54L/watch-tower-console/internal/usecase"
)

var (
	projects = []string{"alpha", "beta", "gamma"}
	levels   = []string{"DEBUG", "INFO", "INFO", "INFO", "WARN", "ERROR"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8090/api", "Base URL of the logging API")
	username := flag.String("user", "admin", "Account used to write records")
	password := flag.String("password", "admin", "Password of the account")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	readRatio := flag.Float64("read", 0.2, "Fraction of requests that query logs instead of writing")
	flag.Parse()

	log.Printf("Starting load test on %s", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Read ratio: %.2f", *concurrency, *duration, *rps, *readRatio)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore(memory.NewCredentialRepository(), logger, nil)
	api, err := client.New(client.Config{
		BaseURL:   *baseURL,
		Timeout:   5 * time.Second,
		RateLimit: rate.Limit(*rps),
		RateBurst: 100,
	}, store, logger, nil)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	gate := usecase.NewAuthGate(store, api, logger)
	if _, err := gate.Login(context.Background(), *username, *password); err != nil {
		log.Fatalf("Failed to sign in as %s: %v", *username, err)
	}

	var wg sync.WaitGroup
	var writes, reads, forbidden, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ctx.Err() == nil {
				if rand.Float64() < *readRatio {
					_, err := api.Logs(ctx, url.Values{"projectName": {pick(projects)}})
					switch {
					case err == nil:
						reads.Add(1)
					case errors.Is(err, domain.ErrForbidden):
						forbidden.Add(1)
					case ctx.Err() == nil:
						errorCount.Add(1)
					}
					continue
				}

				err := api.AddLog(ctx, domain.LogRecord{
					ID:           uuid.NewString(),
					ProjectName:  pick(projects),
					AppName:      "load-tester",
					Microservice: fmt.Sprintf("worker-%d", workerID),
					SourceApp:    "load-tester",
					Level:        pick(levels),
					Message:      fmt.Sprintf("load test event from worker %d", workerID),
					Timestamp:    time.Now(),
				})
				switch {
				case err == nil:
					writes.Add(1)
				case errors.Is(err, domain.ErrSessionInvalid):
					log.Printf("Worker %d: credential rejected, stopping", workerID)
					errorCount.Add(1)
					return
				case ctx.Err() == nil:
					errorCount.Add(1)
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := writes.Load() + reads.Load() + forbidden.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Records written: %d", writes.Load())
	log.Printf("Queries answered: %d", reads.Load())
	log.Printf("Queries forbidden (403): %d", forbidden.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}

func pick(values []string) string {
	return values[rand.Intn(len(values))]
}
