package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// RateMessage is one sample of the write stream: records per second since
// the previous sample, the running total, and the sample's records by level.
type RateMessage struct {
	Rate   float64            `json:"rate"`
	Total  int64              `json:"total"`
	Levels domain.LevelCounts `json:"levels"`
}

// RateBroker streams the POST /logs rate to Server-Sent Events subscribers.
type RateBroker struct {
	logger   *slog.Logger
	interval time.Duration
	stored   chan string // level of each stored record

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewRateBroker creates a RateBroker sampling every interval. Its loop
// stops with ctx.
func NewRateBroker(ctx context.Context, interval time.Duration, logger *slog.Logger) *RateBroker {
	b := &RateBroker{
		logger:      logger.With("component", "rate_broker"),
		interval:    interval,
		stored:      make(chan string, 1000),
		subscribers: make(map[chan []byte]struct{}),
	}
	go b.run(ctx)
	return b
}

// ServeHTTP subscribes the caller to the stream until it disconnects.
// GET /logs/rate
func (b *RateBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	samples := b.subscribe()
	defer b.unsubscribe(samples)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-samples:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// Record counts a stored record towards the current sample. It never
// blocks the write path; when the queue is full the record is not counted.
func (b *RateBroker) Record(rec domain.LogRecord) {
	select {
	case b.stored <- rec.Level:
	default:
		b.logger.Warn("rate queue is full, record not counted", "record_id", rec.ID)
	}
}

func (b *RateBroker) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	b.logger.Debug("rate subscriber connected", "subscribers", n)
	return ch
}

func (b *RateBroker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
		b.logger.Debug("rate subscriber disconnected", "subscribers", len(b.subscribers))
	}
}

// publish hands msg to every subscriber that has room for it. A slow
// subscriber misses samples rather than holding up the others.
func (b *RateBroker) publish(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (b *RateBroker) run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var total int64
	window := domain.LevelCounts{}
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case level := <-b.stored:
			window[level]++
			total++
		case now := <-ticker.C:
			var n int64
			for _, c := range window {
				n += c
			}
			sample := RateMessage{Total: total, Levels: window}
			if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
				sample.Rate = float64(n) / elapsed
			}

			data, err := json.Marshal(sample)
			if err != nil {
				b.logger.Error("failed to marshal rate sample", "error", err)
				continue
			}
			b.publish(data)

			window = domain.LevelCounts{}
			last = now
		}
	}
}
