package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

// LogRepository implements domain.LogRepository as a bounded in-memory
// ring. Once full, the oldest record is evicted.
type LogRepository struct {
	mu       sync.RWMutex
	records  []domain.LogRecord
	capacity int
	now      func() time.Time
}

// NewLogRepository creates a repository holding at most capacity records.
func NewLogRepository(capacity int) *LogRepository {
	if capacity < 1 {
		capacity = 1
	}
	return &LogRepository{capacity: capacity, now: time.Now}
}

func (r *LogRepository) Add(ctx context.Context, record domain.LogRecord) (domain.LogRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) >= r.capacity {
		r.records = append(r.records[:0], r.records[1:]...)
	}
	r.records = append(r.records, record)
	return record, nil
}

func (r *LogRepository) Query(ctx context.Context, q domain.LogQuery) ([]domain.LogRecord, error) {
	var allowed map[string]struct{}
	if q.Projects != nil {
		allowed = make(map[string]struct{}, len(q.Projects))
		for _, p := range q.Projects {
			allowed[p] = struct{}{}
		}
	}

	r.mu.RLock()
	out := make([]domain.LogRecord, 0)
	for _, rec := range r.records {
		if allowed != nil {
			if _, ok := allowed[rec.ProjectName]; !ok {
				continue
			}
		}
		if matches(rec, q) {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func matches(rec domain.LogRecord, q domain.LogQuery) bool {
	switch {
	case q.ProjectName != "" && rec.ProjectName != q.ProjectName:
		return false
	case q.AppName != "" && rec.AppName != q.AppName:
		return false
	case q.Microservice != "" && rec.Microservice != q.Microservice:
		return false
	case q.Level != "" && rec.Level != q.Level:
		return false
	case !q.From.IsZero() && rec.Timestamp.Before(q.From):
		return false
	case !q.To.IsZero() && rec.Timestamp.After(q.To):
		return false
	}
	return true
}

func (r *LogRepository) Distinct(ctx context.Context) (domain.FilterOptions, error) {
	sets := [4]map[string]struct{}{{}, {}, {}, {}}

	r.mu.RLock()
	for _, rec := range r.records {
		for i, v := range [4]string{rec.ProjectName, rec.AppName, rec.Microservice, rec.Level} {
			if v != "" {
				sets[i][v] = struct{}{}
			}
		}
	}
	r.mu.RUnlock()

	return domain.FilterOptions{
		Projects:      sortedKeys(sets[0]),
		Apps:          sortedKeys(sets[1]),
		Microservices: sortedKeys(sets[2]),
		Levels:        sortedKeys(sets[3]),
	}, nil
}

func (r *LogRepository) CountByLevel(ctx context.Context) (domain.LevelCounts, error) {
	counts := make(domain.LevelCounts)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		counts[rec.Level]++
	}
	return counts, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
