// Package wal persists the development API's log records to an
// append-only, segmented journal so they survive a restart.
package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/V4T54L/watch-tower-console/internal/domain"
)

const (
	segmentPrefix = "segment-"
	segmentSuffix = ".log"
	filePerm      = 0o600
)

// ErrRecordTooLarge is returned for a record that alone exceeds the
// journal's size limit.
var ErrRecordTooLarge = errors.New("record exceeds the journal size limit")

// Journal is a file-based write-ahead log of records split into segments.
// Once the segments exceed the total size limit the oldest are removed.
type Journal struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	nextSeq        uint64
}

// NewJournal opens the journal in dir, creating the directory if needed.
func NewJournal(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*Journal, error) {
	if maxSegmentSize <= 0 || maxTotalSize < maxSegmentSize {
		return nil, fmt.Errorf("invalid journal limits: segment %d, total %d", maxSegmentSize, maxTotalSize)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory %s: %w", dir, err)
	}

	j := &Journal{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "wal_journal"),
	}

	if err := j.openLatestSegment(); err != nil {
		return nil, err
	}
	return j, nil
}

// Write appends record to the current segment.
func (j *Journal) Write(ctx context.Context, record domain.LogRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record for journal: %w", err)
	}
	data = append(data, '\n')
	if int64(len(data)) > j.maxTotalSize {
		return ErrRecordTooLarge
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.currentSegment == nil {
		if err := j.rotate(); err != nil {
			return err
		}
	}
	if err := j.prune(int64(len(data))); err != nil {
		return err
	}

	n, err := j.currentSegment.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write to journal segment: %w", err)
	}
	j.currentSize += int64(n)

	if j.currentSize >= j.maxSegmentSize {
		if err := j.rotate(); err != nil {
			j.logger.Error("failed to rotate journal segment", "error", err)
		}
	}
	return nil
}

// Replay calls fn for every record in the journal, oldest first. Lines
// that do not decode are skipped.
func (j *Journal) Replay(ctx context.Context, fn func(domain.LogRecord) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	segments, err := j.sortedSegments()
	if err != nil {
		return err
	}

	replayed := 0
	for _, path := range segments {
		n, err := replaySegment(ctx, path, fn, j.logger)
		replayed += n
		if err != nil {
			return err
		}
	}

	j.logger.Info("journal replay completed", "segments", len(segments), "records", replayed)
	return nil
}

func replaySegment(ctx context.Context, path string, fn func(domain.LogRecord) error, logger *slog.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	n := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		var record domain.LogRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			logger.Warn("failed to decode journal line, skipping", "segment", filepath.Base(path), "error", err)
			continue
		}
		if err := fn(record); err != nil {
			return n, fmt.Errorf("replay handler failed: %w", err)
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return n, nil
}

// Close syncs and closes the current segment.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.currentSegment == nil {
		return nil
	}
	if err := j.currentSegment.Sync(); err != nil {
		j.logger.Error("failed to sync journal segment on close", "error", err)
	}
	err := j.currentSegment.Close()
	j.currentSegment = nil
	return err
}

// prune removes the oldest closed segments until incoming more bytes fit
// under the total size limit.
func (j *Journal) prune(incoming int64) error {
	segments, err := j.sortedSegments()
	if err != nil {
		return err
	}

	sizes := make([]int64, len(segments))
	var total int64
	for i, path := range segments {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat segment %s: %w", path, err)
		}
		sizes[i] = info.Size()
		total += sizes[i]
	}

	current := j.currentSegment.Name()
	for i, path := range segments {
		if total+incoming <= j.maxTotalSize {
			break
		}
		if path == current {
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove segment %s: %w", path, err)
		}
		total -= sizes[i]
		j.logger.Info("removed oldest journal segment", "path", path)
	}
	return nil
}

func (j *Journal) rotate() error {
	if j.currentSegment != nil {
		if err := j.currentSegment.Sync(); err != nil {
			j.logger.Error("failed to sync journal segment before rotating", "error", err)
		}
		if err := j.currentSegment.Close(); err != nil {
			j.logger.Error("failed to close journal segment before rotating", "error", err)
		}
		j.currentSegment = nil
	}

	path := filepath.Join(j.dir, segmentName(j.nextSeq))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create journal segment %s: %w", path, err)
	}

	j.nextSeq++
	j.currentSegment = f
	j.currentSize = 0
	j.logger.Debug("rotated to new journal segment", "path", path)
	return nil
}

func (j *Journal) openLatestSegment() error {
	segments, err := j.sortedSegments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return j.rotate()
	}

	latest := segments[len(segments)-1]
	seq, ok := segmentSeq(filepath.Base(latest))
	if !ok {
		return fmt.Errorf("unexpected segment name %s", latest)
	}
	j.nextSeq = seq + 1

	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latest, err)
	}
	if stat.Size() >= j.maxSegmentSize {
		return j.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latest, err)
	}
	j.currentSegment = f
	j.currentSize = stat.Size()
	j.logger.Info("opened existing journal segment", "path", latest, "size", j.currentSize)
	return nil
}

func (j *Journal) sortedSegments() ([]string, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if _, ok := segmentSeq(entry.Name()); ok && !entry.IsDir() {
			segments = append(segments, filepath.Join(j.dir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

// segmentName zero-pads seq so that lexical order is write order.
func segmentName(seq uint64) string {
	return fmt.Sprintf("%s%020d%s", segmentPrefix, seq, segmentSuffix)
}

func segmentSeq(name string) (uint64, bool) {
	s, ok := strings.CutPrefix(name, segmentPrefix)
	if !ok {
		return 0, false
	}
	s, ok = strings.CutSuffix(s, segmentSuffix)
	if !ok {
		return 0, false
	}
	seq, err := strconv.ParseUint(s, 10, 64)
	return seq, err == nil
}
