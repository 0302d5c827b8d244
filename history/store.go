// Package history keeps recent batch runs in Redis so operators can audit
// what was emitted after the log scrolls away.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "ticketera:runs"

// maxRuns bounds the list; older runs are trimmed away.
const maxRuns = 100

// RowRecord is one resolved row inside a run.
type RowRecord struct {
	Row      int    `json:"row"`
	Outcome  string `json:"outcome"`
	TicketID string `json:"ticket_id,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// RunRecord is one finished batch.
type RunRecord struct {
	ID         string      `json:"id"`
	Sheet      string      `json:"sheet"`
	Variant    string      `json:"variant"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Processed  int         `json:"processed"`
	Errors     int         `json:"errors"`
	Skipped    int         `json:"skipped"`
	Total      int         `json:"total"`
	Rows       []RowRecord `json:"rows,omitempty"`
}

// Store persists run records in a capped Redis list.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore connects to Redis at addr. key falls back to the default.
func NewStore(addr, key string) *Store {
	if key == "" {
		key = defaultKey
	}
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
	}
}

// Record prepends a run and trims the list to the retention cap.
func (s *Store) Record(ctx context.Context, run RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("could not encode run: %w", err)
	}
	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("could not store run: %w", err)
	}
	return s.client.LTrim(ctx, s.key, 0, maxRuns-1).Err()
}

// Recent returns up to n most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	if n <= 0 {
		n = 10
	}
	raw, err := s.client.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read runs: %w", err)
	}
	runs := make([]RunRecord, 0, len(raw))
	for _, item := range raw {
		var run RunRecord
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
