package eventbus

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EmissionEvent is the envelope published for every resolved row and for
// each finished batch, so downstream consumers (dashboards, alerting) can
// follow a run without touching the spreadsheet.
type EmissionEvent struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Type      string    `json:"type"` // row_result | batch_summary
	Timestamp time.Time `json:"timestamp"`

	Sheet    string `json:"sheet,omitempty"`
	Row      int    `json:"row,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	Detail   string `json:"detail,omitempty"`

	Summary *RunSummary `json:"summary,omitempty"`
}

// RunSummary mirrors the batch counters.
type RunSummary struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// Event type constants.
const (
	TypeRowResult    = "row_result"
	TypeBatchSummary = "batch_summary"
)

// NewEventID generates a compact unique event id with a date prefix.
func NewEventID(prefix string, t time.Time) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

// MinimalValidate checks required fields.
func (e *EmissionEvent) MinimalValidate() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}
