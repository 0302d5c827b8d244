// Package batch iterates spreadsheet rows through the emission walker and
// writes outcomes back. Rows are strictly sequential: the shared browser
// session has no per-row isolation.
package batch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticketera/pos"
)

// Sheet is the tabular source/sink one batch runs against.
type Sheet interface {
	// Name identifies the worksheet in logs and events.
	Name() string
	// Rows reads all data rows. Row indices are sheet row numbers
	// (header is row 1).
	Rows(ctx context.Context) ([]pos.Row, error)
	// WriteResult writes the status column and, when code is non-empty,
	// the result-code column of one row.
	WriteResult(ctx context.Context, rowIndex int, status, code string) error
}

// Emitter runs one emission attempt. pos.Walker satisfies this.
type Emitter interface {
	Emit(ctx context.Context, row pos.Row, variant pos.Variant) pos.Outcome
}

// Summary aggregates one batch run. Processed+Errors+Skipped == Total.
type Summary struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

// RowResult is handed to the observer after each row resolves.
type RowResult struct {
	Row     int
	Variant pos.Variant
	Outcome pos.Outcome
	Status  string
	Code    string
}

// Orchestrator drives one batch at a time. The caller guarantees no two
// batches share it concurrently (the service's single-flight guard, the
// CLI's linear main).
type Orchestrator struct {
	sheet    Sheet
	emitter  Emitter
	logger   pos.Logger
	rowDelay time.Duration

	// Observer, when set, receives every resolved row. Used to fan out
	// to the event bus and the run-history store.
	Observer func(RowResult)
}

// New builds an orchestrator. rowDelay is the inter-row pacing toward the
// target site; pass the shorter value when running headless.
func New(sheet Sheet, emitter Emitter, logger pos.Logger, rowDelay time.Duration) *Orchestrator {
	if logger == nil {
		logger = &pos.SimpleLogger{}
	}
	return &Orchestrator{sheet: sheet, emitter: emitter, logger: logger, rowDelay: rowDelay}
}

// RowDelayFor is the default pacing for an execution mode.
func RowDelayFor(headless bool) time.Duration {
	if headless {
		return 500 * time.Millisecond
	}
	return time.Second
}

// alreadyProcessed reports whether the row bears a recognized ticket
// identifier and must never be re-submitted.
func alreadyProcessed(row pos.Row) bool {
	return strings.HasPrefix(strings.TrimSpace(row.ResultCode), "#")
}

// truncate keeps status messages sheet-friendly.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Process runs every row to resolution. Row-level failures never abort
// the batch; only the initial sheet read is a hard error, surfaced before
// any row is attempted.
func (o *Orchestrator) Process(ctx context.Context, variant pos.Variant) (Summary, error) {
	rows, err := o.sheet.Rows(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("could not read worksheet %q: %w", o.sheet.Name(), err)
	}

	o.logger.Printf("%s", strings.Repeat("=", 50))
	o.logger.Printf("Starting batch: %d rows from %q (%s)", len(rows), o.sheet.Name(), variant)
	o.logger.Printf("%s", strings.Repeat("=", 50))

	summary := Summary{Total: len(rows)}
	for i, row := range rows {
		// A cancelled batch stops before the next row is attempted; the
		// remaining rows keep whatever status they already had and leave
		// the counters, so a re-run picks them up.
		if ctx.Err() != nil {
			left := len(rows) - i
			summary.Total -= left
			o.logger.Printf("Batch cancelled; %d rows left untouched", left)
			break
		}
		o.processRow(ctx, row, variant, &summary)
		if o.rowDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.rowDelay):
			}
		}
	}

	o.logger.Printf("%s", strings.Repeat("=", 50))
	o.logger.Printf("BATCH SUMMARY (%q):", o.sheet.Name())
	o.logger.Printf("  • Procesados: %d", summary.Processed)
	o.logger.Printf("  • Errores: %d", summary.Errors)
	o.logger.Printf("  • Saltados (ya procesados): %d", summary.Skipped)
	o.logger.Printf("  • Total: %d", summary.Total)
	o.logger.Printf("%s", strings.Repeat("=", 50))

	return summary, nil
}

// processRow resolves one row, counting it exactly once. A panic anywhere
// inside is converted to an error write-back.
func (o *Orchestrator) processRow(ctx context.Context, row pos.Row, variant pos.Variant, summary *Summary) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("✗ Row %d: %v", row.Index, r)
			o.writeBack(ctx, row.Index, truncate(fmt.Sprintf("Error: %v", r), 30), "")
			summary.Errors++
		}
	}()

	if alreadyProcessed(row) {
		o.logger.Printf("Row %d: already processed (%s), skipping", row.Index, strings.TrimSpace(row.ResultCode))
		summary.Skipped++
		o.observe(RowResult{Row: row.Index, Variant: variant, Status: "skipped", Code: row.ResultCode})
		return
	}

	if status, ok := o.precheck(row, variant); !ok {
		o.logger.Printf("Row %d: %s, skipping", row.Index, status)
		o.writeBack(ctx, row.Index, status, "")
		summary.Errors++
		o.observe(RowResult{Row: row.Index, Variant: variant, Status: status})
		return
	}

	outcome := o.emitter.Emit(ctx, row, variant)
	status, code := classify(outcome)
	o.writeBack(ctx, row.Index, status, code)
	if outcome.Kind == pos.OutcomeSuccess {
		summary.Processed++
		o.logger.Printf("✓ Row %d emitted and written back: %s", row.Index, code)
	} else {
		summary.Errors++
		o.logger.Printf("⚠️ Row %d: %s", row.Index, status)
	}
	o.observe(RowResult{Row: row.Index, Variant: variant, Outcome: outcome, Status: status, Code: code})
}

// precheck applies the variant-specific minimum-data rules without
// touching the browser.
func (o *Orchestrator) precheck(row pos.Row, variant pos.Variant) (string, bool) {
	switch variant {
	case pos.Anonymous:
		qty, err := strconv.Atoi(strings.TrimSpace(row.Quantity))
		if err != nil || qty <= 0 {
			return "Error - Cantidad inválida", false
		}
	default:
		if strings.TrimSpace(row.Document) == "" {
			return "Error - Sin DNI", false
		}
	}
	return "", true
}

// classify maps an outcome to the sheet write-back pair.
func classify(out pos.Outcome) (status, code string) {
	switch out.Kind {
	case pos.OutcomeSuccess:
		return "Procesado", out.TicketID
	case pos.OutcomeDuplicate:
		return "Error - DNI duplicado", ""
	case pos.OutcomeValidation:
		return out.Reason, ""
	default:
		return "Error - No se procesó", ""
	}
}

// writeBack updates the row's status and result-code columns. Write
// failures are logged, not fatal: the batch keeps going.
func (o *Orchestrator) writeBack(ctx context.Context, rowIndex int, status, code string) {
	if err := o.sheet.WriteResult(ctx, rowIndex, status, code); err != nil {
		o.logger.Errorf("✗ Could not write back row %d: %v", rowIndex, err)
	}
}

func (o *Orchestrator) observe(r RowResult) {
	if o.Observer != nil {
		o.Observer(r)
	}
}
