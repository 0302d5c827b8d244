package batch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ticketera/pos"
)

type fakeSheet struct {
	rows     []pos.Row
	written  map[int][2]string
	rowsErr  error
	writeErr error
}

func newFakeSheet(rows ...pos.Row) *fakeSheet {
	return &fakeSheet{rows: rows, written: make(map[int][2]string)}
}

func (f *fakeSheet) Name() string { return "Nominadas" }

func (f *fakeSheet) Rows(ctx context.Context) ([]pos.Row, error) {
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return f.rows, nil
}

func (f *fakeSheet) WriteResult(ctx context.Context, rowIndex int, status, code string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[rowIndex] = [2]string{status, code}
	return nil
}

type fakeEmitter struct {
	calls    []pos.Row
	variants []pos.Variant
	outcome  func(pos.Row) pos.Outcome
}

func (f *fakeEmitter) Emit(ctx context.Context, row pos.Row, variant pos.Variant) pos.Outcome {
	f.calls = append(f.calls, row)
	f.variants = append(f.variants, variant)
	if f.outcome != nil {
		return f.outcome(row)
	}
	return pos.Outcome{Kind: pos.OutcomeSuccess, TicketID: "#1"}
}

func TestProcessEndToEndScenario(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, Document: "111", ResultCode: "#1001"},
		pos.Row{Index: 3, Document: ""},
		pos.Row{Index: 4, Document: "30123456", FirstName: "Ana", LastName: "García"},
	)
	emitter := &fakeEmitter{outcome: func(pos.Row) pos.Outcome {
		return pos.Outcome{Kind: pos.OutcomeSuccess, TicketID: "#2002"}
	}}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(context.Background(), pos.NamedHolder)
	assert.NoError(t, err)

	// Row 2 already carries a result code: skipped, walker never invoked.
	// Row 3 has no document: error without a walker invocation.
	assert.Len(t, emitter.calls, 1)
	assert.Equal(t, 4, emitter.calls[0].Index)

	assert.Equal(t, Summary{Processed: 1, Errors: 1, Skipped: 1, Total: 3}, summary)
	assert.Equal(t, [2]string{"Error - Sin DNI", ""}, sheet.written[3])
	assert.Equal(t, [2]string{"Procesado", "#2002"}, sheet.written[4])
	_, wroteSkipped := sheet.written[2]
	assert.False(t, wroteSkipped, "skipped rows are never rewritten")
}

func TestProcessAnonymousQuantityPrecheck(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, Quantity: "0"},
		pos.Row{Index: 3, Quantity: "tres"},
		pos.Row{Index: 4, Quantity: "3"},
	)
	emitter := &fakeEmitter{}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(context.Background(), pos.Anonymous)
	assert.NoError(t, err)

	assert.Len(t, emitter.calls, 1)
	assert.Equal(t, "3", emitter.calls[0].Quantity)
	assert.Equal(t, pos.Anonymous, emitter.variants[0])
	assert.Equal(t, [2]string{"Error - Cantidad inválida", ""}, sheet.written[2])
	assert.Equal(t, [2]string{"Error - Cantidad inválida", ""}, sheet.written[3])
	assert.Equal(t, Summary{Processed: 1, Errors: 2, Skipped: 0, Total: 3}, summary)
}

func TestProcessOutcomeMapping(t *testing.T) {
	validationMsg := "Función 'Lunes' inexistente. Opciones válidas: Viernes | Sábado"
	sheet := newFakeSheet(
		pos.Row{Index: 2, Document: "1"},
		pos.Row{Index: 3, Document: "2"},
		pos.Row{Index: 4, Document: "3"},
	)
	outcomes := map[int]pos.Outcome{
		2: {Kind: pos.OutcomeDuplicate},
		3: {Kind: pos.OutcomeValidation, Reason: validationMsg},
		4: {Kind: pos.OutcomeFailure, Reason: "timeout"},
	}
	emitter := &fakeEmitter{outcome: func(r pos.Row) pos.Outcome { return outcomes[r.Index] }}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(context.Background(), pos.NamedHolder)
	assert.NoError(t, err)

	assert.Equal(t, [2]string{"Error - DNI duplicado", ""}, sheet.written[2])
	assert.Equal(t, [2]string{validationMsg, ""}, sheet.written[3])
	assert.Contains(t, sheet.written[3][0], "Viernes | Sábado", "validation message lists the offered options")
	assert.Equal(t, [2]string{"Error - No se procesó", ""}, sheet.written[4])
	assert.Equal(t, Summary{Processed: 0, Errors: 3, Skipped: 0, Total: 3}, summary)
}

func TestProcessCountsAlwaysBalance(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, ResultCode: "#1"},
		pos.Row{Index: 3},
		pos.Row{Index: 4, Document: "4"},
		pos.Row{Index: 5, Document: "5"},
	)
	emitter := &fakeEmitter{outcome: func(r pos.Row) pos.Outcome {
		if r.Index == 4 {
			return pos.Outcome{Kind: pos.OutcomeFailure}
		}
		return pos.Outcome{Kind: pos.OutcomeSuccess, TicketID: "#9"}
	}}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(context.Background(), pos.NamedHolder)
	assert.NoError(t, err)
	assert.Equal(t, summary.Total, summary.Processed+summary.Errors+summary.Skipped)
}

func TestProcessEmitterPanicMarksRowAndContinues(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, Document: "1"},
		pos.Row{Index: 3, Document: "2"},
	)
	emitter := &fakeEmitter{outcome: func(r pos.Row) pos.Outcome {
		if r.Index == 2 {
			panic("browser session lost in a very long and detailed way")
		}
		return pos.Outcome{Kind: pos.OutcomeSuccess, TicketID: "#5"}
	}}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(context.Background(), pos.NamedHolder)
	assert.NoError(t, err)
	assert.Equal(t, Summary{Processed: 1, Errors: 1, Skipped: 0, Total: 2}, summary)

	status := sheet.written[2][0]
	assert.True(t, strings.HasPrefix(status, "Error:"))
	assert.LessOrEqual(t, len([]rune(status)), 30, "unclassified errors are truncated")
	assert.Equal(t, [2]string{"Procesado", "#5"}, sheet.written[3])
}

func TestProcessSheetUnreachable(t *testing.T) {
	sheet := newFakeSheet()
	sheet.rowsErr = errors.New("connection refused")
	emitter := &fakeEmitter{}
	o := New(sheet, emitter, nil, 0)

	_, err := o.Process(context.Background(), pos.NamedHolder)
	assert.Error(t, err)
	assert.Empty(t, emitter.calls, "no row is attempted when setup fails")
}

func TestCancellationLeavesRemainingRowsUntouched(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, Document: "1"},
		pos.Row{Index: 3, Document: "2"},
		pos.Row{Index: 4, Document: "3"},
	)
	ctx, cancel := context.WithCancel(context.Background())
	emitter := &fakeEmitter{outcome: func(pos.Row) pos.Outcome {
		cancel()
		return pos.Outcome{Kind: pos.OutcomeSuccess, TicketID: "#10"}
	}}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(ctx, pos.NamedHolder)
	assert.NoError(t, err)
	assert.Len(t, emitter.calls, 1, "cancellation stops before the next row")
	assert.Len(t, sheet.written, 1, "untouched rows get no status written")
	assert.Equal(t, [2]string{"Procesado", "#10"}, sheet.written[2])
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, summary.Total, summary.Processed+summary.Errors+summary.Skipped)
}

func TestCancelledBeforeStartAttemptsNothing(t *testing.T) {
	sheet := newFakeSheet(pos.Row{Index: 2, Document: "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	emitter := &fakeEmitter{}
	o := New(sheet, emitter, nil, 0)

	summary, err := o.Process(ctx, pos.NamedHolder)
	assert.NoError(t, err)
	assert.Empty(t, emitter.calls)
	assert.Empty(t, sheet.written)
	assert.Equal(t, 0, summary.Total)
}

func TestObserverSeesEveryRow(t *testing.T) {
	sheet := newFakeSheet(
		pos.Row{Index: 2, ResultCode: "#1"},
		pos.Row{Index: 3, Document: "2"},
	)
	o := New(sheet, &fakeEmitter{}, nil, 0)
	var seen []RowResult
	o.Observer = func(r RowResult) { seen = append(seen, r) }

	_, err := o.Process(context.Background(), pos.NamedHolder)
	assert.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, "skipped", seen[0].Status)
	assert.Equal(t, "#1", seen[1].Code)
}
