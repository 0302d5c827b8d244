package main

import (
	"container/ring"
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketera/batch"
	"ticketera/config"
	"ticketera/eventbus"
	"ticketera/history"
	"ticketera/pos"
	"ticketera/sheets"
)

// memoryLogger keeps the most recent log lines in a ring so the /log
// endpoint can replay them, and mirrors everything to stderr.
type memoryLogger struct {
	mu   sync.Mutex
	ring *ring.Ring
}

func newMemoryLogger(size int) *memoryLogger {
	return &memoryLogger{ring: ring.New(size)}
}

func (l *memoryLogger) append(line string) {
	l.mu.Lock()
	l.ring.Value = fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), line)
	l.ring = l.ring.Next()
	l.mu.Unlock()
}

func (l *memoryLogger) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)
	l.append(msg)
}

func (l *memoryLogger) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Print("ERROR: " + msg)
	l.append("ERROR: " + msg)
}

// Lines returns the buffered log, oldest first.
func (l *memoryLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	l.ring.Do(func(v interface{}) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	})
	return out
}

// Job tracks one batch run started through the API.
type Job struct {
	ID         string         `json:"id"`
	EventName  string         `json:"event_name"`
	Worksheet  string         `json:"worksheet"`
	Variant    string         `json:"variant"`
	State      string         `json:"state"` // running | done | failed
	Error      string         `json:"error,omitempty"`
	Summary    *batch.Summary `json:"summary,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// App holds the service state: one browser session, one sheet client and
// at most one batch in flight.
type App struct {
	cfg    *config.Config
	logger *memoryLogger

	mu      sync.Mutex
	session *pos.Session
	sheets  *sheets.Client
	events  []pos.Event
	busy    bool
	jobs    map[string]*Job
	lastRun *runParams

	bus  *eventbus.NATSBus
	hist *history.Store
}

func newApp(cfg *config.Config) *App {
	app := &App{
		cfg:    cfg,
		logger: newMemoryLogger(500),
		jobs:   make(map[string]*Job),
	}
	if cfg.NatsURL != "" {
		bus, err := eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NatsURL, Subject: cfg.NatsSubject})
		if err != nil {
			app.logger.Errorf("NATS unavailable, events disabled: %v", err)
		} else {
			app.bus = bus
		}
	}
	if cfg.RedisAddr != "" {
		app.hist = history.NewStore(cfg.RedisAddr, "")
	}
	return app
}

// connect opens the browser session, logs in and lists the events. Any
// previous session is torn down first.
func (a *App) connect(email, password, sheetURL string) ([]pos.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return nil, errBusy
	}
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}

	session, err := pos.NewSession(pos.Options{
		BaseURL:  a.cfg.POSBaseURL,
		Headless: a.cfg.Headless,
		Logger:   a.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := session.Login(email, password); err != nil {
		session.Close()
		return nil, err
	}
	events, err := session.Events()
	if err != nil {
		session.Close()
		return nil, err
	}

	if sheetURL == "" {
		sheetURL = a.cfg.SheetURL
	}
	client, err := sheets.NewClient(context.Background(), a.cfg.GoogleCredentials, sheetURL)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("could not open spreadsheet: %w", err)
	}

	a.session = session
	a.sheets = client
	a.events = events
	a.logger.Printf("Connected; %d events available", len(events))
	return events, nil
}

// runParams captures the arguments of the most recent batch so the watch
// schedule can re-scan the sheet for rows added since.
type runParams struct {
	eventID   string
	variant   string
	worksheet string
}

// rerunLast repeats the last batch. Already processed rows are skipped by
// their result code, so only new rows are emitted. No-op while busy or
// before any batch has run.
func (a *App) rerunLast() {
	a.mu.Lock()
	last := a.lastRun
	a.mu.Unlock()
	if last == nil {
		return
	}
	if _, err := a.startBatch(last.eventID, last.variant, last.worksheet); err != nil {
		if err != errBusy {
			a.logger.Errorf("scheduled re-scan not started: %v", err)
		}
	}
}

var errBusy = fmt.Errorf("a batch is already running")
var errNotConnected = fmt.Errorf("not connected; POST /api/v1/connect first")

// startBatch launches a batch run in the background and returns a
// snapshot of its job. Exactly one batch may run at a time; the live
// *Job is only ever read or written under a.mu.
func (a *App) startBatch(eventID, variantName, worksheet string) (Job, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil || a.sheets == nil {
		return Job{}, errNotConnected
	}
	if a.busy {
		return Job{}, errBusy
	}

	var event *pos.Event
	for i := range a.events {
		if a.events[i].ID == eventID {
			event = &a.events[i]
			break
		}
	}
	if event == nil {
		return Job{}, fmt.Errorf("unknown event id %q", eventID)
	}

	variant, err := parseVariant(variantName)
	if err != nil {
		return Job{}, err
	}
	if worksheet == "" {
		if variant == pos.NamedHolder {
			worksheet = a.cfg.NamedWorksheet
		} else {
			worksheet = a.cfg.AnonymousWorksheet
		}
	}

	job := &Job{
		ID:        uuid.NewString(),
		EventName: event.Name,
		Worksheet: worksheet,
		Variant:   variant.String(),
		State:     "running",
		StartedAt: time.Now(),
	}
	a.jobs[job.ID] = job
	a.busy = true
	a.lastRun = &runParams{eventID: eventID, variant: variant.String(), worksheet: worksheet}

	ev := *event
	go a.runBatch(job, ev, variant, worksheet)
	return *job, nil
}

// jobSnapshot copies a job under the lock so handlers never encode the
// struct runBatch is mutating.
func (a *App) jobSnapshot(id string) (Job, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	job, ok := a.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

func (a *App) runBatch(job *Job, event pos.Event, variant pos.Variant, worksheet string) {
	summary, err := a.execute(event, variant, worksheet, job.ID)

	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	job.FinishedAt = &now
	if err != nil {
		job.State = "failed"
		job.Error = err.Error()
		a.logger.Errorf("batch %s failed: %v", job.ID, err)
	} else {
		job.State = "done"
		job.Summary = &summary
	}
	a.busy = false
}

func (a *App) execute(event pos.Event, variant pos.Variant, worksheet, jobID string) (batch.Summary, error) {
	ctx := context.Background()

	ws, err := a.sheets.Worksheet(ctx, worksheet)
	if err != nil {
		return batch.Summary{}, err
	}

	walker := pos.NewWalker(a.session, event)
	orch := batch.New(ws, walker, a.logger, batch.RowDelayFor(a.cfg.Headless))

	run := history.RunRecord{
		ID:        jobID,
		Sheet:     worksheet,
		Variant:   variant.String(),
		StartedAt: time.Now(),
	}
	orch.Observer = func(r batch.RowResult) {
		run.Rows = append(run.Rows, history.RowRecord{
			Row:      r.Row,
			Outcome:  r.Outcome.Kind.String(),
			TicketID: r.Outcome.TicketID,
			Detail:   r.Outcome.Reason,
		})
		a.publishRow(ctx, worksheet, r)
	}

	summary, err := orch.Process(ctx, variant)
	if err != nil {
		return summary, err
	}

	run.FinishedAt = time.Now()
	run.Processed = summary.Processed
	run.Errors = summary.Errors
	run.Skipped = summary.Skipped
	run.Total = summary.Total
	if a.hist != nil {
		if err := a.hist.Record(ctx, run); err != nil {
			a.logger.Errorf("run history not recorded: %v", err)
		}
	}
	a.publishSummary(ctx, worksheet, variant, summary)
	return summary, nil
}

func (a *App) publishRow(ctx context.Context, worksheet string, r batch.RowResult) {
	if a.bus == nil {
		return
	}
	evt := eventbus.EmissionEvent{
		EventID:   eventbus.NewEventID("row_", time.Now()),
		Source:    "ticketera-emitter",
		Type:      eventbus.TypeRowResult,
		Timestamp: time.Now(),
		Sheet:     worksheet,
		Row:       r.Row,
		Variant:   r.Variant.String(),
		Outcome:   r.Outcome.Kind.String(),
		TicketID:  r.Outcome.TicketID,
		Detail:    r.Outcome.Reason,
	}
	if err := a.bus.Publish(ctx, evt); err != nil {
		a.logger.Errorf("row event not published: %v", err)
	}
}

func (a *App) publishSummary(ctx context.Context, worksheet string, variant pos.Variant, s batch.Summary) {
	if a.bus == nil {
		return
	}
	evt := eventbus.EmissionEvent{
		EventID:   eventbus.NewEventID("run_", time.Now()),
		Source:    "ticketera-emitter",
		Type:      eventbus.TypeBatchSummary,
		Timestamp: time.Now(),
		Sheet:     worksheet,
		Variant:   variant.String(),
		Summary: &eventbus.RunSummary{
			Processed: s.Processed,
			Errors:    s.Errors,
			Skipped:   s.Skipped,
			Total:     s.Total,
		},
	}
	if err := a.bus.Publish(ctx, evt); err != nil {
		a.logger.Errorf("summary event not published: %v", err)
	}
}

func (a *App) shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Close()
		a.session = nil
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.hist != nil {
		_ = a.hist.Close()
	}
}

func parseVariant(name string) (pos.Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nominada", "named":
		return pos.NamedHolder, nil
	case "innominada", "anonymous":
		return pos.Anonymous, nil
	default:
		return 0, fmt.Errorf("unknown variant %q (want nominada or innominada)", name)
	}
}
