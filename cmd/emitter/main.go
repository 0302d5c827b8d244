// Command emitter runs one spreadsheet batch against the point of sale
// from the terminal: log in, pick the event, walk the rows, write the
// results back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ticketera/batch"
	"ticketera/config"
	"ticketera/credentials"
	"ticketera/eventbus"
	"ticketera/history"
	"ticketera/pos"
	"ticketera/sheets"
	"ticketera/update"
	"ticketera/version"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config YAML")
		sheetURL   = flag.String("sheet", "", "Google Sheet URL (overrides config)")
		eventName  = flag.String("event", "", "event name to emit for (exact or partial match)")
		variantStr = flag.String("variant", "nominada", "emission variant: nominada or innominada")
		worksheet  = flag.String("worksheet", "", "worksheet tab (defaults per variant)")
		headed     = flag.Bool("headed", false, "run the browser with a visible window")
		listEvents = flag.Bool("list-events", false, "log in, list available events and exit")
		email      = flag.String("email", "", "backoffice email (falls back to saved credentials)")
		password   = flag.String("password", "", "backoffice password (falls back to saved credentials)")
		saveCreds  = flag.Bool("save-credentials", false, "store the given credentials for later runs")
	)
	flag.Parse()

	if err := run(*configPath, *sheetURL, *eventName, *variantStr, *worksheet,
		*headed, *listEvents, *email, *password, *saveCreds); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, sheetURL, eventName, variantStr, worksheet string,
	headed, listEvents bool, email, password string, saveCreds bool) error {

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if sheetURL != "" {
		cfg.SheetURL = sheetURL
	}
	if headed {
		cfg.Headless = false
	}

	variant, err := parseVariant(variantStr)
	if err != nil {
		return err
	}
	if worksheet == "" {
		if variant == pos.NamedHolder {
			worksheet = cfg.NamedWorksheet
		} else {
			worksheet = cfg.AnonymousWorksheet
		}
	}

	logger := &pos.SimpleLogger{}

	if cfg.UpdateRepo != "" {
		go notifyNewVersion(cfg.UpdateRepo, logger)
	}

	email, password, err = resolveCredentials(email, password, saveCreds, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := pos.NewSession(pos.Options{
		BaseURL:  cfg.POSBaseURL,
		Headless: cfg.Headless,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Login(email, password); err != nil {
		return err
	}
	events, err := session.Events()
	if err != nil {
		return err
	}
	if listEvents {
		for _, ev := range events {
			fmt.Printf("%s\t%s\n", ev.ID, ev.Name)
		}
		return nil
	}

	event, err := pickEvent(events, eventName)
	if err != nil {
		return err
	}
	logger.Printf("Emitting for %q (variant %s, worksheet %s)", event.Name, variant, worksheet)

	client, err := sheets.NewClient(ctx, cfg.GoogleCredentials, cfg.SheetURL)
	if err != nil {
		return fmt.Errorf("could not open spreadsheet: %w", err)
	}
	ws, err := client.Worksheet(ctx, worksheet)
	if err != nil {
		return err
	}

	walker := pos.NewWalker(session, event)
	orch := batch.New(ws, walker, logger, batch.RowDelayFor(cfg.Headless))

	var bus *eventbus.NATSBus
	if cfg.NatsURL != "" {
		bus, err = eventbus.NewNATSBus(eventbus.NATSConfig{URL: cfg.NatsURL, Subject: cfg.NatsSubject})
		if err != nil {
			logger.Errorf("NATS unavailable, events disabled: %v", err)
			bus = nil
		} else {
			defer bus.Close()
		}
	}
	var hist *history.Store
	if cfg.RedisAddr != "" {
		hist = history.NewStore(cfg.RedisAddr, "")
		defer hist.Close()
	}

	run := history.RunRecord{
		ID:        uuid.NewString(),
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
		if bus != nil {
			evt := eventbus.EmissionEvent{
				EventID:   eventbus.NewEventID("row_", time.Now()),
				Source:    "ticketera-cli",
				Type:      eventbus.TypeRowResult,
				Timestamp: time.Now(),
				Sheet:     worksheet,
				Row:       r.Row,
				Variant:   r.Variant.String(),
				Outcome:   r.Outcome.Kind.String(),
				TicketID:  r.Outcome.TicketID,
				Detail:    r.Outcome.Reason,
			}
			if err := bus.Publish(ctx, evt); err != nil {
				logger.Errorf("row event not published: %v", err)
			}
		}
	}

	summary, err := orch.Process(ctx, variant)
	if err != nil {
		return err
	}

	run.FinishedAt = time.Now()
	run.Processed = summary.Processed
	run.Errors = summary.Errors
	run.Skipped = summary.Skipped
	run.Total = summary.Total
	if hist != nil {
		if err := hist.Record(ctx, run); err != nil {
			logger.Errorf("run history not recorded: %v", err)
		}
	}
	if bus != nil {
		evt := eventbus.EmissionEvent{
			EventID:   eventbus.NewEventID("run_", time.Now()),
			Source:    "ticketera-cli",
			Type:      eventbus.TypeBatchSummary,
			Timestamp: time.Now(),
			Sheet:     worksheet,
			Variant:   variant.String(),
			Summary: &eventbus.RunSummary{
				Processed: summary.Processed,
				Errors:    summary.Errors,
				Skipped:   summary.Skipped,
				Total:     summary.Total,
			},
		}
		if err := bus.Publish(ctx, evt); err != nil {
			logger.Errorf("summary event not published: %v", err)
		}
	}

	fmt.Printf("\nProcesadas: %d  Errores: %d  Salteadas: %d  Total: %d\n",
		summary.Processed, summary.Errors, summary.Skipped, summary.Total)
	return nil
}

// resolveCredentials prefers the flags and falls back to the encrypted
// store. With -save-credentials the given pair is persisted for later runs.
func resolveCredentials(email, password string, save bool, logger pos.Logger) (string, string, error) {
	store, err := credentials.NewStore("", "ticketera")
	if err != nil {
		store = nil
	}

	if email != "" && password != "" {
		if save && store != nil {
			if changed, err := store.UpdateIfChanged(email, password); err != nil {
				logger.Errorf("credentials not saved: %v", err)
			} else if changed {
				logger.Printf("Credentials saved")
			}
		}
		return email, password, nil
	}

	if store != nil {
		if e, p := store.Load(); e != "" && p != "" {
			return e, p, nil
		}
	}
	return "", "", fmt.Errorf("no credentials: pass -email and -password (add -save-credentials to remember them)")
}

func notifyNewVersion(repo string, logger pos.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	checker := update.NewChecker(repo, version.Version)
	newer, latest, err := checker.Check(ctx)
	if err != nil || !newer {
		return
	}
	logger.Printf("Version %s is available (running %s): %s", latest, version.Version, checker.ReleasesURL())
}

// pickEvent matches by exact name first, then by a unique case-insensitive
// substring.
func pickEvent(events []pos.Event, name string) (pos.Event, error) {
	if len(events) == 0 {
		return pos.Event{}, fmt.Errorf("no events available for this account")
	}
	if name == "" {
		if len(events) == 1 {
			return events[0], nil
		}
		return pos.Event{}, fmt.Errorf("several events available; pass -event (or -list-events to see them)")
	}
	for _, ev := range events {
		if ev.Name == name {
			return ev, nil
		}
	}
	var matches []pos.Event
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Name), strings.ToLower(name)) {
			matches = append(matches, ev)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return pos.Event{}, fmt.Errorf("no event matches %q", name)
	default:
		return pos.Event{}, fmt.Errorf("%q matches %d events; be more specific", name, len(matches))
	}
}

func parseVariant(name string) (pos.Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "nominada", "named":
		return pos.NamedHolder, nil
	case "innominada", "anonymous":
		return pos.Anonymous, nil
	default:
		return pos.NamedHolder, fmt.Errorf("unknown variant %q (want nominada or innominada)", name)
	}
}
