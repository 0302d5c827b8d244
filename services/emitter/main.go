// Command emitter exposes the ticket emission pipeline over HTTP: connect
// to the point of sale, list events and run spreadsheet batches, one at a
// time.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"ticketera/config"
	"ticketera/update"
	"ticketera/version"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := newApp(cfg)
	defer app.shutdown()

	scheduler := cron.New()
	if cfg.UpdateRepo != "" {
		checker := update.NewChecker(cfg.UpdateRepo, version.Version)
		checkUpdate := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			newer, latest, err := checker.Check(ctx)
			if err != nil {
				return // silent; next cycle retries
			}
			if newer {
				app.logger.Printf("Version %s is available (running %s): %s",
					latest, version.Version, checker.ReleasesURL())
			}
		}
		go checkUpdate()
		if _, err := scheduler.AddFunc("@every 6h", checkUpdate); err != nil {
			log.Printf("update schedule not registered: %v", err)
		}
	}
	if cfg.WatchSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.WatchSchedule, app.rerunLast); err != nil {
			log.Printf("watch schedule %q not registered: %v", cfg.WatchSchedule, err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      app.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("ticketera emitter %s listening on %s", version.Version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
