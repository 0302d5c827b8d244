// Package config loads the emitter configuration from an optional YAML
// file with environment variable overrides. A .env file next to the
// binary is honored when present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the full emitter configuration.
type Config struct {
	// POSBaseURL is the root of the point-of-sale web application.
	POSBaseURL string `yaml:"pos_base_url"`

	// SheetURL is the Google Sheet URL (or bare spreadsheet id).
	SheetURL string `yaml:"sheet_url"`
	// GoogleCredentials is the path to the service account JSON file.
	GoogleCredentials string `yaml:"google_credentials"`
	// NamedWorksheet and AnonymousWorksheet are the tab names for the
	// two emission variants.
	NamedWorksheet     string `yaml:"named_worksheet"`
	AnonymousWorksheet string `yaml:"anonymous_worksheet"`

	// Headless controls whether the browser runs without a visible
	// surface. Timeouts and click dispatch adapt to this.
	Headless bool `yaml:"headless"`

	// NatsURL enables emission event publishing when non-empty.
	NatsURL     string `yaml:"nats_url"`
	NatsSubject string `yaml:"nats_subject"`

	// RedisAddr enables the run-history store when non-empty.
	RedisAddr string `yaml:"redis_addr"`

	// HTTPPort is the control service listen port.
	HTTPPort int `yaml:"http_port"`

	// WatchSchedule is an optional cron expression; when set the
	// service re-scans the sheet for new rows on that schedule.
	WatchSchedule string `yaml:"watch_schedule"`

	// UpdateRepo is the owner/name GitHub repository polled for
	// releases. Empty disables update checks.
	UpdateRepo string `yaml:"update_repo"`
}

// Load builds a Config from defaults, then the YAML file at path (if it
// exists), then environment variables. Missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		POSBaseURL:         "https://pos.buenalive.com",
		NamedWorksheet:     "Nominadas",
		AnonymousWorksheet: "Innominadas",
		GoogleCredentials:  "credentials.json",
		Headless:           true,
		NatsSubject:        "ticketera.emissions",
		HTTPPort:           8093,
		UpdateRepo:         "juanbanchero/buena-productora",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if v := os.Getenv("POS_BASE_URL"); v != "" {
		cfg.POSBaseURL = v
	}
	if v := os.Getenv("SHEET_URL"); v != "" {
		cfg.SheetURL = v
	}
	if v := os.Getenv("GOOGLE_CREDENTIALS"); v != "" {
		cfg.GoogleCredentials = v
	}
	if v := os.Getenv("NAMED_WORKSHEET"); v != "" {
		cfg.NamedWorksheet = v
	}
	if v := os.Getenv("ANONYMOUS_WORKSHEET"); v != "" {
		cfg.AnonymousWorksheet = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NatsURL = v
	}
	if v := os.Getenv("NATS_SUBJECT"); v != "" {
		cfg.NatsSubject = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = p
		}
	}
	if v := os.Getenv("WATCH_SCHEDULE"); v != "" {
		cfg.WatchSchedule = v
	}
	if v := os.Getenv("UPDATE_REPO"); v != "" {
		cfg.UpdateRepo = v
	}

	return cfg, nil
}
