package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://pos.buenalive.com", cfg.POSBaseURL)
	assert.Equal(t, "Nominadas", cfg.NamedWorksheet)
	assert.Equal(t, "Innominadas", cfg.AnonymousWorksheet)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "ticketera.emissions", cfg.NatsSubject)
	assert.Equal(t, 8093, cfg.HTTPPort)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
pos_base_url: https://pos.example.com
sheet_url: https://docs.google.com/spreadsheets/d/abc123/edit
named_worksheet: Lista
headless: false
http_port: 9000
redis_addr: localhost:6379
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://pos.example.com", cfg.POSBaseURL)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/abc123/edit", cfg.SheetURL)
	assert.Equal(t, "Lista", cfg.NamedWorksheet)
	// Untouched keys keep their defaults.
	assert.Equal(t, "Innominadas", cfg.AnonymousWorksheet)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Nominadas", cfg.NamedWorksheet)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pos_base_url: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pos_base_url: https://file.example.com\n"), 0o644))

	t.Setenv("POS_BASE_URL", "https://env.example.com")
	t.Setenv("HEADLESS", "false")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("WATCH_SCHEDULE", "*/5 * * * *")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.POSBaseURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, "nats://localhost:4222", cfg.NatsURL)
	assert.Equal(t, "*/5 * * * *", cfg.WatchSchedule)
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	t.Setenv("HEADLESS", "maybe")
	t.Setenv("HTTP_PORT", "not-a-port")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Headless)
	assert.Equal(t, 8093, cfg.HTTPPort)
}
