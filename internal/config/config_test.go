package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/microsync/internal/session"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlConfig = `
endpoint: http://users.internal:9000/register
database: /tmp/microsync.db
recent_limit: 5
timing:
  producing: 500ms
  local_append: 1s
`

const tomlConfig = `
endpoint = "http://users.internal:9000/register"
database = "/tmp/microsync.db"
recent_limit = 5

[timing]
producing = "500ms"
local_append = "1s"
`

const cueConfig = `
endpoint:     "http://users.internal:9000/register"
database:     "/tmp/microsync.db"
recent_limit: 5
timing: {
	producing:    "500ms"
	local_append: "1s"
}
`

func expectedOverlay() Config {
	want := Default()
	want.Endpoint = "http://users.internal:9000/register"
	want.Database = "/tmp/microsync.db"
	want.RecentLimit = 5
	want.Timing.Producing = Duration(500 * time.Millisecond)
	want.Timing.LocalAppend = Duration(time.Second)
	return want
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8081/register", cfg.Endpoint)
	assert.Equal(t, ":memory:", cfg.Database)
	assert.Equal(t, 3, cfg.RecentLimit)
	assert.Equal(t, 5500*time.Millisecond, cfg.RunWindow())
	assert.Equal(t, session.DefaultTiming(), cfg.SessionTiming())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FormatsAgree(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"microsync.yaml", yamlConfig},
		{"microsync.yml", yamlConfig},
		{"microsync.toml", tomlConfig},
		{"microsync.cue", cueConfig},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, expectedOverlay(), cfg)
		})
	}
}

func TestLoad_EmptyFilesKeepDefaults(t *testing.T) {
	for _, name := range []string{"empty.yaml", "empty.toml", "empty.cue"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, name, ""))
			require.NoError(t, err)
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"bad.yaml", "endpoint: http://x/register\nbroker: kafka\n"},
		{"bad.toml", "endpoint = \"http://x/register\"\nbroker = \"kafka\"\n"},
		{"bad.cue", "endpoint: \"http://x/register\"\nbroker: \"kafka\"\n"},
		{"nested.yaml", "timing:\n  retry: 1s\n"},
		{"nested.cue", "timing: retry: \"1s\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_RejectsBadDurations(t *testing.T) {
	tests := []struct {
		file    string
		content string
	}{
		{"bad.yaml", "timing:\n  producing: soon\n"},
		{"bad.toml", "[timing]\nproducing = \"soon\"\n"},
		{"bad.cue", "timing: producing: \"soon\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_CUESchemaTypeChecks(t *testing.T) {
	_, err := Load(writeFile(t, "bad.cue", "recent_limit: \"three\"\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.cue", "endpoint: \"ftp://x\"\n"))
	assert.Error(t, err)
}

func TestLoad_ValidatesResult(t *testing.T) {
	// Synced append after the end of the run.
	_, err := Load(writeFile(t, "late.yaml", "timing:\n  synced_append: 10s\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "microsync.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative endpoint", func(c *Config) { c.Endpoint = "/register" }},
		{"non-http endpoint", func(c *Config) { c.Endpoint = "ftp://host/register" }},
		{"empty database", func(c *Config) { c.Database = "" }},
		{"negative recent limit", func(c *Config) { c.RecentLimit = -1 }},
		{"empty time format", func(c *Config) { c.TimeFormat = "" }},
		{"zero dwell", func(c *Config) { c.Timing.Publishing = 0 }},
		{"zero local append", func(c *Config) { c.Timing.LocalAppend = 0 }},
		{"synced before local", func(c *Config) { c.Timing.SyncedAppend = Duration(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestScaled(t *testing.T) {
	cfg := Default().Scaled(0.5)

	assert.Equal(t, Duration(500*time.Millisecond), cfg.Timing.Producing)
	assert.Equal(t, Duration(750*time.Millisecond), cfg.Timing.LocalAppend)
	assert.Equal(t, 2750*time.Millisecond, cfg.RunWindow())
	require.NoError(t, cfg.Validate())
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("90")))
}
