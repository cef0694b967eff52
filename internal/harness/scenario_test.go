package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_AdaOffline(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/ada-offline.yaml")
	require.NoError(t, err)

	assert.Equal(t, "ada-offline", s.Name)
	assert.Equal(t, BackendOffline, s.Backend.Mode)
	require.Len(t, s.Steps, 6)

	first := s.Steps[0]
	assert.Equal(t, time.Duration(0), first.At)
	require.NotNil(t, first.Submit)
	assert.Equal(t, "Ada Lovelace", first.Submit.Name)
	require.NotNil(t, first.Expect)
	require.NotNil(t, first.Expect.Running)
	assert.True(t, *first.Expect.Running)

	assert.Equal(t, 1500*time.Millisecond, s.Steps[2].At)
	assert.Equal(t, "local-", s.Steps[2].Expect.LatestLocal.IDPrefix)
	assert.True(t, s.Steps[4].Expect.LatestSynced.UserIDMatchesLocal)
	require.NotNil(t, s.Steps[1].Expect.NextTimer)
	assert.Equal(t, 1500*time.Millisecond, *s.Steps[1].Expect.NextTimer)
}

func TestLoadScenario_AllTestdataParse(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_DefaultsToOffline(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: x
description: y
steps:
  - at: 0s
    cancel: true
`))
	require.NoError(t, err)
	assert.Equal(t, BackendOffline, s.Backend.Mode)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nstepz: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nsteps:\n  - {at: 0s, cancel: true}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps:\n  - {at: 0s, cancel: true}\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: y\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown backend",
			yaml:    "name: x\ndescription: y\nbackend: {mode: flaky}\nsteps:\n  - {at: 0s, cancel: true}\n",
			wantErr: "unknown mode",
		},
		{
			name:    "respond without status",
			yaml:    "name: x\ndescription: y\nbackend: {mode: respond}\nsteps:\n  - {at: 0s, cancel: true}\n",
			wantErr: "not an HTTP status",
		},
		{
			name:    "decreasing offsets",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 2s, cancel: true}\n  - {at: 1s, cancel: true}\n",
			wantErr: "before the previous step",
		},
		{
			name:    "two actions",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 0s, cancel: true, reset: true}\n",
			wantErr: "at most one of",
		},
		{
			name:    "empty step",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 0s}\n",
			wantErr: "an action or expect is required",
		},
		{
			name:    "bad stage",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 0s, expect: {stage: shipping}}\n",
			wantErr: "steps[0].expect",
		},
		{
			name:    "user id match on local",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 0s, expect: {latest_local: {user_id_matches_local: true}}}\n",
			wantErr: "latest_synced only",
		},
		{
			name:    "next timer in the past",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: 2s, expect: {next_timer: 1s}}\n",
			wantErr: "next_timer 1s is before the step",
		},
		{
			name:    "bad duration",
			yaml:    "name: x\ndescription: y\nsteps:\n  - {at: soon, cancel: true}\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FromTempDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := "name: tmp\ndescription: d\nsteps:\n  - at: 0s\n    form: {name: Ada, email: \"\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.NotNil(t, s.Steps[0].Form)
	assert.Equal(t, "Ada", s.Steps[0].Form.Name)
}
