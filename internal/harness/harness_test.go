package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_TestdataScenariosPass(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: expectations that do not hold
steps:
  - at: 0s
    submit: {name: Ada Lovelace, email: ada@example.com}
  - at: 1s
    expect: {stage: idle, local_count: 1, network_calls: 0}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, `steps[1] at 1s: stage: expected idle, got persisted`, result.Errors[0])
	assert.Contains(t, result.Errors[1], "local_count: expected 1, got 0")
	assert.Contains(t, result.Errors[2], "network_calls: expected 0, got 1")
}

func TestRun_NextTimer(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: timers
description: earliest pending timer after each step
steps:
  - at: 0s
    submit: {name: Ada Lovelace, email: ada@example.com}
    expect: {next_timer: 1s}
  - at: 1s
    expect: {next_timer: 1500ms}
  - at: 5500ms
    expect: {next_timer: 6s}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"steps[2] at 5.5s: next_timer: expected 6s, got none"}, result.Errors)
}

func TestRun_UnexpectedSubmitError(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: blank
description: submission that fails without expect_error
steps:
  - at: 0s
    submit: {name: "", email: ada@example.com}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "submit failed")
	assert.Contains(t, result.Errors[0], "INVALID_INPUT")
}

func TestRun_WrongExpectedError(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong-code
description: expect_error that does not match
steps:
  - at: 0s
    submit: {name: Ada, email: ada@example.com, expect_error: RUN_IN_PROGRESS}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_TraceStopsAtLastStep(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: unfinished
description: scenario ends mid-run
steps:
  - at: 0s
    submit: {name: Ada, email: ada@example.com}
  - at: 1s
    expect: {stage: persisted}
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass)

	// submitted, producing, persisted; teardown on close is not traced
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "persisted", result.Trace[2].To)
}

func TestRun_CancelTrace(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/cancel-midrun.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	var kinds []string
	for _, ev := range result.Trace {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []string{"submitted", "stage", "stage", "stage", "cancelled"}, kinds)
	assert.True(t, result.Trace[3].Cancelled)
	assert.Equal(t, "1.2s", result.Trace[3].At)
	assert.Equal(t, "cancelled", result.Trace[4].Reason)
}
