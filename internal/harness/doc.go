// Package harness runs timed scenarios against a simulated session.
//
// A scenario drives one session on simulated time: the clock jumps to each
// step's offset, the step's action runs, and its expectation is matched
// against the session view. Every session event is captured as a trace for
// golden comparison.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: ada-offline
//	description: "Backend unreachable; the run completes with a local id"
//	backend:
//	  mode: offline          # or: respond, with status and body
//	steps:
//	  - at: 0s
//	    submit: { name: Ada Lovelace, email: ada@example.com }
//	  - at: 1500ms
//	    expect:
//	      stage: persisted
//	      local_count: 1
//	      latest_local: { id_prefix: "local-", name: Ada Lovelace }
//	  - at: 5500ms
//	    expect:
//	      stage: idle
//	      can_submit: true
//	      form: { name: "", email: "" }
//
// Step actions are submit (optionally with expect_error), form, cancel and
// reset. Expectations are subset matches: unset fields are not checked.
//
// # Deterministic Testing
//
// The harness uses:
//   - A manual clock starting at testutil.Epoch
//   - Sequential run ids (run-1, run-2, ...) and fallback ids (local-1, ...)
//   - A stub transport in place of the user service
//   - In-memory SQLite database (isolated per scenario)
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/ada-offline.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
