package engine

import (
	"errors"
	"fmt"
	"time"
)

// Stage is one named phase of a simulated run.
type Stage int

const (
	// StageIdle is the initial and terminal stage.
	StageIdle Stage = iota
	// StageProducing: the user service is handling the registration.
	StageProducing
	// StagePersisted: the user has been written to the user service's store.
	StagePersisted
	// StagePublishing: the registration event is on the bus.
	StagePublishing
	// StageConsuming: the profile service is consuming the event.
	StageConsuming
)

var stageNames = [...]string{
	StageIdle:       "idle",
	StageProducing:  "producing",
	StagePersisted:  "persisted",
	StagePublishing: "publishing",
	StageConsuming:  "consuming",
}

// Stages lists every stage in run order, starting at Idle.
func Stages() []Stage {
	return []Stage{StageIdle, StageProducing, StagePersisted, StagePublishing, StageConsuming}
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stageNames) {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageIdle, fmt.Errorf("unknown stage %q", name)
}

// Next returns the stage that follows s in a run.
// Consuming wraps around to Idle; Idle starts a run at Producing.
func Next(s Stage) Stage {
	switch s {
	case StageIdle:
		return StageProducing
	case StageProducing:
		return StagePersisted
	case StagePersisted:
		return StagePublishing
	case StagePublishing:
		return StageConsuming
	default:
		return StageIdle
	}
}

// Choreography holds how long a run dwells in each active stage.
type Choreography struct {
	Producing  time.Duration
	Persisted  time.Duration
	Publishing time.Duration
	Consuming  time.Duration
}

// DefaultChoreography returns the standard pacing: 1s producing, then 1.5s
// in each of persisted, publishing and consuming.
func DefaultChoreography() Choreography {
	return Choreography{
		Producing:  1000 * time.Millisecond,
		Persisted:  1500 * time.Millisecond,
		Publishing: 1500 * time.Millisecond,
		Consuming:  1500 * time.Millisecond,
	}
}

// ErrInvalidChoreography is wrapped by Validate failures.
var ErrInvalidChoreography = errors.New("invalid choreography")

// Dwell returns how long a run stays in s. Idle has no dwell.
func (c Choreography) Dwell(s Stage) time.Duration {
	switch s {
	case StageProducing:
		return c.Producing
	case StagePersisted:
		return c.Persisted
	case StagePublishing:
		return c.Publishing
	case StageConsuming:
		return c.Consuming
	default:
		return 0
	}
}

// Total returns the length of a full run.
func (c Choreography) Total() time.Duration {
	return c.Producing + c.Persisted + c.Publishing + c.Consuming
}

// Validate checks that every active stage has a positive dwell.
func (c Choreography) Validate() error {
	for _, s := range Stages()[1:] {
		if c.Dwell(s) <= 0 {
			return fmt.Errorf("%w: %s dwell must be positive, got %s", ErrInvalidChoreography, s, c.Dwell(s))
		}
	}
	return nil
}

// Scaled returns the choreography with every dwell multiplied by factor.
func (c Choreography) Scaled(factor float64) Choreography {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * factor)
	}
	return Choreography{
		Producing:  scale(c.Producing),
		Persisted:  scale(c.Persisted),
		Publishing: scale(c.Publishing),
		Consuming:  scale(c.Consuming),
	}
}

// Step is a scheduled transition: at offset At from run start, the run
// enters Stage.
type Step struct {
	At    time.Duration
	Stage Stage
}

// Plan returns the transitions that follow the initial Producing stage, as
// offsets from run start. The last step always enters Idle.
//
// With the default choreography:
//
//	1000ms → persisted, 2500ms → publishing, 4000ms → consuming, 5500ms → idle
func (c Choreography) Plan() []Step {
	steps := make([]Step, 0, 4)
	var at time.Duration
	for s := StageProducing; s != StageIdle; s = Next(s) {
		at += c.Dwell(s)
		steps = append(steps, Step{At: at, Stage: Next(s)})
	}
	return steps
}
