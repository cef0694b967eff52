package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/roach88/microsync/internal/engine"
	"github.com/roach88/microsync/internal/registration"
	"github.com/roach88/microsync/internal/session"
	"github.com/roach88/microsync/internal/store"
)

// ErrInvalidConfig is wrapped by Validate failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds every microsync setting.
type Config struct {
	// Endpoint is the user service registration URL.
	Endpoint string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`

	// Database is the SQLite path of the record store. ":memory:" keeps
	// nothing after exit.
	Database string `json:"database" yaml:"database" toml:"database"`

	// Listen is the HTTP address of `microsync serve`.
	Listen string `json:"listen" yaml:"listen" toml:"listen"`

	// RecentLimit is how many records each store view shows.
	RecentLimit int `json:"recent_limit" yaml:"recent_limit" toml:"recent_limit"`

	// TimeFormat is the layout of createdAt and syncedAt.
	TimeFormat string `json:"time_format" yaml:"time_format" toml:"time_format"`

	Timing Timing `json:"timing" yaml:"timing" toml:"timing"`
}

// Timing holds stage dwell times and append delays.
type Timing struct {
	Producing    Duration `json:"producing" yaml:"producing" toml:"producing"`
	Persisted    Duration `json:"persisted" yaml:"persisted" toml:"persisted"`
	Publishing   Duration `json:"publishing" yaml:"publishing" toml:"publishing"`
	Consuming    Duration `json:"consuming" yaml:"consuming" toml:"consuming"`
	LocalAppend  Duration `json:"local_append" yaml:"local_append" toml:"local_append"`
	SyncedAppend Duration `json:"synced_append" yaml:"synced_append" toml:"synced_append"`
}

// Default returns the built-in settings.
func Default() Config {
	c := engine.DefaultChoreography()
	t := session.DefaultTiming()
	return Config{
		Endpoint:    registration.DefaultEndpoint,
		Database:    store.MemoryPath,
		Listen:      "127.0.0.1:8080",
		RecentLimit: session.DefaultRecentLimit,
		TimeFormat:  registration.DisplayLayout,
		Timing: Timing{
			Producing:    Duration(c.Producing),
			Persisted:    Duration(c.Persisted),
			Publishing:   Duration(c.Publishing),
			Consuming:    Duration(c.Consuming),
			LocalAppend:  Duration(t.LocalAppend),
			SyncedAppend: Duration(t.SyncedAppend),
		},
	}
}

// Choreography returns the engine pacing.
func (c Config) Choreography() engine.Choreography {
	return engine.Choreography{
		Producing:  c.Timing.Producing.Std(),
		Persisted:  c.Timing.Persisted.Std(),
		Publishing: c.Timing.Publishing.Std(),
		Consuming:  c.Timing.Consuming.Std(),
	}
}

// SessionTiming returns the append delays.
func (c Config) SessionTiming() session.Timing {
	return session.Timing{
		LocalAppend:  c.Timing.LocalAppend.Std(),
		SyncedAppend: c.Timing.SyncedAppend.Std(),
	}
}

// Validate checks every setting.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: endpoint %q must be an absolute http(s) URL", ErrInvalidConfig, c.Endpoint)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database must not be empty", ErrInvalidConfig)
	}
	if c.RecentLimit < 0 {
		return fmt.Errorf("%w: recent_limit %d must not be negative", ErrInvalidConfig, c.RecentLimit)
	}
	if c.TimeFormat == "" {
		return fmt.Errorf("%w: time_format must not be empty", ErrInvalidConfig)
	}

	choreo := c.Choreography()
	if err := choreo.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.SessionTiming().Validate(choreo.Total()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Scaled returns c with every timing multiplied by factor.
func (c Config) Scaled(factor float64) Config {
	scale := func(d Duration) Duration {
		return Duration(float64(d) * factor)
	}
	c.Timing = Timing{
		Producing:    scale(c.Timing.Producing),
		Persisted:    scale(c.Timing.Persisted),
		Publishing:   scale(c.Timing.Publishing),
		Consuming:    scale(c.Timing.Consuming),
		LocalAppend:  scale(c.Timing.LocalAppend),
		SyncedAppend: scale(c.Timing.SyncedAppend),
	}
	return c
}

// RunWindow returns the duration of one run.
func (c Config) RunWindow() time.Duration {
	return c.Choreography().Total()
}
