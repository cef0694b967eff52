package registration

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Registration is a registered user as the user service reports it.
// CreatedAt is a time-of-day display string.
type Registration struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

// Source tells which path produced an Outcome.
type Source int

const (
	// SourceRemote: the backend answered and its body was decoded.
	SourceRemote Source = iota
	// SourceFallback: the record was synthesized locally.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// MarshalText encodes the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a source name.
func (s *Source) UnmarshalText(text []byte) error {
	switch string(text) {
	case "remote":
		*s = SourceRemote
	case "fallback":
		*s = SourceFallback
	default:
		return fmt.Errorf("unknown source %q", text)
	}
	return nil
}

// Outcome is the result of one registration attempt.
type Outcome struct {
	Source       Source       `json:"source"`
	Registration Registration `json:"registration"`

	// Reason explains a fallback. Nil for SourceRemote.
	Reason error `json:"-"`
}

// IsFallback reports whether the record was synthesized locally.
func (o Outcome) IsFallback() bool {
	return o.Source == SourceFallback
}

// LocalIDPrefix marks ids that were not assigned by the backend.
const LocalIDPrefix = "local-"

// IsLocalID reports whether id belongs to the local fallback namespace.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// IDGenerator produces fallback ids.
type IDGenerator interface {
	Generate() string
}

// LocalIDGenerator generates "local-<uuid>" ids.
//
// Thread-safety: LocalIDGenerator is stateless and safe for concurrent use.
type LocalIDGenerator struct{}

// Generate returns a fresh id in the local namespace.
func (LocalIDGenerator) Generate() string {
	return LocalIDPrefix + uuid.NewString()
}
