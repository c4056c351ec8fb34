package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed identifiers for the screening run lifecycle. Distinct types keep a
// RunID from ever being passed where a CandidateID is expected; the compiler
// enforces what code review would otherwise have to catch.

// RunID identifies one screening run.
type RunID uuid.UUID

// CandidateID identifies one retrieved record within a run.
type CandidateID uuid.UUID

// SourceID identifies a configured external source (e.g. "ofac", "newsapi").
type SourceID string

// NewRunID returns a fresh random run identifier.
func NewRunID() RunID {
	return RunID(uuid.New())
}

// NewCandidateID returns a fresh random candidate identifier.
func NewCandidateID() CandidateID {
	return CandidateID(uuid.New())
}

// ParseRunID validates and returns a RunID. The nil UUID is rejected so a
// zero value can never masquerade as a real run.
func ParseRunID(s string) (RunID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return RunID{}, fmt.Errorf("run id: %w", err)
	}
	return RunID(u), nil
}

// ParseCandidateID validates and returns a CandidateID.
func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return CandidateID{}, fmt.Errorf("candidate id: %w", err)
	}
	return CandidateID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("empty identifier")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("malformed identifier: %w", err)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil identifier")
	}
	return u, nil
}

func (r RunID) String() string { return uuid.UUID(r).String() }

// MarshalText renders the id in canonical UUID form for JSON and friends.
func (r RunID) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RunID) UnmarshalText(data []byte) error {
	parsed, err := ParseRunID(string(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// IsNil reports whether the run ID is the zero value.
func (r RunID) IsNil() bool { return uuid.UUID(r) == uuid.Nil }

func (c CandidateID) String() string { return uuid.UUID(c).String() }

func (c CandidateID) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CandidateID) UnmarshalText(data []byte) error {
	parsed, err := ParseCandidateID(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IsNil reports whether the candidate ID is the zero value.
func (c CandidateID) IsNil() bool { return uuid.UUID(c) == uuid.Nil }

func (s SourceID) String() string { return string(s) }
