package domain

import "time"

// Decision is the matcher's verdict on a candidate.
type Decision string

const (
	DecisionAccepted    Decision = "accepted"
	DecisionNeedsReview Decision = "needs_review"
	DecisionRejected    Decision = "rejected"
)

// MatchedField names a corroborating identity field.
type MatchedField string

const (
	FieldName        MatchedField = "name"
	FieldDateOfBirth MatchedField = "dob"
	FieldNationality MatchedField = "nationality"
	FieldOccupation  MatchedField = "occupation_keyword"
)

// MatchDecision pairs a candidate with the matcher's score and verdict.
// Immutable once created; re-evaluation produces a new value.
type MatchDecision struct {
	Candidate     Candidate      `json:"candidate"`
	Score         float64        `json:"score"`
	MatchedFields []MatchedField `json:"matched_fields,omitempty"`
	Decision      Decision       `json:"decision"`
	Reason        string         `json:"reason,omitempty"`
}

// Corroborated reports whether any field beyond the name itself matched.
// Name-only matches are never accepted, however similar the strings are.
func (m MatchDecision) Corroborated() bool {
	for _, f := range m.MatchedFields {
		if f != FieldName {
			return true
		}
	}
	return false
}

// EvidenceEntry is one retained match decision with its position in the
// run-global append order. Seq is assigned at append time by the evidence
// log's single writer, so replaying a run reproduces the same sequence.
type EvidenceEntry struct {
	Seq        int           `json:"seq"`
	Round      int           `json:"round"`
	Decision   MatchDecision `json:"decision"`
	AppendedAt time.Time     `json:"appended_at"`
}

// EvidenceLog is the ordered, append-only record of retained decisions
// (accepted and needs_review). Risk scoring reads from here and nowhere else.
type EvidenceLog struct {
	entries []EvidenceEntry
}

// Append adds an entry and assigns its sequence number. The controller is the
// only writer; no locking happens here.
func (l *EvidenceLog) Append(round int, d MatchDecision, at time.Time) EvidenceEntry {
	e := EvidenceEntry{
		Seq:        len(l.entries) + 1,
		Round:      round,
		Decision:   d,
		AppendedAt: at,
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns the log in append order. The slice is a copy; the log
// itself cannot be edited through it.
func (l *EvidenceLog) Entries() []EvidenceEntry {
	out := make([]EvidenceEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *EvidenceLog) Len() int { return len(l.entries) }

// Restore rebuilds a log from persisted entries, preserving their sequence
// numbers. Used when resuming a run from a snapshot.
func (l *EvidenceLog) Restore(entries []EvidenceEntry) {
	l.entries = make([]EvidenceEntry, len(entries))
	copy(l.entries, entries)
}
