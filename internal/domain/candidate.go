package domain

import (
	"time"

	id "crosscheck/pkg/domain"
)

// SourceID and CandidateID alias the shared identifier types so code
// handling candidates needs only this package.
type (
	SourceID    = id.SourceID
	CandidateID = id.CandidateID
)

// NewCandidateID mints an identifier for a freshly retrieved candidate.
func NewCandidateID() CandidateID { return id.NewCandidateID() }

// SourceCategory classifies what kind of signal a source contributes.
// Risk scoring branches on the category of the evidence, never on the
// concrete source.
type SourceCategory string

const (
	CategorySanctions    SourceCategory = "sanctions"
	CategoryPEP          SourceCategory = "pep"
	CategoryAdverseMedia SourceCategory = "adverse_media"
	CategoryWebSearch    SourceCategory = "web_search"
)

// Candidate is one retrieved record from one source. It is owned by the
// adapter that produced it and passed by value downstream; nothing mutates a
// candidate after retrieval.
type Candidate struct {
	ID          id.CandidateID `json:"id"`
	Source      id.SourceID    `json:"source"`
	Category    SourceCategory `json:"category"`
	Title       string         `json:"title"`
	Snippet     string         `json:"snippet,omitempty"`
	URL         string         `json:"url,omitempty"`
	Name        string         `json:"name"`                    // extracted subject name, may differ from Title
	DateOfBirth string         `json:"date_of_birth,omitempty"` // YYYY-MM-DD when the source provides it
	Nationality string         `json:"nationality,omitempty"`
	Roles       []string       `json:"roles,omitempty"` // positions/occupations attributed to the record
	Countries   []string       `json:"countries,omitempty"`
	Aliases     []string       `json:"aliases,omitempty"`
	// Sentiment is source-assessed tone for media records: "negative",
	// "positive", or "" when the source does not classify.
	Sentiment   string    `json:"sentiment,omitempty"`
	Rank        int       `json:"rank"` // position in the source's relevance order, 0 = first
	RetrievedAt time.Time `json:"retrieved_at"`
}
