// Package sources holds the external data source adapters. Adapters parse
// provider payloads into candidate records; network access goes through the
// Fetcher so parsing stays testable offline.
package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"crosscheck/internal/domain"
)

// Criteria is one search issued against a source. Name is always set; the
// remaining fields narrow the search when the identity provides them.
type Criteria struct {
	Name        string
	DateOfBirth string
	Nationality string
	FreeText    string
}

// CacheKey produces a stable key for the criteria, independent of how the
// criteria were assembled.
func (c Criteria) CacheKey() string {
	h := sha256.New()
	h.Write([]byte(strings.Join([]string{c.Name, c.DateOfBirth, c.Nationality, c.FreeText}, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))[:24]
}

// Adapter queries a single external source. Implementations return raw
// candidates; scoring and acceptance happen downstream.
type Adapter interface {
	ID() domain.SourceID
	Category() domain.SourceCategory
	Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error)
}
