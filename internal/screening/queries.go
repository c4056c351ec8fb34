package screening

import (
	"strings"

	"crosscheck/internal/domain"
	"crosscheck/internal/sources"
)

// refinementTerms is the fallback suggestion cycle once the identity's own
// search terms are exhausted.
var refinementTerms = []string{
	"sanctions", "fraud", "investigation", "court case", "corruption",
}

// round1Criteria derives the fixed automatic queries from the identity:
// name-only always, plus nationality and occupation narrowing when those
// fields are present. One to three queries.
func round1Criteria(identity domain.ClientIdentity) []sources.Criteria {
	out := []sources.Criteria{{
		Name:        identity.Name,
		DateOfBirth: identity.DateOfBirth,
	}}
	if identity.Nationality != "" {
		out = append(out, sources.Criteria{
			Name:        identity.Name,
			DateOfBirth: identity.DateOfBirth,
			Nationality: identity.Nationality,
		})
	}
	if identity.Occupation != "" {
		out = append(out, sources.Criteria{
			Name:        identity.Name,
			DateOfBirth: identity.DateOfBirth,
			FreeText:    identity.Name + " " + identity.Occupation,
		})
	}
	return out
}

// suggestQuery proposes the next refinement: the identity's own search terms
// first, then the canned refinement cycle.
func suggestQuery(identity domain.ClientIdentity, roundsRun int) string {
	// Round 1 is automatic, so the first suggestion serves round 2.
	n := roundsRun - 1
	if n < 0 {
		n = 0
	}
	if n < len(identity.SearchTerms) {
		return identity.Name + " " + identity.SearchTerms[n]
	}
	n -= len(identity.SearchTerms)
	return identity.Name + " " + refinementTerms[n%len(refinementTerms)]
}

// customCriteria wraps an operator-supplied free-text query.
func customCriteria(identity domain.ClientIdentity, query string) sources.Criteria {
	return sources.Criteria{
		Name:        identity.Name,
		DateOfBirth: identity.DateOfBirth,
		Nationality: identity.Nationality,
		FreeText:    strings.TrimSpace(query),
	}
}

func queryStrings(criteria []sources.Criteria) []string {
	out := make([]string, len(criteria))
	for i, c := range criteria {
		switch {
		case c.FreeText != "":
			out[i] = c.FreeText
		case c.Nationality != "":
			out[i] = c.Name + " " + c.Nationality
		default:
			out[i] = c.Name
		}
	}
	return out
}
