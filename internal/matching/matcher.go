package matching

import (
	"fmt"
	"log/slog"
	"strings"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
)

// Matcher decides whether a retrieved candidate refers to the screening
// subject. It is deterministic: same identity, candidate, and configuration
// always yield the same decision.
type Matcher struct {
	minSimilarity   float64
	acceptThreshold float64
	bonus           float64
	roleKeywords    map[string]struct{}
	logger          *slog.Logger
}

// New constructs a matcher from the matching configuration.
func New(cfg config.Matching, logger *slog.Logger) *Matcher {
	return &Matcher{
		minSimilarity:   cfg.MinSimilarity,
		acceptThreshold: cfg.AcceptThreshold,
		bonus:           cfg.CorroborationBonus,
		roleKeywords:    keywordSet(cfg.RoleKeywords),
		logger:          logger.With("component", "matcher"),
	}
}

// Evaluate scores a candidate against the subject identity.
//
// Name similarity gates everything: below the floor the candidate is
// rejected outright. At or above it, each corroborating field (exact DOB,
// exact nationality, role keyword overlap) adds a fixed bonus, capped at
// 1.0. A name-only match never reaches accepted regardless of similarity;
// common names make pure textual identity too weak a signal.
func (m *Matcher) Evaluate(identity domain.ClientIdentity, cand domain.Candidate) domain.MatchDecision {
	nameScore := m.nameSimilarity(identity, cand)

	if nameScore < m.minSimilarity {
		return domain.MatchDecision{
			Candidate: cand,
			Score:     nameScore,
			Decision:  domain.DecisionRejected,
			Reason:    fmt.Sprintf("name similarity %.2f below floor %.2f", nameScore, m.minSimilarity),
		}
	}

	fields := []domain.MatchedField{domain.FieldName}
	score := nameScore

	if identity.DateOfBirth != "" && cand.DateOfBirth != "" && identity.DateOfBirth == cand.DateOfBirth {
		fields = append(fields, domain.FieldDateOfBirth)
		score += m.bonus
	}
	if identity.Nationality != "" && cand.Nationality != "" && Fold(identity.Nationality) == Fold(cand.Nationality) {
		fields = append(fields, domain.FieldNationality)
		score += m.bonus
	}
	if m.occupationOverlap(identity, cand) {
		fields = append(fields, domain.FieldOccupation)
		score += m.bonus
	}
	if score > 1.0 {
		score = 1.0
	}

	decision := domain.MatchDecision{
		Candidate:     cand,
		Score:         score,
		MatchedFields: fields,
	}

	switch {
	case score >= m.acceptThreshold && decision.Corroborated():
		decision.Decision = domain.DecisionAccepted
		decision.Reason = "name match with corroborating fields"
	case !decision.Corroborated():
		decision.Decision = domain.DecisionNeedsReview
		decision.Reason = "name-only match, no corroborating field"
	default:
		decision.Decision = domain.DecisionNeedsReview
		decision.Reason = fmt.Sprintf("score %.2f below accept threshold %.2f", score, m.acceptThreshold)
	}

	m.logger.Debug("candidate evaluated",
		"source", cand.Source,
		"candidate", cand.ID,
		"score", decision.Score,
		"decision", decision.Decision,
	)
	return decision
}

// nameSimilarity takes the best score across the candidate's primary name
// and its aliases. Title is a fallback when the source extracted no name.
func (m *Matcher) nameSimilarity(identity domain.ClientIdentity, cand domain.Candidate) float64 {
	names := make([]string, 0, 2+len(cand.Aliases))
	if cand.Name != "" {
		names = append(names, cand.Name)
	} else if cand.Title != "" {
		names = append(names, cand.Title)
	}
	names = append(names, cand.Aliases...)

	best := 0.0
	for _, n := range names {
		if s := Similarity(identity.Name, n); s > best {
			best = s
		}
	}
	return best
}

// occupationOverlap reports whether the candidate's role text shares a token
// with the role keyword set or with the subject's declared occupation.
func (m *Matcher) occupationOverlap(identity domain.ClientIdentity, cand domain.Candidate) bool {
	var roleText strings.Builder
	for _, r := range cand.Roles {
		roleText.WriteString(r)
		roleText.WriteByte(' ')
	}
	roleText.WriteString(cand.Title)
	tokens := Tokens(roleText.String())
	if len(tokens) == 0 {
		return false
	}

	occupation := make(map[string]struct{})
	for _, t := range Tokens(identity.Occupation) {
		occupation[t] = struct{}{}
	}

	for _, t := range tokens {
		if _, ok := m.roleKeywords[t]; ok {
			return true
		}
		if _, ok := occupation[t]; ok {
			return true
		}
	}
	return false
}
