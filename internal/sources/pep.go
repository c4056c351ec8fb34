package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/pkg/platform/sentinel"
	pstrings "crosscheck/pkg/platform/strings"
)

// PEPAdapter queries a politically exposed persons registry. Registry entries
// carry held positions and family members; positions become candidate roles so
// the matcher can corroborate on occupation.
type PEPAdapter struct {
	id       domain.SourceID
	endpoint string
	apiKey   string
	fetcher  Fetcher
	logger   *slog.Logger
}

func NewPEPAdapter(id domain.SourceID, cfg config.Source, fetcher Fetcher, logger *slog.Logger) *PEPAdapter {
	return &PEPAdapter{
		id:       id,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		fetcher:  fetcher,
		logger:   logger,
	}
}

func (a *PEPAdapter) ID() domain.SourceID             { return a.id }
func (a *PEPAdapter) Category() domain.SourceCategory { return domain.CategoryPEP }

type pepPayload struct {
	PEPs    []pepEntry `json:"peps"`
	Version string     `json:"version"`
}

type pepEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	DateOfBirth string   `json:"date_of_birth"`
	Nationality string   `json:"nationality"`
	Positions   []struct {
		Title   string `json:"title"`
		Country string `json:"country"`
		Current bool   `json:"current"`
	} `json:"positions"`
	FamilyMembers []struct {
		Name         string `json:"name"`
		Relationship string `json:"relationship"`
	} `json:"family_members"`
	RiskLevel string `json:"risk_level"`
}

func (a *PEPAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	doc, err := a.fetcher.Fetch(ctx, a.queryURL(criteria), a.headers())
	if err != nil {
		return nil, fmt.Errorf("pep %s: %w", a.id, err)
	}

	var payload pepPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return nil, fmt.Errorf("pep %s: %w: %v", a.id, sentinel.ErrSourceParse, err)
	}

	out := make([]domain.Candidate, 0, len(payload.PEPs))
	for _, e := range payload.PEPs {
		roles := make([]string, 0, len(e.Positions))
		countries := make([]string, 0, len(e.Positions))
		for _, p := range e.Positions {
			if p.Title != "" {
				roles = append(roles, p.Title)
			}
			if p.Country != "" {
				countries = append(countries, p.Country)
			}
		}
		risk := ""
		if e.RiskLevel != "" {
			risk = "risk level " + e.RiskLevel
		}
		out = append(out, domain.Candidate{
			ID:          domain.NewCandidateID(),
			Source:      a.id,
			Category:    domain.CategoryPEP,
			Title:       fmt.Sprintf("registry entry %s", e.ID),
			Snippet:     joinNonEmpty(firstRole(roles), risk),
			Name:        e.Name,
			DateOfBirth: e.DateOfBirth,
			Nationality: e.Nationality,
			Roles:       roles,
			Countries:   countries,
			Aliases:     pstrings.DedupeAndTrim(e.Aliases),
			Rank:        len(out) + 1,
		})
	}
	a.logger.DebugContext(ctx, "pep query parsed", "source", a.id, "candidates", len(out))
	return out, nil
}

func (a *PEPAdapter) queryURL(criteria Criteria) string {
	q := url.Values{}
	q.Set("name", criteria.Name)
	if criteria.DateOfBirth != "" {
		q.Set("date_of_birth", criteria.DateOfBirth)
	}
	if criteria.Nationality != "" {
		q.Set("nationality", criteria.Nationality)
	}
	return a.endpoint + "?" + q.Encode()
}

func (a *PEPAdapter) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if a.apiKey != "" {
		h["Authorization"] = "Bearer " + a.apiKey
	}
	return h
}

func firstRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	return roles[0]
}
