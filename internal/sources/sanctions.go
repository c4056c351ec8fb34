package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"slices"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/pkg/platform/sentinel"
	pstrings "crosscheck/pkg/platform/strings"
)

// SanctionsAdapter queries a consolidated sanctions list service covering
// the OFAC, EU, SECO and UN lists. The service returns every list in one
// payload; entries are flattened into candidates.
type SanctionsAdapter struct {
	id       domain.SourceID
	endpoint string
	apiKey   string
	fetcher  Fetcher
	logger   *slog.Logger
}

func NewSanctionsAdapter(id domain.SourceID, cfg config.Source, fetcher Fetcher, logger *slog.Logger) *SanctionsAdapter {
	return &SanctionsAdapter{
		id:       id,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		fetcher:  fetcher,
		logger:   logger,
	}
}

func (a *SanctionsAdapter) ID() domain.SourceID             { return a.id }
func (a *SanctionsAdapter) Category() domain.SourceCategory { return domain.CategorySanctions }

type sanctionsPayload struct {
	Lists map[string]struct {
		Entries     []sanctionsEntry `json:"entries"`
		LastUpdated string           `json:"last_updated"`
	} `json:"lists"`
	Version string `json:"version"`
}

type sanctionsEntry struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	Aliases          []string `json:"aliases"`
	DateOfBirth      string   `json:"date_of_birth"`
	Nationality      string   `json:"nationality"`
	Country          string   `json:"country"`
	SanctionsProgram string   `json:"sanctions_program"`
	ListingDate      string   `json:"listing_date"`
	AdditionalInfo   string   `json:"additional_info"`
}

func (a *SanctionsAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	doc, err := a.fetcher.Fetch(ctx, a.queryURL(criteria), a.headers())
	if err != nil {
		return nil, fmt.Errorf("sanctions %s: %w", a.id, err)
	}

	var payload sanctionsPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return nil, fmt.Errorf("sanctions %s: %w: %v", a.id, sentinel.ErrSourceParse, err)
	}

	lists := make([]string, 0, len(payload.Lists))
	for name := range payload.Lists {
		lists = append(lists, name)
	}
	slices.Sort(lists)

	var out []domain.Candidate
	for _, list := range lists {
		for _, e := range payload.Lists[list].Entries {
			countries := make([]string, 0, 2)
			if e.Country != "" {
				countries = append(countries, e.Country)
			}
			nationality := e.Nationality
			if nationality == "" {
				nationality = e.Country
			}
			out = append(out, domain.Candidate{
				ID:          domain.NewCandidateID(),
				Source:      a.id,
				Category:    domain.CategorySanctions,
				Title:       fmt.Sprintf("%s listing %s", list, e.ID),
				Snippet:     joinNonEmpty(e.SanctionsProgram, e.AdditionalInfo),
				Name:        e.Name,
				DateOfBirth: e.DateOfBirth,
				Nationality: nationality,
				Countries:   countries,
				Aliases:     pstrings.DedupeAndTrim(e.Aliases),
				Rank:        len(out) + 1,
			})
		}
	}
	a.logger.DebugContext(ctx, "sanctions query parsed", "source", a.id, "candidates", len(out))
	return out, nil
}

func (a *SanctionsAdapter) queryURL(criteria Criteria) string {
	q := url.Values{}
	q.Set("name", criteria.Name)
	if criteria.DateOfBirth != "" {
		q.Set("date_of_birth", criteria.DateOfBirth)
	}
	if criteria.Nationality != "" {
		q.Set("country", criteria.Nationality)
	}
	return a.endpoint + "?" + q.Encode()
}

func (a *SanctionsAdapter) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if a.apiKey != "" {
		h["Authorization"] = "Bearer " + a.apiKey
	}
	return h
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += p
	}
	return out
}
