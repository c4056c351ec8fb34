package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/pkg/platform/sentinel"
)

// negativeTerms flags coverage worth treating as adverse. Matching is a
// lowercase substring check over title and description.
var negativeTerms = []string{
	"fraud", "laundering", "corruption", "bribery", "sanction",
	"arrest", "indicted", "convicted", "investigation", "scandal",
	"embezzle", "seized", "fined",
}

// NewsAdapter queries a news aggregation API for adverse media coverage.
type NewsAdapter struct {
	id       domain.SourceID
	endpoint string
	apiKey   string
	pageSize int
	fetcher  Fetcher
	logger   *slog.Logger
}

func NewNewsAdapter(id domain.SourceID, cfg config.Source, fetcher Fetcher, logger *slog.Logger) *NewsAdapter {
	return &NewsAdapter{
		id:       id,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		pageSize: 10,
		fetcher:  fetcher,
		logger:   logger,
	}
}

func (a *NewsAdapter) ID() domain.SourceID             { return a.id }
func (a *NewsAdapter) Category() domain.SourceCategory { return domain.CategoryAdverseMedia }

type newsPayload struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (a *NewsAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	doc, err := a.fetcher.Fetch(ctx, a.queryURL(criteria), map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("news %s: %w", a.id, err)
	}

	var payload newsPayload
	if err := json.Unmarshal(doc.Body, &payload); err != nil {
		return nil, fmt.Errorf("news %s: %w: %v", a.id, sentinel.ErrSourceParse, err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("news %s: %w: status %q: %s", a.id, sentinel.ErrSourceUnavailable, payload.Status, payload.Message)
	}

	out := make([]domain.Candidate, 0, len(payload.Articles))
	for i, art := range payload.Articles {
		out = append(out, domain.Candidate{
			ID:        domain.NewCandidateID(),
			Source:    a.id,
			Category:  domain.CategoryAdverseMedia,
			Title:     art.Title,
			Snippet:   art.Description,
			URL:       art.URL,
			Sentiment: classifySentiment(art.Title + " " + art.Description),
			Rank:      i + 1,
		})
	}
	a.logger.DebugContext(ctx, "news query parsed", "source", a.id, "candidates", len(out))
	return out, nil
}

func (a *NewsAdapter) queryURL(criteria Criteria) string {
	q := url.Values{}
	term := criteria.Name
	if criteria.FreeText != "" {
		term = criteria.FreeText
	}
	q.Set("q", term)
	q.Set("sortBy", "relevancy")
	q.Set("pageSize", strconv.Itoa(a.pageSize))
	if a.apiKey != "" {
		q.Set("apiKey", a.apiKey)
	}
	return a.endpoint + "?" + q.Encode()
}

func classifySentiment(text string) string {
	folded := strings.ToLower(text)
	for _, term := range negativeTerms {
		if strings.Contains(folded, term) {
			return "negative"
		}
	}
	return ""
}
