package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"crosscheck/internal/domain"
	"crosscheck/internal/platform/config"
	"crosscheck/pkg/platform/sentinel"
)

// WebSearchAdapter scrapes the HTML results page of a search engine. The
// markup follows the DuckDuckGo HTML endpoint: each hit is a result__body
// block with result__title, result__snippet and result__url children.
type WebSearchAdapter struct {
	id         domain.SourceID
	endpoint   string
	maxResults int
	fetcher    Fetcher
	logger     *slog.Logger
}

func NewWebSearchAdapter(id domain.SourceID, cfg config.Source, fetcher Fetcher, logger *slog.Logger) *WebSearchAdapter {
	return &WebSearchAdapter{
		id:         id,
		endpoint:   cfg.Endpoint,
		maxResults: 10,
		fetcher:    fetcher,
		logger:     logger,
	}
}

func (a *WebSearchAdapter) ID() domain.SourceID             { return a.id }
func (a *WebSearchAdapter) Category() domain.SourceCategory { return domain.CategoryWebSearch }

func (a *WebSearchAdapter) Query(ctx context.Context, criteria Criteria) ([]domain.Candidate, error) {
	term := criteria.Name
	if criteria.FreeText != "" {
		term = criteria.FreeText
	}
	q := url.Values{}
	q.Set("q", term)

	headers := map[string]string{
		"User-Agent": "Mozilla/5.0 (compatible; crosscheck/1.0)",
	}
	doc, err := a.fetcher.Fetch(ctx, a.endpoint+"?"+q.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("websearch %s: %w", a.id, err)
	}

	root, err := html.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("websearch %s: %w: %v", a.id, sentinel.ErrSourceParse, err)
	}

	var out []domain.Candidate
	for _, block := range findByClass(root, "result__body") {
		if len(out) >= a.maxResults {
			break
		}
		title := textOfFirst(block, "result__title")
		if title == "" {
			continue
		}
		out = append(out, domain.Candidate{
			ID:        domain.NewCandidateID(),
			Source:    a.id,
			Category:  domain.CategoryWebSearch,
			Title:     title,
			Snippet:   textOfFirst(block, "result__snippet"),
			URL:       textOfFirst(block, "result__url"),
			Sentiment: classifySentiment(title + " " + textOfFirst(block, "result__snippet")),
			Rank:      len(out) + 1,
		})
	}
	a.logger.DebugContext(ctx, "websearch query parsed", "source", a.id, "candidates", len(out))
	return out, nil
}

func findByClass(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && hasClass(node, class) {
			out = append(out, node)
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOfFirst(n *html.Node, class string) string {
	nodes := findByClass(n, class)
	if len(nodes) == 0 {
		return ""
	}
	var b strings.Builder
	collectText(nodes[0], &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
