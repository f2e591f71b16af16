package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

const defaultBaseURL = "https://export.arxiv.org/api/query"

// Client queries the arXiv Atom API. arXiv asks clients to keep at most
// one request in flight every three seconds, hence the limiter.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(3*time.Second), 1),
	}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.PaperCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "arxiv search", errors.New("empty query"))
	}
	if limit <= 0 {
		limit = 10
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("arxiv rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("search_query", buildSearchQuery(query))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create arxiv request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv search status: %s", resp.Status)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	out := make([]domain.PaperCandidate, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		out = append(out, domain.PaperCandidate{
			ArxivID:  arxivID,
			Title:    collapseWhitespace(entry.Title),
			Abstract: collapseWhitespace(entry.Summary),
			PDFURL:   pdfURL(entry, arxivID),
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// buildSearchQuery joins free-text terms into an "all:" field query.
func buildSearchQuery(query string) string {
	terms := strings.Fields(query)
	return "all:" + strings.Join(terms, "+")
}

// extractArxivID pulls the identifier from the entry <id> URL,
// e.g. "http://arxiv.org/abs/1706.03762v5" -> "1706.03762".
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// pdfURL prefers the feed's pdf link and falls back to the canonical form.
func pdfURL(entry atomEntry, arxivID string) string {
	for _, link := range entry.Links {
		if link.Title == "pdf" && link.Href != "" {
			return link.Href
		}
	}
	return "https://arxiv.org/pdf/" + arxivID
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string     `xml:"id"`
	Title   string     `xml:"title"`
	Summary string     `xml:"summary"`
	Links   []atomLink `xml:"link"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}
