package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v5</id>
    <title>Attention Is All
  You Need</title>
    <summary>The dominant sequence transduction models...</summary>
    <link href="http://arxiv.org/abs/1706.03762v5" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v5" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2005.11401v4</id>
    <title>Retrieval-Augmented Generation for Knowledge-Intensive NLP Tasks</title>
    <summary>Large pre-trained language models...</summary>
  </entry>
</feed>`

func newTestClient(serverURL string) *Client {
	client := New(serverURL)
	client.limiter = rate.NewLimiter(rate.Inf, 1)
	return client
}

func TestSearchParsesFeed(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if r.URL.Query().Get("max_results") != "10" {
			t.Fatalf("unexpected max_results: %s", r.URL.Query().Get("max_results"))
		}
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	candidates, err := newTestClient(server.URL).Search(context.Background(), "transformer attention mechanisms", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "all:transformer+attention+mechanisms" {
		t.Fatalf("unexpected search_query: %s", gotQuery)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	first := candidates[0]
	if first.ArxivID != "1706.03762" {
		t.Fatalf("expected version suffix stripped, got %s", first.ArxivID)
	}
	if first.Title != "Attention Is All You Need" {
		t.Fatalf("expected collapsed title, got %q", first.Title)
	}
	if first.PDFURL != "http://arxiv.org/pdf/1706.03762v5" {
		t.Fatalf("expected pdf link from feed, got %s", first.PDFURL)
	}
	if candidates[1].PDFURL != "https://arxiv.org/pdf/2005.11401" {
		t.Fatalf("expected canonical pdf fallback, got %s", candidates[1].PDFURL)
	}
}

func TestSearchCapsResultsAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	candidates, err := newTestClient(server.URL).Search(context.Background(), "attention", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected results capped at 1, got %d", len(candidates))
	}
}

func TestSearchRejectsEmptyQueryWithoutNetworkCall(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "   ", 10)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if called {
		t.Fatalf("expected no network call for empty query")
	}
}

func TestSearchSurfacesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Search(context.Background(), "attention", 10)
	if err == nil {
		t.Fatalf("expected error")
	}
}
