package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

func generateResponse(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{
						{"text": text},
					},
				},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func candidateFixture() []domain.PaperCandidate {
	return []domain.PaperCandidate{
		{ArxivID: "1706.03762", Title: "Attention Is All You Need", Abstract: "transformers", PDFURL: "https://arxiv.org/pdf/1706.03762"},
		{ArxivID: "2005.11401", Title: "Retrieval-Augmented Generation", Abstract: "rag", PDFURL: "https://arxiv.org/pdf/2005.11401"},
	}
}

func TestSelectPaperMatchesModelAnswer(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedPrompt = payload.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(generateResponse("2005.11401")))
	}))
	defer server.Close()

	selector := NewSelector(New(server.URL, "key", "gen", "embed", nil))
	picked, err := selector.SelectPaper(context.Background(), "how does rag work?", candidateFixture())
	if err != nil {
		t.Fatalf("SelectPaper() error = %v", err)
	}
	if picked.ArxivID != "2005.11401" {
		t.Fatalf("expected model's pick, got %s", picked.ArxivID)
	}
	if !strings.Contains(capturedPrompt, "how does rag work?") || !strings.Contains(capturedPrompt, "1706.03762") {
		t.Fatalf("expected question and candidates in prompt, got %q", capturedPrompt)
	}
}

func TestSelectPaperFallsBackToFirstCandidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(generateResponse("I cannot decide, both look good.")))
	}))
	defer server.Close()

	selector := NewSelector(New(server.URL, "key", "gen", "embed", nil))
	picked, err := selector.SelectPaper(context.Background(), "q", candidateFixture())
	if err != nil {
		t.Fatalf("SelectPaper() error = %v", err)
	}
	if picked.ArxivID != "1706.03762" {
		t.Fatalf("expected deterministic fallback to first candidate, got %s", picked.ArxivID)
	}
}

func TestEmbedSendsBatchAndPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":batchEmbedContents") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-goog-api-key"); got != "key" {
			t.Fatalf("expected api key header, got %q", got)
		}
		var payload struct {
			Requests []struct {
				Content struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"content"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		var embeddings []string
		for i := range payload.Requests {
			embeddings = append(embeddings, fmt.Sprintf(`{"values":[%d]}`, i))
		}
		_, _ = fmt.Fprintf(w, `{"embeddings":[%s]}`, strings.Join(embeddings, ","))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "key", "gen", "embed", nil))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if vectors[1][0] != 1 {
		t.Fatalf("expected order preserved, got %v", vectors)
	}
}

func TestGenerateReportCitesSourceEvenWhenModelOmitsIt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(generateResponse("Attention lets models weigh token relevance.")))
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "key", "gen", "embed", nil))
	paper := candidateFixture()[0]
	report, err := generator.GenerateReport(context.Background(), "q", paper, []domain.RetrievedChunk{{Text: "ctx", Score: 0.9}})
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if !strings.Contains(report, paper.Title) || !strings.Contains(report, paper.PDFURL) {
		t.Fatalf("expected source title and url in report, got %q", report)
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "key", "gen", "embed", nil))
	_, err := generator.GenerateReport(context.Background(), "q", candidateFixture()[0], nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
