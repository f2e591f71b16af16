package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client talks to the Generative Language API. One client serves both the
// generation model (selection, report) and the embedding model.
type Client struct {
	baseURL    string
	apiKey     string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, apiKey, genModel, embedModel string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Selector asks the generation model to pick one candidate by arXiv id.
type Selector struct {
	client *Client
}

func NewSelector(client *Client) *Selector {
	return &Selector{client: client}
}

// SelectPaper returns the candidate whose id the model names. When the model
// output maps to no candidate, it falls back deterministically to the first
// (highest-ranked) candidate rather than failing the run.
func (s *Selector) SelectPaper(
	ctx context.Context,
	question string,
	candidates []domain.PaperCandidate,
) (domain.PaperCandidate, error) {
	if len(candidates) == 0 {
		return domain.PaperCandidate{}, errors.New("no candidates to select from")
	}

	respText, err := s.client.generateText(ctx, buildSelectionPrompt(question, candidates))
	if err != nil {
		return domain.PaperCandidate{}, err
	}

	if picked, ok := matchCandidate(respText, candidates); ok {
		return picked, nil
	}

	slog.Warn("paper_selection_unparsable",
		"response", truncate(respText, 200),
		"fallback_arxiv_id", candidates[0].ArxivID,
	)
	return candidates[0], nil
}

// matchCandidate maps the model output back onto the candidate set. The
// candidate whose id appears earliest in the response wins.
func matchCandidate(response string, candidates []domain.PaperCandidate) (domain.PaperCandidate, bool) {
	best := -1
	var picked domain.PaperCandidate
	for _, c := range candidates {
		idx := strings.Index(response, c.ArxivID)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			picked = c
		}
	}
	return picked, best >= 0
}

// Embedder builds vectors via batchEmbedContents.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Parts []part `json:"parts"`
	}
	type embedRequest struct {
		Model   string  `json:"model"`
		Content content `json:"content"`
	}

	requests := make([]embedRequest, 0, len(texts))
	for _, text := range texts {
		requests = append(requests, embedRequest{
			Model:   "models/" + e.client.embedModel,
			Content: content{Parts: []part{{Text: text}}},
		})
	}

	var response struct {
		Embeddings []struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:batchEmbedContents", e.client.embedModel)
	if err := e.client.postJSON(ctx, path, map[string]any{"requests": requests}, &response, "embed"); err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(response.Embeddings))
	for _, emb := range response.Embeddings {
		vectors = append(vectors, emb.Values)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

// Generator produces the final cited report body.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateReport(
	ctx context.Context,
	question string,
	paper domain.PaperCandidate,
	chunks []domain.RetrievedChunk,
) (string, error) {
	body, err := g.client.generateText(ctx, buildReportPrompt(question, paper, chunks))
	if err != nil {
		return "", err
	}
	return ensureSourceSection(body, paper), nil
}

// ensureSourceSection guarantees the report cites the paper even when the
// model ignores the prompt's formatting instruction.
func ensureSourceSection(body string, paper domain.PaperCandidate) string {
	if strings.Contains(body, paper.Title) && strings.Contains(body, paper.PDFURL) {
		return body
	}
	return body + "\n\n**Source:**\n- **Title:** " + paper.Title + "\n- **URL:** " + paper.PDFURL
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": prompt},
				},
			},
		},
	}

	var response struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", c.genModel)
	if err := c.postJSON(ctx, path, reqBody, &response, "generate"); err != nil {
		return "", err
	}

	if len(response.Candidates) == 0 {
		return "", errors.New("gemini returned no candidates")
	}
	var b strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
