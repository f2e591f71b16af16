package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
	"github.com/kirillkom/arxiv-copilot/internal/infrastructure/resilience"
)

// Client talks to a Pinecone index over its data-plane HTTP API.
// Every call is scoped to a namespace so concurrent research runs never see
// each other's vectors.
type Client struct {
	indexHost  string
	apiKey     string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(indexHost, apiKey string, executor *resilience.Executor) *Client {
	host := strings.TrimRight(indexHost, "/")
	if host != "" && !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Client{
		indexHost:  host,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) UpsertChunks(
	ctx context.Context,
	namespace string,
	chunks []domain.Chunk,
	vectors [][]float32,
) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	type point struct {
		ID       string         `json:"id"`
		Values   []float32      `json:"values"`
		Metadata map[string]any `json:"metadata"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     fmt.Sprintf("%s-%d", chunk.PaperID, chunk.SequenceIndex),
			Values: vectors[i],
			Metadata: map[string]any{
				"text":        chunk.Text,
				"paper_id":    chunk.PaperID,
				"chunk_index": chunk.SequenceIndex,
			},
		})
	}

	reqBody := map[string]any{
		"vectors":   points,
		"namespace": namespace,
	}

	var response struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := c.postJSON(ctx, "/vectors/upsert", reqBody, &response, "upsert"); err != nil {
		return err
	}
	if response.UpsertedCount != len(points) {
		return fmt.Errorf("pinecone upsert incomplete: %d/%d", response.UpsertedCount, len(points))
	}
	return nil
}

func (c *Client) Query(
	ctx context.Context,
	namespace string,
	queryVector []float32,
	limit int,
) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		limit = 4
	}

	reqBody := map[string]any{
		"vector":          queryVector,
		"topK":            limit,
		"namespace":       namespace,
		"includeMetadata": true,
	}

	var response struct {
		Matches []struct {
			Score    float64        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := c.postJSON(ctx, "/query", reqBody, &response, "query"); err != nil {
		return nil, err
	}

	out := make([]domain.RetrievedChunk, 0, len(response.Matches))
	for _, m := range response.Matches {
		out = append(out, domain.RetrievedChunk{
			Text:       getStringMetadata(m.Metadata, "text"),
			PaperID:    getStringMetadata(m.Metadata, "paper_id"),
			ChunkIndex: getIntMetadata(m.Metadata, "chunk_index"),
			Score:      m.Score,
		})
	}
	// Pinecone already ranks matches, but callers depend on the ordering.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (c *Client) DeleteNamespace(ctx context.Context, namespace string) error {
	reqBody := map[string]any{
		"deleteAll": true,
		"namespace": namespace,
	}
	var response struct{}
	return c.postJSON(ctx, "/vectors/delete", reqBody, &response, "delete")
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	if c.executor == nil {
		return c.doPostJSON(ctx, path, payload, out, operation)
	}
	return c.executor.Execute(ctx, "pinecone."+operation, func(callCtx context.Context) error {
		return c.doPostJSON(callCtx, path, payload, out, operation)
	}, classifyPineconeError)
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.indexHost+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			return fmt.Errorf("pinecone %s status: %s: %s", operation, resp.Status, msg)
		}
		return fmt.Errorf("pinecone %s status: %s", operation, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringMetadata(metadata map[string]any, key string) string {
	v, ok := metadata[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getIntMetadata(metadata map[string]any, key string) int {
	v, ok := metadata[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}
