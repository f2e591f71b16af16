package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var pdfMagic = []byte("%PDF")

// PDFFetcher downloads a paper's PDF with a bounded timeout and size.
type PDFFetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewPDFFetcher(timeout time.Duration, maxBytes int64) *PDFFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &PDFFetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
	}
}

func (f *PDFFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create pdf request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch pdf status: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("pdf exceeds %d bytes", f.maxBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("empty pdf response")
	}
	// Content-Type from arxiv mirrors is unreliable; trust the magic bytes.
	if !bytes.HasPrefix(data, pdfMagic) {
		return nil, errors.New("response is not a pdf")
	}
	return data, nil
}
