package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsPDFBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 content"))
	}))
	defer server.Close()

	data, err := NewPDFFetcher(5*time.Second, 1<<20).Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if string(data) != "%PDF-1.4 content" {
		t.Fatalf("unexpected body: %q", data)
	}
}

func TestFetchRejectsNonPDFContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not a paper</html>"))
	}))
	defer server.Close()

	_, err := NewPDFFetcher(5*time.Second, 1<<20).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "not a pdf") {
		t.Fatalf("expected non-pdf error, got %v", err)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF" + strings.Repeat("x", 128)))
	}))
	defer server.Close()

	_, err := NewPDFFetcher(5*time.Second, 64).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestFetchSurfacesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewPDFFetcher(5*time.Second, 1<<20).Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
}
