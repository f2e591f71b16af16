package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
	"github.com/kirillkom/arxiv-copilot/internal/core/ports"
	"github.com/kirillkom/arxiv-copilot/internal/observability/metrics"
)

type Router struct {
	submitter ports.ResearchSubmitter
	repo      ports.ResearchJobRepository
	metrics   *metrics.HTTPServerMetrics
	service   string
}

func NewRouter(
	submitter ports.ResearchSubmitter,
	repo ports.ResearchJobRepository,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
) *Router {
	return &Router{
		submitter: submitter,
		repo:      repo,
		metrics:   httpMetrics,
		service:   service,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/research", rt.submitResearch)
	mux.HandleFunc("/v1/research/", rt.researchSubroutes)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) submitResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	job, err := rt.submitter.Submit(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordSubmission(rt.service)
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) researchSubroutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/research/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "job id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/report"); ok {
		rt.getReport(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	rt.getJob(w, r, rest)
}

func (rt *Router) getJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// getReport serves the finished report only. Before the job reaches the
// done status clients get a conflict with the current job state so they
// can keep polling.
func (rt *Router) getReport(w http.ResponseWriter, r *http.Request, id string) {
	job, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	switch job.Status {
	case domain.StatusDone:
		writeJSON(w, http.StatusOK, map[string]string{
			"job_id":      job.ID,
			"report":      job.Report,
			"paper_title": job.Title,
			"paper_url":   job.PDFURL,
		})
	case domain.StatusFailed:
		writeJSON(w, http.StatusConflict, map[string]string{
			"job_id": job.ID,
			"status": string(job.Status),
			"error":  job.Error,
		})
	default:
		writeJSON(w, http.StatusConflict, map[string]string{
			"job_id": job.ID,
			"status": string(job.Status),
		})
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
