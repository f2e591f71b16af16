package domain

import "time"

type JobStatus string

const (
	StatusPending JobStatus = "pending"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// ResearchJob tracks one research question through the pipeline.
// The job ID doubles as the vector-store namespace for the run.
type ResearchJob struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Status    JobStatus `json:"status"`
	ArxivID   string    `json:"arxiv_id,omitempty"`
	Title     string    `json:"paper_title,omitempty"`
	PDFURL    string    `json:"paper_url,omitempty"`
	Report    string    `json:"report,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaperCandidate is one search hit from ArXiv. The selector picks exactly
// one candidate per job; candidates are discarded after selection.
type PaperCandidate struct {
	ArxivID  string `json:"arxiv_id"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	PDFURL   string `json:"pdf_url"`
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	Text          string `json:"text"`
	SequenceIndex int    `json:"sequence_index"`
	PaperID       string `json:"paper_id"`
}

type RetrievedChunk struct {
	Text       string  `json:"text"`
	PaperID    string  `json:"paper_id"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

type Report struct {
	Body        string `json:"body"`
	SourceTitle string `json:"source_title"`
	SourceURL   string `json:"source_url"`
}
