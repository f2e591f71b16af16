package gemini

import (
	"fmt"
	"strings"

	"github.com/kirillkom/arxiv-copilot/internal/core/domain"
)

func buildSelectionPrompt(question string, candidates []domain.PaperCandidate) string {
	var list strings.Builder
	for i, c := range candidates {
		list.WriteString(fmt.Sprintf(
			"[%d] arxiv_id=%s\nTitle: %s\nAbstract: %s\n\n",
			i+1,
			c.ArxivID,
			c.Title,
			c.Abstract,
		))
	}

	return fmt.Sprintf(`You are an expert research analyst.
Given a user's question and arXiv search results, identify the single most relevant paper.
Reply with exactly one line containing only the arxiv_id of that paper. No other text.

User's Question:
%s

Search Results:
%s`, question, list.String())
}

func buildReportPrompt(question string, paper domain.PaperCandidate, chunks []domain.RetrievedChunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] score=%.3f\n%s\n\n",
			idx+1,
			chunk.Score,
			chunk.Text,
		))
	}

	return fmt.Sprintf(`You are a scientific research assistant.
Generate a concise, well-structured report that answers the user's question using ONLY the context below, taken from the paper %q.
If the context is insufficient, say so directly.
End the report with a Source section formatted exactly like this:

**Source:**
- **Title:** %s
- **URL:** %s

User's Question:
%s

Retrieved Context:
%s`, paper.Title, paper.Title, paper.PDFURL, question, contextBuilder.String())
}
