package chunking

import "strings"

const paragraphSeparator = "\n\n"

// Splitter produces retrieval-sized chunks. Paragraph boundaries are kept
// intact where possible; only paragraphs larger than ChunkSize fall back to
// a rune window with Overlap runes of context between neighbours.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var out []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) > 0 {
			out = append(out, strings.Join(current, paragraphSeparator))
			current = nil
			currentLen = 0
		}
	}

	for _, para := range paragraphs {
		paraLen := len([]rune(para))

		if paraLen > s.ChunkSize {
			flush()
			out = append(out, s.windowSplit(para)...)
			continue
		}

		extra := paraLen
		if currentLen > 0 {
			extra += len(paragraphSeparator)
		}
		if currentLen+extra > s.ChunkSize {
			flush()
		}
		current = append(current, para)
		if currentLen > 0 {
			currentLen += len(paragraphSeparator)
		}
		currentLen += paraLen
	}
	flush()

	return out
}

// windowSplit is the fallback for a single paragraph that exceeds ChunkSize.
// Pieces are not trimmed so consecutive pieces minus the overlap reconstruct
// the paragraph exactly.
func (s *Splitter) windowSplit(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, paragraphSeparator) {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
