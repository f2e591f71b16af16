package domain

import (
	"errors"
	"fmt"
)

// One sentinel per pipeline stage so callers can tell which stage aborted
// the run, plus generic kinds shared with the adapters.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrJobNotFound  = errors.New("research job not found")
	ErrTemporary    = errors.New("temporary failure")

	ErrSearch       = errors.New("paper search failed")
	ErrNoCandidates = errors.New("no papers found")
	ErrSelection    = errors.New("paper selection failed")
	ErrIngestion    = errors.New("paper ingestion failed")
	ErrIndexing     = errors.New("vector indexing failed")
	ErrGeneration   = errors.New("report generation failed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
