package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/chronicle-kg/chronicle/internal/model"
)

// Extraction is the structured output for one article
type Extraction struct {
	Entities []model.CandidateEntity
	Claims   []model.CandidateClaim
}

// Extractor turns raw article text into candidate entities and claims.
// Candidates are unresolved: consolidation decides what they become in
// the graph.
type Extractor interface {
	Extract(ctx context.Context, text string) (*Extraction, error)
}

// ExtractionError wraps an extraction failure: the upstream service was
// unreachable or returned output that could not be parsed. The article is
// failed without any graph mutation.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
