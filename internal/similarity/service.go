package similarity

import (
	"context"
	"errors"
	"fmt"
)

// Label is an entailment classification outcome
type Label string

const (
	LabelEntailment    Label = "ENTAILMENT"
	LabelContradiction Label = "CONTRADICTION"
	LabelNeutral       Label = "NEUTRAL"
)

// Verdict is the result of classifying one claim pair
type Verdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Service answers semantic questions about text pairs. Similarity is a
// score in [0,1]; ClassifyEntailment decides whether two claims agree,
// conflict, or are unrelated.
type Service interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	ClassifyEntailment(ctx context.Context, a, b string) (Verdict, error)
}

// Error wraps a similarity service failure. Contradiction detection
// degrades gracefully on this error: the caller skips the pair and
// continues.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("similarity %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err is (or wraps) a similarity Error
func IsServiceError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
