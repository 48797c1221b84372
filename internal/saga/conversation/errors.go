package conversation

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies which stage of the pipeline failed
type Kind string

const (
	KindTranscriptionFailed Kind = "transcription_failed"
	KindInferenceFailed     Kind = "inference_failed"
	KindSynthesisFailed     Kind = "synthesis_failed"
	KindTimeout             Kind = "timeout"
)

var (
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrInferenceFailed     = errors.New("inference failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
)

var kindSentinels = map[Kind]error{
	KindTranscriptionFailed: ErrTranscriptionFailed,
	KindInferenceFailed:     ErrInferenceFailed,
	KindSynthesisFailed:     ErrSynthesisFailed,
}

// StepError wraps a provider error with the kind of the step that produced it
type StepError struct {
	Kind Kind
	Err  error
}

func newStepError(kind Kind, err error) *StepError {
	return &StepError{Kind: kind, Err: err}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *StepError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && target == sentinel
}

// KindOf reports how a pipeline error should be surfaced. Cancellation and
// deadline errors win over the step kind.
func KindOf(err error) (Kind, bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout, true
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Kind, true
	}
	return "", false
}
