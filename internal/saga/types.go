package saga

import (
	"context"
	"fmt"
	"time"
)

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStateStarted     SagaState = "started"
	SagaStateRunning     SagaState = "running"
	SagaStateCompleted   SagaState = "completed"
	SagaStateFailed      SagaState = "failed"
	SagaStateCompensated SagaState = "compensated"
)

// StepState represents the state of an individual step
type StepState string

const (
	StepStatePending     StepState = "pending"
	StepStateRunning     StepState = "running"
	StepStateCompleted   StepState = "completed"
	StepStateFailed      StepState = "failed"
	StepStateCompensated StepState = "compensated"
)

// SagaID uniquely identifies a saga instance
type SagaID string

// StepID uniquely identifies a step within a saga
type StepID string

// Step is a single unit of work. Execute mutates the shared state T;
// Compensate undoes whatever Execute left behind and runs only for
// completed steps when a later step fails.
type Step[T any] interface {
	ID() StepID
	Execute(ctx context.Context, data *T) error
	Compensate(ctx context.Context, data *T) error
}

// SagaDefinition defines the steps and flow of a saga
type SagaDefinition[T any] interface {
	ID() string
	Steps() []Step[T]
	// Timeout bounds the whole run; zero means no limit beyond the caller's context
	Timeout() time.Duration
}

// SagaInstance represents a running or finished instance of a saga
type SagaInstance struct {
	ID          SagaID          `json:"id"`
	Definition  string          `json:"definition"`
	State       SagaState       `json:"state"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// StepExecution represents the execution state of a step
type StepExecution struct {
	ID          StepID     `json:"id"`
	State       StepState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// SagaEvent represents an event in the saga lifecycle
type SagaEvent struct {
	SagaID    SagaID    `json:"saga_id"`
	StepID    StepID    `json:"step_id,omitempty"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// Event types
const (
	EventSagaStarted     = "saga_started"
	EventSagaCompleted   = "saga_completed"
	EventSagaFailed      = "saga_failed"
	EventStepStarted     = "step_started"
	EventStepCompleted   = "step_completed"
	EventStepFailed      = "step_failed"
	EventStepCompensated = "step_compensated"
)

// StepError is returned by Run when a step fails
type StepError struct {
	SagaID SagaID
	StepID StepID
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("saga %s: step %s failed: %v", e.SagaID, e.StepID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
