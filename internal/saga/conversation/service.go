package conversation

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/internal/providers"
	"github.com/satriahrh/aiden-server/internal/saga"
)

// Service runs voice turns through the saga manager
type Service struct {
	sagaManager *saga.Manager[Turn]
	logger      *zap.Logger
}

// NewService creates a new conversation service and registers the voice turn saga.
// timeout bounds each run; zero leaves only the caller's context.
func NewService(sagaManager *saga.Manager[Turn], timeout time.Duration, logger *zap.Logger) *Service {
	sagaManager.RegisterDefinition(NewVoiceTurnDefinition(timeout, logger))
	return &Service{
		sagaManager: sagaManager,
		logger:      logger,
	}
}

// Request is the input of a single voice turn
type Request struct {
	Providers  providers.Set
	InputPath  string
	OutputPath string
}

// Result is what a completed voice turn produced
type Result struct {
	RunID      saga.SagaID
	Transcript string
	Reply      string
	AudioPath  string
	AudioSize  int64
}

// Process runs the full pipeline. The run ID is returned on failure as well so
// callers can point at /runs/:id.
func (s *Service) Process(ctx context.Context, req Request) (*Result, error) {
	turn := &Turn{
		Providers:  req.Providers,
		InputPath:  req.InputPath,
		OutputPath: req.OutputPath,
	}

	runID, err := s.sagaManager.Run(ctx, DefinitionID, turn)
	if err != nil {
		return &Result{RunID: runID}, fmt.Errorf("voice turn failed: %w", err)
	}

	s.logger.Info("Voice turn processed",
		zap.String("runID", string(runID)),
		zap.Int("transcriptChars", len(turn.Transcript)),
		zap.Int("replyChars", len(turn.Reply)))

	return &Result{
		RunID:      runID,
		Transcript: turn.Transcript,
		Reply:      turn.Reply,
		AudioPath:  turn.OutputPath,
		AudioSize:  turn.AudioSize,
	}, nil
}

// GetRunStatus returns the current status of a run
func (s *Service) GetRunStatus(runID saga.SagaID) (*RunStatusResponse, error) {
	instance, exists := s.sagaManager.GetSaga(runID)
	if !exists {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	return &RunStatusResponse{
		RunID:       string(runID),
		State:       string(instance.State),
		Steps:       convertStepExecutions(instance.Steps),
		StartedAt:   instance.StartedAt,
		CompletedAt: instance.CompletedAt,
		Error:       instance.Error,
	}, nil
}

// RunStatusResponse represents the status of a run
type RunStatusResponse struct {
	RunID       string                `json:"run_id"`
	State       string                `json:"state"`
	Steps       []StepExecutionStatus `json:"steps"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// StepExecutionStatus represents the status of a step execution
type StepExecutionStatus struct {
	ID          string     `json:"id"`
	State       string     `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func convertStepExecutions(steps []saga.StepExecution) []StepExecutionStatus {
	result := make([]StepExecutionStatus, len(steps))
	for i, step := range steps {
		result[i] = StepExecutionStatus{
			ID:          string(step.ID),
			State:       string(step.State),
			StartedAt:   step.StartedAt,
			CompletedAt: step.CompletedAt,
			Error:       step.Error,
		}
	}
	return result
}

// StartEventListener logs saga events until ctx is done
func (s *Service) StartEventListener(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-s.sagaManager.EventChannel():
				s.handleSagaEvent(event)
			}
		}
	}()
}

func (s *Service) handleSagaEvent(event saga.SagaEvent) {
	eventData, _ := json.Marshal(event)

	switch event.Type {
	case saga.EventSagaStarted:
		s.logger.Info("Run started", zap.String("runID", string(event.SagaID)))
	case saga.EventSagaCompleted:
		s.logger.Info("Run completed", zap.String("runID", string(event.SagaID)))
	case saga.EventSagaFailed:
		s.logger.Error("Run failed", zap.String("runID", string(event.SagaID)), zap.ByteString("event", eventData))
	case saga.EventStepStarted:
		s.logger.Debug("Step started", zap.String("runID", string(event.SagaID)), zap.String("stepID", string(event.StepID)))
	case saga.EventStepCompleted:
		s.logger.Debug("Step completed", zap.String("runID", string(event.SagaID)), zap.String("stepID", string(event.StepID)))
	case saga.EventStepFailed:
		s.logger.Warn("Step failed", zap.String("runID", string(event.SagaID)), zap.String("stepID", string(event.StepID)), zap.ByteString("event", eventData))
	case saga.EventStepCompensated:
		s.logger.Info("Step compensated", zap.String("runID", string(event.SagaID)), zap.String("stepID", string(event.StepID)))
	default:
		s.logger.Debug("Run event", zap.String("type", event.Type), zap.ByteString("event", eventData))
	}
}
