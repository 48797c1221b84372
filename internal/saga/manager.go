package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const eventBufferSize = 100

// Manager runs sagas and remembers the most recent instances
type Manager[T any] struct {
	logger      *zap.Logger
	definitions map[string]SagaDefinition[T]
	instances   map[SagaID]*SagaInstance
	order       []SagaID
	retention   int
	eventChan   chan SagaEvent
	mu          sync.RWMutex
}

// NewManager creates a new saga manager keeping at most retention finished or
// running instances for inspection
func NewManager[T any](logger *zap.Logger, retention int) *Manager[T] {
	if retention < 0 {
		retention = 0
	}
	return &Manager[T]{
		logger:      logger,
		definitions: make(map[string]SagaDefinition[T]),
		instances:   make(map[SagaID]*SagaInstance),
		retention:   retention,
		eventChan:   make(chan SagaEvent, eventBufferSize),
	}
}

// RegisterDefinition registers a saga definition
func (m *Manager[T]) RegisterDefinition(def SagaDefinition[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.ID()] = def
	m.logger.Info("Saga definition registered", zap.String("id", def.ID()))
}

// Run executes the saga synchronously in the caller's goroutine. Steps run in
// order; the first failure stops the run, compensates the completed steps in
// reverse order and is returned as a *StepError. The run ends compensated when
// at least one step was undone and none of the compensations failed, failed
// otherwise.
func (m *Manager[T]) Run(ctx context.Context, definitionID string, data *T) (SagaID, error) {
	m.mu.RLock()
	def, exists := m.definitions[definitionID]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("saga definition not found: %s", definitionID)
	}

	steps := def.Steps()
	sagaID := SagaID(definitionID + "_" + uuid.NewString())
	instance := m.register(sagaID, definitionID, steps)

	m.emitEvent(SagaEvent{SagaID: sagaID, Type: EventSagaStarted, Timestamp: instance.StartedAt})
	m.logger.Debug("Saga started", zap.String("sagaID", string(sagaID)), zap.String("definition", definitionID))

	if timeout := def.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.update(instance, func(i *SagaInstance) { i.State = SagaStateRunning })

	for i, step := range steps {
		err := ctx.Err()
		if err == nil {
			err = m.executeStep(ctx, instance, i, step, data)
		} else {
			m.failStep(instance, i, step.ID(), err)
		}
		if err != nil {
			m.logger.Warn("Step failed",
				zap.String("sagaID", string(sagaID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))

			// compensation must run even when ctx is what failed the step
			state := SagaStateFailed
			if m.compensate(context.WithoutCancel(ctx), instance, steps, i-1, data) && i > 0 {
				state = SagaStateCompensated
			}
			m.finish(instance, state, err)
			return sagaID, &StepError{SagaID: sagaID, StepID: step.ID(), Err: err}
		}
	}

	m.finish(instance, SagaStateCompleted, nil)
	return sagaID, nil
}

// GetSaga returns a snapshot of a saga instance by ID
func (m *Manager[T]) GetSaga(sagaID SagaID) (SagaInstance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	instance, exists := m.instances[sagaID]
	if !exists {
		return SagaInstance{}, false
	}
	snapshot := *instance
	snapshot.Steps = append([]StepExecution(nil), instance.Steps...)
	return snapshot, true
}

// EventChannel returns the event channel for listening to saga events
func (m *Manager[T]) EventChannel() <-chan SagaEvent {
	return m.eventChan
}

func (m *Manager[T]) register(sagaID SagaID, definitionID string, steps []Step[T]) *SagaInstance {
	stepExecs := make([]StepExecution, len(steps))
	for i, step := range steps {
		stepExecs[i] = StepExecution{ID: step.ID(), State: StepStatePending}
	}
	instance := &SagaInstance{
		ID:         sagaID,
		Definition: definitionID,
		State:      SagaStateStarted,
		Steps:      stepExecs,
		StartedAt:  time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retention == 0 {
		return instance
	}
	m.instances[sagaID] = instance
	m.order = append(m.order, sagaID)
	for len(m.order) > m.retention {
		delete(m.instances, m.order[0])
		m.order = m.order[1:]
	}
	return instance
}

func (m *Manager[T]) executeStep(ctx context.Context, instance *SagaInstance, index int, step Step[T], data *T) error {
	now := time.Now()
	m.update(instance, func(i *SagaInstance) {
		i.Steps[index].State = StepStateRunning
		i.Steps[index].StartedAt = &now
	})
	m.emitEvent(SagaEvent{SagaID: instance.ID, StepID: step.ID(), Type: EventStepStarted, Timestamp: now})

	if err := step.Execute(ctx, data); err != nil {
		m.failStep(instance, index, step.ID(), err)
		return err
	}

	done := time.Now()
	m.update(instance, func(i *SagaInstance) {
		i.Steps[index].State = StepStateCompleted
		i.Steps[index].CompletedAt = &done
	})
	m.emitEvent(SagaEvent{SagaID: instance.ID, StepID: step.ID(), Type: EventStepCompleted, Timestamp: done})

	m.logger.Debug("Step completed",
		zap.String("sagaID", string(instance.ID)),
		zap.String("stepID", string(step.ID())),
		zap.Duration("took", done.Sub(now)))
	return nil
}

func (m *Manager[T]) failStep(instance *SagaInstance, index int, stepID StepID, err error) {
	now := time.Now()
	m.update(instance, func(i *SagaInstance) {
		i.Steps[index].State = StepStateFailed
		i.Steps[index].Error = err.Error()
		i.Steps[index].CompletedAt = &now
	})
	m.emitEvent(SagaEvent{SagaID: instance.ID, StepID: stepID, Type: EventStepFailed, Timestamp: now, Error: err.Error()})
}

// compensate runs compensation for completed steps in reverse order and
// reports whether every one of them succeeded
func (m *Manager[T]) compensate(ctx context.Context, instance *SagaInstance, steps []Step[T], lastCompleted int, data *T) bool {
	clean := true
	for i := lastCompleted; i >= 0; i-- {
		step := steps[i]
		if err := step.Compensate(ctx, data); err != nil {
			m.logger.Error("Compensation failed",
				zap.String("sagaID", string(instance.ID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))
			clean = false
			continue
		}
		m.update(instance, func(in *SagaInstance) { in.Steps[i].State = StepStateCompensated })
		m.emitEvent(SagaEvent{SagaID: instance.ID, StepID: step.ID(), Type: EventStepCompensated, Timestamp: time.Now()})
	}
	return clean
}

func (m *Manager[T]) finish(instance *SagaInstance, state SagaState, err error) {
	now := time.Now()
	event := SagaEvent{SagaID: instance.ID, Type: EventSagaCompleted, Timestamp: now}
	m.update(instance, func(i *SagaInstance) {
		i.State = state
		i.CompletedAt = &now
		if err != nil {
			i.Error = err.Error()
		}
	})
	if err != nil {
		event.Type = EventSagaFailed
		event.Error = err.Error()
	}
	m.emitEvent(event)
}

func (m *Manager[T]) update(instance *SagaInstance, fn func(*SagaInstance)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(instance)
}

func (m *Manager[T]) emitEvent(event SagaEvent) {
	select {
	case m.eventChan <- event:
	default:
		m.logger.Warn("Event channel full, dropping event", zap.String("type", event.Type))
	}
}
