package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoExecutor is returned when a task loaded from the database is
// executed before a concrete implementation has been attached to it.
var ErrNoExecutor = errors.New("no executor attached to stored task")

// StoredTask is a task reconstructed from its database record. It carries
// the persisted identity and payload but no behavior; the runner resolves
// it into an executable task by type before processing.
type StoredTask struct {
	id       uuid.UUID
	taskType string
	payload  []byte
	status   TaskStatus
	execute  func(ctx context.Context) error
}

// Ensure StoredTask implements Task
var _ Task = (*StoredTask)(nil)

// NewStoredTask creates a StoredTask from the persisted fields of a task row.
func NewStoredTask(id uuid.UUID, taskType string, payload []byte, status TaskStatus) *StoredTask {
	return &StoredTask{
		id:       id,
		taskType: taskType,
		payload:  payload,
		status:   status,
	}
}

// ID implements Task.ID
func (t *StoredTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *StoredTask) Type() string {
	return t.taskType
}

// Payload implements Task.Payload
func (t *StoredTask) Payload() []byte {
	return t.payload
}

// Status implements Task.Status
func (t *StoredTask) Status() TaskStatus {
	return t.status
}

// Execute implements Task.Execute
// Returns ErrNoExecutor unless an executor has been attached.
func (t *StoredTask) Execute(ctx context.Context) error {
	if t.execute == nil {
		return ErrNoExecutor
	}
	return t.execute(ctx)
}

// WithExecutor attaches the task logic to run when the task is processed.
func (t *StoredTask) WithExecutor(fn func(ctx context.Context) error) *StoredTask {
	t.execute = fn
	return t
}
