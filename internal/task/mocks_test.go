package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryTaskStore is an in-memory TaskStore for runner and scheduler tests.
type memoryTaskStore struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*storedRecord
	saveErr  error
	pruned   int64
	pruneErr error
}

type storedRecord struct {
	task      Task
	status    TaskStatus
	errorMsg  string
	updatedAt time.Time
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]*storedRecord)}
}

func (s *memoryTaskStore) SaveTask(_ context.Context, t Task) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID()] = &storedRecord{task: t, status: t.Status(), updatedAt: time.Now().UTC()}
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(_ context.Context, taskID uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tasks[taskID]; ok {
		record.status = status
		record.errorMsg = errorMsg
		record.updatedAt = time.Now().UTC()
	}
	return nil
}

func (s *memoryTaskStore) GetPendingTasks(_ context.Context) ([]Task, error) {
	return s.byStatus(TaskStatusPending), nil
}

func (s *memoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().UTC().Add(-olderThan)
	var result []Task
	for _, record := range s.tasks {
		if record.status != TaskStatusProcessing {
			continue
		}
		if olderThan > 0 && !record.updatedAt.Before(cutoff) {
			continue
		}
		result = append(result, record.task)
	}
	return result, nil
}

func (s *memoryTaskStore) PruneFinished(_ context.Context, olderThan time.Time) (int64, error) {
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for id, record := range s.tasks {
		finished := record.status == TaskStatusCompleted || record.status == TaskStatusFailed
		if finished && record.updatedAt.Before(olderThan) {
			delete(s.tasks, id)
			count++
		}
	}
	s.pruned += count
	return count, nil
}

func (s *memoryTaskStore) WithTx(_ *sql.Tx) TaskStore {
	return s
}

func (s *memoryTaskStore) statusOf(taskID uuid.UUID) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.tasks[taskID]; ok {
		return record.status
	}
	return ""
}

func (s *memoryTaskStore) byStatus(status TaskStatus) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Task
	for _, record := range s.tasks {
		if record.status == status {
			result = append(result, record.task)
		}
	}
	return result
}

// testTask is a controllable Task implementation.
type testTask struct {
	id      uuid.UUID
	status  TaskStatus
	execute func(ctx context.Context) error
	runs    chan struct{}
}

func newTestTask(execute func(ctx context.Context) error) *testTask {
	t := &testTask{
		id:     uuid.New(),
		status: TaskStatusPending,
		runs:   make(chan struct{}, 16),
	}
	t.execute = func(ctx context.Context) error {
		defer func() { t.runs <- struct{}{} }()
		if execute != nil {
			return execute(ctx)
		}
		return nil
	}
	return t
}

func (t *testTask) ID() uuid.UUID      { return t.id }
func (t *testTask) Type() string       { return "test_task" }
func (t *testTask) Payload() []byte    { return []byte(`{}`) }
func (t *testTask) Status() TaskStatus { return t.status }
func (t *testTask) Execute(ctx context.Context) error {
	return t.execute(ctx)
}

// waitForRun blocks until the task has executed or the timeout elapses.
func (t *testTask) waitForRun(timeout time.Duration) bool {
	select {
	case <-t.runs:
		return true
	case <-time.After(timeout):
		return false
	}
}
