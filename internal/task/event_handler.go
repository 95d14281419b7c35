package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gatherly/gatherly-api/internal/events"
)

// TaskFactoryEventHandler implements the events.EventHandler interface.
// It turns task request events emitted by the services into persisted,
// queued tasks. Services stay decoupled from the task machinery: they emit
// an event with a payload and this handler does the rest.
type TaskFactoryEventHandler struct {
	factory *EmailDeliveryTaskFactory
	runner  *TaskRunner
	logger  *slog.Logger
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)

// NewTaskFactoryEventHandler creates a new event handler that uses the
// given factory to create tasks and submits them to the provided runner.
func NewTaskFactoryEventHandler(
	factory *EmailDeliveryTaskFactory,
	runner *TaskRunner,
	log *slog.Logger,
) *TaskFactoryEventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &TaskFactoryEventHandler{
		factory: factory,
		runner:  runner,
		logger:  log.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent processes task request events by creating and submitting
// tasks. Events with an unsupported type are ignored so new event types can
// be introduced without breaking this handler.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != TaskTypeEmailDelivery {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	var payload EmailDeliveryPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	t, err := h.factory.CreateTask(payload)
	if err != nil {
		h.logger.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.Error("failed to submit task",
			slog.String("error", err.Error()),
			slog.String("task_id", t.ID().String()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("task created and submitted successfully",
		slog.String("task_id", t.ID().String()),
		slog.String("event_id", event.ID.String()))
	return nil
}
