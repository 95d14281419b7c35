package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gatherly/gatherly-api/internal/platform/mail"
)

// maxConcurrentSends caps the parallel SMTP sessions a single delivery task
// opens when fanning out to many recipients.
const maxConcurrentSends = 4

// EmailDeliveryPayload is the persisted payload of an email delivery task.
// One task carries one rendered message for one or more recipients; event
// cancellations and updates fan out to every active participant.
type EmailDeliveryPayload struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// Validate checks the payload has at least one recipient and a subject.
func (p *EmailDeliveryPayload) Validate() error {
	if len(p.Recipients) == 0 {
		return errors.New("email delivery payload has no recipients")
	}
	if p.Subject == "" {
		return errors.New("email delivery payload has no subject")
	}
	return nil
}

// EmailDeliveryTask sends a rendered notification email to its recipients.
// Individual sends are retried with backoff; a recipient that still fails
// after the final attempt fails the task, which the runner records without
// affecting the in-app notification.
type EmailDeliveryTask struct {
	id          uuid.UUID
	payload     EmailDeliveryPayload
	rawPayload  []byte
	status      TaskStatus
	mailer      mail.Mailer
	maxAttempts int
	logger      *slog.Logger
}

// Ensure EmailDeliveryTask implements Task
var _ Task = (*EmailDeliveryTask)(nil)

// NewEmailDeliveryTask creates a task that delivers the given payload
// through the mailer. maxAttempts bounds the per-recipient retries.
func NewEmailDeliveryTask(
	payload EmailDeliveryPayload,
	mailer mail.Mailer,
	maxAttempts int,
	log *slog.Logger,
) (*EmailDeliveryTask, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if mailer == nil {
		return nil, errors.New("mailer cannot be nil")
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if log == nil {
		log = slog.Default()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return &EmailDeliveryTask{
		id:          uuid.New(),
		payload:     payload,
		rawPayload:  raw,
		status:      TaskStatusPending,
		mailer:      mailer,
		maxAttempts: maxAttempts,
		logger:      log.With(slog.String("component", "email_delivery_task")),
	}, nil
}

// ID implements Task.ID
func (t *EmailDeliveryTask) ID() uuid.UUID {
	return t.id
}

// Type implements Task.Type
func (t *EmailDeliveryTask) Type() string {
	return TaskTypeEmailDelivery
}

// Payload implements Task.Payload
func (t *EmailDeliveryTask) Payload() []byte {
	return t.rawPayload
}

// Status implements Task.Status
func (t *EmailDeliveryTask) Status() TaskStatus {
	return t.status
}

// Execute implements Task.Execute
// Recipients are delivered concurrently, each with its own retry schedule.
func (t *EmailDeliveryTask) Execute(ctx context.Context) error {
	log := t.logger.With(
		slog.String("task_id", t.id.String()),
		slog.Int("recipient_count", len(t.payload.Recipients)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)

	for _, recipient := range t.payload.Recipients {
		recipient := recipient
		g.Go(func() error {
			retrier := retry.NewRetrier(t.maxAttempts, 500*time.Millisecond, 10*time.Second)
			err := retrier.RunContext(gctx, func(ctx context.Context) error {
				return t.mailer.Send(ctx, mail.Message{
					To:      recipient,
					Subject: t.payload.Subject,
					Body:    t.payload.Body,
				})
			})
			if err != nil {
				log.Warn("giving up on email recipient",
					slog.String("error", err.Error()))
				return fmt.Errorf("delivery to recipient failed: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("email delivery finished")
	return nil
}

// EmailDeliveryTaskFactory builds EmailDeliveryTasks, both for fresh
// requests arriving through the event emitter and for records recovered
// from the database after a restart.
type EmailDeliveryTaskFactory struct {
	mailer      mail.Mailer
	maxAttempts int
	logger      *slog.Logger
}

// NewEmailDeliveryTaskFactory creates a new factory for EmailDeliveryTasks.
func NewEmailDeliveryTaskFactory(mailer mail.Mailer, maxAttempts int, log *slog.Logger) *EmailDeliveryTaskFactory {
	if log == nil {
		log = slog.Default()
	}
	return &EmailDeliveryTaskFactory{
		mailer:      mailer,
		maxAttempts: maxAttempts,
		logger:      log.With(slog.String("component", "email_delivery_task_factory")),
	}
}

// CreateTask creates a new EmailDeliveryTask for the given payload.
func (f *EmailDeliveryTaskFactory) CreateTask(payload EmailDeliveryPayload) (Task, error) {
	return NewEmailDeliveryTask(payload, f.mailer, f.maxAttempts, f.logger)
}

// Resolver returns a TaskResolver that rebuilds email delivery executors
// from persisted payloads during recovery.
func (f *EmailDeliveryTaskFactory) Resolver() TaskResolver {
	return func(taskType string, rawPayload []byte) (func(ctx context.Context) error, error) {
		if taskType != TaskTypeEmailDelivery {
			return nil, fmt.Errorf("unsupported task type %q", taskType)
		}

		var payload EmailDeliveryPayload
		if err := json.Unmarshal(rawPayload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if err := payload.Validate(); err != nil {
			return nil, err
		}

		return func(ctx context.Context) error {
			t := &EmailDeliveryTask{
				id:          uuid.New(),
				payload:     payload,
				rawPayload:  rawPayload,
				status:      TaskStatusProcessing,
				mailer:      f.mailer,
				maxAttempts: f.maxAttempts,
				logger:      f.logger,
			}
			return t.Execute(ctx)
		}, nil
	}
}
