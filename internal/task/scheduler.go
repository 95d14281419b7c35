package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ReminderSweeper sends day-before reminders for upcoming events.
// Implemented by the notification service.
type ReminderSweeper interface {
	SendDayBeforeReminders(ctx context.Context) (int, error)
}

// NotificationPurger removes old read notifications.
// Implemented by the notification service.
type NotificationPurger interface {
	PurgeOldRead(ctx context.Context) (int64, error)
}

// SchedulerConfig holds configuration for the daily job scheduler.
type SchedulerConfig struct {
	// RunHourUTC is the hour of day (UTC) at which the daily jobs run.
	RunHourUTC int

	// PruneTasksAfter is the age past which finished task rows are deleted.
	// If zero, defaults to 7 days.
	PruneTasksAfter time.Duration
}

// Scheduler drives the recurring maintenance jobs: the day-before reminder
// sweep, the read-notification purge, and pruning of finished task rows.
// Jobs run once per day at the configured hour. Each job is idempotent, so
// an overlap with a previous deployment's run is harmless.
type Scheduler struct {
	sweeper    ReminderSweeper
	purger     NotificationPurger
	taskStore  TaskStore
	config     SchedulerConfig
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	ctx        context.Context
	wg         sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
// If log is nil, the default logger is used.
func NewScheduler(
	sweeper ReminderSweeper,
	purger NotificationPurger,
	taskStore TaskStore,
	config SchedulerConfig,
	log *slog.Logger,
) *Scheduler {
	if config.PruneTasksAfter == 0 {
		config.PruneTasksAfter = 7 * 24 * time.Hour
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		sweeper:    sweeper,
		purger:     purger,
		taskStore:  taskStore,
		config:     config,
		logger:     log.With(slog.String("component", "scheduler")),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the scheduling loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop shuts the scheduler down, waiting for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		next := s.nextRun(time.Now().UTC())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(s.ctx)
		}
	}
}

// nextRun returns the next instant at which the daily jobs should run.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	now = now.UTC()
	run := time.Date(now.Year(), now.Month(), now.Day(), s.config.RunHourUTC, 0, 0, 0, time.UTC)
	if !run.After(now) {
		run = run.Add(24 * time.Hour)
	}
	return run
}

// RunOnce executes all daily jobs immediately. Failures are logged and do
// not stop the remaining jobs; every job gets its chance each cycle.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	s.logger.Info("running scheduled jobs")

	if s.sweeper != nil {
		count, err := s.sweeper.SendDayBeforeReminders(ctx)
		if err != nil {
			s.logger.Error("reminder sweep failed", slog.String("error", err.Error()))
		} else {
			s.logger.Info("reminder sweep finished", slog.Int("reminders_sent", count))
		}
	}

	if s.purger != nil {
		purged, err := s.purger.PurgeOldRead(ctx)
		if err != nil {
			s.logger.Error("notification purge failed", slog.String("error", err.Error()))
		} else {
			s.logger.Info("notification purge finished", slog.Int64("purged", purged))
		}
	}

	if s.taskStore != nil {
		cutoff := time.Now().UTC().Add(-s.config.PruneTasksAfter)
		pruned, err := s.taskStore.PruneFinished(ctx, cutoff)
		if err != nil {
			s.logger.Error("task prune failed", slog.String("error", err.Error()))
		} else {
			s.logger.Info("task prune finished", slog.Int64("pruned", pruned))
		}
	}

	s.logger.Info("scheduled jobs finished",
		slog.Duration("elapsed", time.Since(start)))
}
