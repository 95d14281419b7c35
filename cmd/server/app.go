package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatherly/gatherly-api/internal/config"
	"github.com/gatherly/gatherly-api/internal/events"
	"github.com/gatherly/gatherly-api/internal/platform/mail"
	"github.com/gatherly/gatherly-api/internal/platform/postgres"
	"github.com/gatherly/gatherly-api/internal/service"
	"github.com/gatherly/gatherly-api/internal/service/auth"
	"github.com/gatherly/gatherly-api/internal/store"
	"github.com/gatherly/gatherly-api/internal/task"
)

// application holds the shared application dependencies so that startup
// wiring and shutdown cleanup live in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore          store.UserStore
	eventStore         store.EventStore
	participationStore store.ParticipationStore
	notificationStore  store.NotificationStore
	taskStore          task.TaskStore

	// Services
	jwtService           auth.JWTService
	passwordVerifier     auth.PasswordVerifier
	userService          service.UserService
	eventService         service.EventService
	participationService service.ParticipationService
	notificationService  service.NotificationService

	// Event system and background processing
	eventEmitter events.EventEmitter
	mailer       mail.Mailer
	taskRunner   *task.TaskRunner
	scheduler    *task.Scheduler
}

// newApplication wires all application dependencies. The caller supplies
// the core pieces that must exist first: configuration, logger, and an
// open database connection. Once construction succeeds, the application
// owns the connection and closes it in cleanup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	bcryptCost := cfg.Auth.BcryptCost
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}

	app.userStore = postgres.NewPostgresUserStore(db, bcryptCost, logger)
	app.eventStore = postgres.NewPostgresEventStore(db, logger)
	app.participationStore = postgres.NewPostgresParticipationStore(db, logger)
	app.notificationStore = postgres.NewPostgresNotificationStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.mailer, err = setupMailer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)

	emailFactory := task.NewEmailDeliveryTaskFactory(
		app.mailer, cfg.Task.DeliveryMaxAttempts, logger)
	app.taskRunner.SetResolver(emailFactory.Resolver())

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(task.NewTaskFactoryEventHandler(emailFactory, app.taskRunner, logger))
	app.eventEmitter = emitter

	txRunner := service.NewDBTxRunner(db)
	purgeReadAfter := time.Duration(cfg.Task.PurgeReadAfterDays) * 24 * time.Hour

	app.notificationService = service.NewNotificationService(
		app.notificationStore,
		app.participationStore,
		app.userStore,
		app.eventStore,
		app.eventEmitter,
		purgeReadAfter,
		logger,
	)
	app.userService = service.NewUserService(app.userStore, app.passwordVerifier, logger)
	app.eventService = service.NewEventService(
		txRunner,
		app.eventStore,
		app.participationStore,
		app.userStore,
		app.notificationService,
		logger,
	)
	app.participationService = service.NewParticipationService(
		txRunner,
		app.eventStore,
		app.participationStore,
		app.userStore,
		app.notificationService,
		logger,
	)

	app.scheduler = task.NewScheduler(
		app.notificationService,
		app.notificationService,
		app.taskStore,
		task.SchedulerConfig{RunHourUTC: cfg.Task.ReminderHourUTC},
		logger,
	)

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	app.scheduler.Start()

	logger.Info("application initialized")
	return app, nil
}

// setupMailer picks the delivery backend from configuration. Without an
// SMTP host, notification emails are logged and dropped; in-app
// notifications still work.
func setupMailer(cfg *config.Config, logger *slog.Logger) (mail.Mailer, error) {
	if cfg.Mail.Host == "" {
		logger.Warn("no SMTP host configured, email delivery disabled")
		return mail.NewNoopMailer(logger), nil
	}
	return mail.NewSMTPMailer(cfg.Mail, logger)
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops background processing and releases resources. Called after
// the HTTP server has drained.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
