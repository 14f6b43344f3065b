package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/meetingday/notifier/internal/adapters/alert"
	"github.com/meetingday/notifier/internal/adapters/config"
	"github.com/meetingday/notifier/internal/adapters/controller/cron"
	"github.com/meetingday/notifier/internal/adapters/database/postgres"
	"github.com/meetingday/notifier/internal/adapters/database/redis"
	"github.com/meetingday/notifier/internal/adapters/metrics"
	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/service"
	"github.com/meetingday/notifier/pkg/logger"
	"github.com/meetingday/notifier/pkg/logger/types"
)

const shutdownTimeout = 30 * time.Second

type Notifier struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Logger  *types.Logger

	Scheduler *service.SchedulerService
	Users     *service.UserService

	config *config.Config
}

func New(cfg *config.Config) (*Notifier, error) {
	names := []string{"notifier", "dispatcher", "guest", "creator", "scheduler"}
	loggers := make(map[string]*types.Logger, len(names))
	for _, name := range names {
		l, err := logger.Named(name)
		if err != nil {
			return nil, err
		}
		loggers[name] = l
	}

	if len(cfg.Alerts.URLs) > 0 {
		hook, err := alert.NewShoutrrr(loggers["notifier"], cfg.Alerts.URLs, cfg.Alerts.Level, cfg.Alerts.Timeout)
		if err != nil {
			loggers["notifier"].Errorf("Failed to create alert log hook: %v", err)
		} else {
			logger.SetLogHook(hook.LogHook())
		}
	}

	m := metrics.New()
	recorder := service.WithRecorder(m)

	notificationStorage := postgres.NewNotificationStorage(cfg.Database)
	dispatcher := service.NewDispatcher(
		loggers["dispatcher"],
		cfg.Notifications,
		cfg.Mail,
		cfg.Push,
		notificationStorage,
		recorder,
	)
	guest := service.NewGuestNotifyService(
		loggers["guest"],
		postgres.NewInviteeStorage(cfg.Database),
		notificationStorage,
		dispatcher,
		recorder,
	)
	creator := service.NewCreatorNotifyService(
		loggers["creator"],
		cfg.Notifications,
		postgres.NewEventStorage(cfg.Database),
		notificationStorage,
		dispatcher,
		recorder,
	)

	return &Notifier{
		DB:        cfg.Database,
		Redis:     cfg.Redis,
		Metrics:   m,
		Logger:    loggers["notifier"],
		Scheduler: service.NewSchedulerService(loggers["scheduler"], cfg.Notifications, guest, creator, recorder),
		Users:     service.NewUserService(postgres.NewUserStorage(cfg.Database), notificationStorage),
		config:    cfg,
	}, nil
}

// Serve runs the periodic sweep and the metrics endpoint until ctx is done
func (n *Notifier) Serve(ctx context.Context) error {
	cronLogger, err := logger.Named("cron")
	if err != nil {
		return err
	}

	opts := []cron.Option{
		cron.WithSchedule(n.config.Trigger.Schedule),
		cron.WithDryRun(n.config.Trigger.DryRun),
	}
	if n.Redis != nil {
		opts = append(opts, cron.WithLocker(n.Redis.Locks, n.config.Trigger.LockTTL))
	} else {
		n.Logger.Warn("Redis is disabled, sweeps are not serialized across instances")
	}
	trigger := cron.New(cronLogger, n.Scheduler, opts...)

	server := metrics.NewServer(n.Logger, n.config.MetricsListen, n.Metrics)
	server.Start()

	if err = trigger.Start(ctx); err != nil {
		return errors.Join(err, server.Shutdown(context.Background()))
	}

	<-ctx.Done()
	n.Logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	trigger.Stop(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}

// RunAll runs one full sweep under the same lock the scheduled trigger takes
func (n *Notifier) RunAll(ctx context.Context, dry bool) error {
	return n.runLocked(ctx, func(ctx context.Context) {
		n.Scheduler.RunAll(ctx, dry)
	})
}

// RunByType runs the rule owning t under the sweep lock
func (n *Notifier) RunByType(ctx context.Context, t int, dry bool) error {
	return n.runLocked(ctx, func(ctx context.Context) {
		n.Scheduler.RunByType(ctx, t, dry)
	})
}

func (n *Notifier) runLocked(ctx context.Context, fn func(ctx context.Context)) error {
	var locker cron.Locker
	if n.Redis != nil {
		locker = n.Redis.Locks
	}

	err := cron.RunLocked(ctx, locker, n.config.Trigger.LockTTL, fn)
	switch {
	case errors.Is(err, errorz.LockNotAcquired):
		n.Logger.Warn("Run skipped, another sweep holds the lock")
		return fmt.Errorf("sweep already running: %w", err)
	case err != nil:
		n.Logger.Errorf("Sweep lock failed: %v", err)
		return err
	}
	return nil
}

// Close releases the database and redis connections
func (n *Notifier) Close() {
	if sqlDB, err := n.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if n.Redis != nil {
		_ = n.Redis.Close()
	}
	logger.Sync()
}
