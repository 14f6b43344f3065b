package service

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/pkg/logger/types"
)

type guestRules interface {
	Invite(ctx context.Context, dry bool) (int, error)
	Cancel(ctx context.Context, dry bool) (int, error)
	LocationConfirmation(ctx context.Context, dry bool) (int, error)
	AttendanceRemindersAuto(ctx context.Context, dry bool) (int, error)
	AttendanceConfirmed(ctx context.Context, dry bool) (int, error)
	EventStart1Hour(ctx context.Context, dry bool) (int, error)
}

type creatorRules interface {
	ConfirmationRemindersAuto(ctx context.Context, dry bool) (int, error)
	CancelByNoConfirmation(ctx context.Context, dry bool) (int, error)
}

type ruleFunc func(ctx context.Context, dry bool) (int, error)

type rule struct {
	name string
	run  ruleFunc
}

// SchedulerService runs the notification rules in sweeps.
//
// It is not safe for concurrent use: overlapping sweeps may send a notification
// twice before its record is written. Callers serialize sweeps.
type SchedulerService struct {
	config  NotificationConfig
	guest   guestRules
	creator creatorRules

	logger *types.Logger
	opts   options
}

func NewSchedulerService(
	logger *types.Logger,
	config NotificationConfig,
	guest guestRules,
	creator creatorRules,
	opts ...Option,
) *SchedulerService {
	return &SchedulerService{
		config:  config,
		guest:   guest,
		creator: creator,
		logger:  logger,
		opts:    buildOptions(opts),
	}
}

// RunAll runs every guest rule and then the enabled creator rules
func (s *SchedulerService) RunAll(ctx context.Context, dry bool) {
	rules := []rule{
		{"invite", s.guest.Invite},
		{"cancel", s.guest.Cancel},
		{"location-confirmation", s.guest.LocationConfirmation},
		{"attendance-reminders", s.guest.AttendanceRemindersAuto},
		{"attendance-confirmed", s.guest.AttendanceConfirmed},
		{"event-start-1-hour", s.guest.EventStart1Hour},
	}
	if s.config.CreatorRemindersEnabled {
		rules = append(rules, rule{"creator-reminders", s.creator.ConfirmationRemindersAuto})
	}
	if s.config.AutoCancelEnabled {
		rules = append(rules, rule{"auto-cancel", s.creator.CancelByNoConfirmation})
	}

	s.sweep(ctx, "all", rules, dry)
}

// RunByType runs the rule that owns the notification type.
// Reminder types share one rule each; unknown types are ignored.
func (s *SchedulerService) RunByType(ctx context.Context, t int, dry bool) {
	r, ok := s.ruleFor(entity.NotificationType(t))
	if !ok {
		s.logger.Warnf("No rule for notification type %d", t)
		return
	}
	s.sweep(ctx, entity.NotificationType(t).String(), []rule{r}, dry)
}

func (s *SchedulerService) ruleFor(t entity.NotificationType) (rule, bool) {
	switch t {
	case entity.NotificationTypeInvite:
		return rule{"invite", s.guest.Invite}, true
	case entity.NotificationTypeCancel:
		return rule{"cancel", s.guest.Cancel}, true
	case entity.NotificationTypeLocationConfirmation:
		return rule{"location-confirmation", s.guest.LocationConfirmation}, true
	case entity.NotificationTypeAttendanceReminder2Days,
		entity.NotificationTypeAttendanceReminder1Day,
		entity.NotificationTypeAttendanceReminder2Hours:
		return rule{"attendance-reminders", s.guest.AttendanceRemindersAuto}, true
	case entity.NotificationTypeAttendanceConfirmed:
		return rule{"attendance-confirmed", s.guest.AttendanceConfirmed}, true
	case entity.NotificationTypeEventStart1Hour:
		return rule{"event-start-1-hour", s.guest.EventStart1Hour}, true
	case entity.NotificationTypeCreatorReminder2Days,
		entity.NotificationTypeCreatorReminder1Day,
		entity.NotificationTypeCreatorReminder2Hours:
		return rule{"creator-reminders", s.creator.ConfirmationRemindersAuto}, true
	case entity.NotificationTypeCancelByNoConfirmation:
		return rule{"auto-cancel", s.creator.CancelByNoConfirmation}, true
	default:
		return rule{}, false
	}
}

func (s *SchedulerService) sweep(ctx context.Context, scope string, rules []rule, dry bool) {
	started := s.opts.now()
	s.logger.Debugf("Starting notification sweep (scope=%s, dry_run=%t)", scope, dry)

	var errs error
	total := 0
	for _, r := range rules {
		n, err := r.run(ctx, dry)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
		s.opts.recorder.RuleProcessed(r.name, n)
		if n > 0 {
			s.logger.Infof("Rule %s dispatched %d notifications (dry_run=%t)", r.name, n, dry)
		}
		total += n
	}

	elapsed := s.opts.now().Sub(started)
	s.opts.recorder.Sweep(scope, elapsed, errs)

	if errs != nil {
		s.logger.Errorf("Notification sweep finished with errors (scope=%s, dispatched=%d, elapsed=%s): %v", scope, total, elapsed, errs)
		return
	}
	s.logger.Infof("Notification sweep finished (scope=%s, dispatched=%d, elapsed=%s, dry_run=%t)", scope, total, elapsed, dry)
}
