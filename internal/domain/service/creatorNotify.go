package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/dto"
	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/internal/domain/utils/deadline"
	"github.com/meetingday/notifier/pkg/logger/types"
)

type creatorEventStorage interface {
	GetUnconfirmed(ctx context.Context) ([]dto.CreatorRow, error)
	AutoCancel(ctx context.Context, eventID, creatorID int64, reason string, now time.Time) error
}

var creatorTiers = map[deadline.Tier]entity.NotificationType{
	deadline.TierTwoDays:  entity.NotificationTypeCreatorReminder2Days,
	deadline.TierOneDay:   entity.NotificationTypeCreatorReminder1Day,
	deadline.TierTwoHours: entity.NotificationTypeCreatorReminder2Hours,
}

// CreatorNotifyService holds the rules addressed to creators of events that are still unconfirmed
type CreatorNotifyService struct {
	config              NotificationConfig
	eventStorage        creatorEventStorage
	notificationStorage notificationChecker
	dispatcher          notificationDispatcher

	logger *types.Logger
	opts   options
}

func NewCreatorNotifyService(
	logger *types.Logger,
	config NotificationConfig,
	eventStorage creatorEventStorage,
	notificationStorage notificationChecker,
	dispatcher notificationDispatcher,
	opts ...Option,
) *CreatorNotifyService {
	return &CreatorNotifyService{
		config:              config,
		eventStorage:        eventStorage,
		notificationStorage: notificationStorage,
		dispatcher:          dispatcher,
		logger:              logger,
		opts:                buildOptions(opts),
	}
}

// ConfirmationRemindersAuto urges creators to confirm their event as the deadline approaches
func (s *CreatorNotifyService) ConfirmationRemindersAuto(ctx context.Context, dry bool) (int, error) {
	if !s.config.CreatorRemindersEnabled {
		return 0, nil
	}

	rows, err := s.eventStorage.GetUnconfirmed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get unconfirmed events: %w", err)
	}

	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		left, ok := s.remaining(entity.NotificationTypeCreatorReminder2Days, row)
		if !ok || left.Passed {
			continue
		}
		t, ok := creatorTiers[deadline.Classify(left)]
		if !ok {
			continue
		}
		if s.alreadyNotified(ctx, t, row) {
			continue
		}
		if s.dispatch(ctx, t, row, DispatchOptions{DryRun: dry, Role: entity.RoleCreator}) {
			processed++
		}
	}
	return processed, nil
}

// CancelByNoConfirmation cancels the events whose creator let the deadline pass without confirming.
//
// The cancellation is written in one transaction with the notification record and
// the creator is notified after it commits. A dry run only reports what it would cancel.
func (s *CreatorNotifyService) CancelByNoConfirmation(ctx context.Context, dry bool) (int, error) {
	if !s.config.AutoCancelEnabled {
		return 0, nil
	}

	rows, err := s.eventStorage.GetUnconfirmed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get unconfirmed events: %w", err)
	}

	t := entity.NotificationTypeCancelByNoConfirmation
	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		left, ok := s.remaining(t, row)
		if !ok || !left.Passed {
			continue
		}
		if s.alreadyNotified(ctx, t, row) {
			continue
		}

		if dry {
			s.logger.Infof("[DRY-RUN] auto-cancel (event_id=%d, creator_id=%d)", row.EventID, row.UserID)
			if s.dispatch(ctx, t, row, DispatchOptions{DryRun: true, Role: entity.RoleCreator}) {
				processed++
			}
			continue
		}

		err := s.eventStorage.AutoCancel(ctx, row.EventID, row.UserID, autoCancelText, s.opts.now())
		if errors.Is(err, errorz.DuplicateNotification) {
			s.logger.Debugf("Event already auto-cancelled (event_id=%d)", row.EventID)
			continue
		}
		if err != nil {
			s.logger.Errorf("failed to auto-cancel event (event_id=%d, creator_id=%d): %v", row.EventID, row.UserID, err)
			continue
		}
		s.logger.Infof("Event auto-cancelled (event_id=%d, creator_id=%d)", row.EventID, row.UserID)

		if s.dispatch(ctx, t, row, DispatchOptions{Role: entity.RoleCreator, SkipRecord: true}) {
			processed++
		}
	}
	return processed, nil
}

func (s *CreatorNotifyService) remaining(t entity.NotificationType, row dto.CreatorRow) (deadline.Remaining, bool) {
	_, left, err := deadline.Evaluate(row.DeadlineDate, row.DeadlineTime, row.TimeZone, s.opts.now())
	if err != nil {
		s.logger.Warnf(
			"skipping event with unparseable deadline (type=%s, event_id=%d, date=%q, time=%q, tz=%q): %v",
			t, row.EventID, row.DeadlineDate, row.DeadlineTime, row.TimeZone, err,
		)
		return left, false
	}
	return left, true
}

func (s *CreatorNotifyService) alreadyNotified(ctx context.Context, t entity.NotificationType, row dto.CreatorRow) bool {
	key := entity.NotificationKey{Type: t, Role: entity.RoleCreator, EventID: row.EventID, UserID: row.UserID}
	exists, err := s.notificationStorage.Exists(ctx, key)
	if err != nil {
		s.logger.Errorf("failed to check notification record (type=%s, event_id=%d, user_id=%d): %v", t, row.EventID, row.UserID, err)
		return true
	}
	return exists
}

func (s *CreatorNotifyService) dispatch(ctx context.Context, t entity.NotificationType, row dto.CreatorRow, opts DispatchOptions) bool {
	content := Format(t, row.Title, "", FormatContext{CreatorName: row.CreatorName()})
	return s.dispatcher.Dispatch(ctx, t, row.EventID, row.UserID, DispatchPayload{
		PushTitle:   content.PushTitle,
		PushBody:    content.PushBody,
		MailSubject: content.MailSubject,
		MailBody:    content.MailBody,
		Token:       row.PushToken,
		Email:       row.Email,
		Data: NotificationData{
			payloadCreatorName: row.CreatorName(),
			payloadUserID:      strconv.FormatInt(row.UserID, 10),
		},
	}, opts)
}
