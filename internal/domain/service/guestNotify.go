package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meetingday/notifier/internal/domain/dto"
	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/internal/domain/utils/deadline"
	"github.com/meetingday/notifier/pkg/logger/types"
)

type guestInviteeStorage interface {
	GetActive(ctx context.Context) ([]dto.GuestRow, error)
	GetCancelled(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error)
	GetByStatus(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error)
	GetWithChosenLocation(ctx context.Context) ([]dto.GuestRow, error)
	GetWithMeetingPoint(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error)
}

type notificationChecker interface {
	Exists(ctx context.Context, key entity.NotificationKey) (bool, error)
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, t entity.NotificationType, eventID, userID int64, payload DispatchPayload, opts DispatchOptions) bool
}

var attendanceTiers = map[deadline.Tier]entity.NotificationType{
	deadline.TierTwoDays:  entity.NotificationTypeAttendanceReminder2Days,
	deadline.TierOneDay:   entity.NotificationTypeAttendanceReminder1Day,
	deadline.TierTwoHours: entity.NotificationTypeAttendanceReminder2Hours,
}

// GuestNotifyService holds the notification rules addressed to event invitees
type GuestNotifyService struct {
	inviteeStorage      guestInviteeStorage
	notificationStorage notificationChecker
	dispatcher          notificationDispatcher

	logger *types.Logger
	opts   options
}

func NewGuestNotifyService(
	logger *types.Logger,
	inviteeStorage guestInviteeStorage,
	notificationStorage notificationChecker,
	dispatcher notificationDispatcher,
	opts ...Option,
) *GuestNotifyService {
	return &GuestNotifyService{
		inviteeStorage:      inviteeStorage,
		notificationStorage: notificationStorage,
		dispatcher:          dispatcher,
		logger:              logger,
		opts:                buildOptions(opts),
	}
}

// Invite notifies every invitee of a non-cancelled event once
func (s *GuestNotifyService) Invite(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get invitees: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		fc := guestContext(row)
		switch {
		case row.MeetingID != 0:
			fc = withLocation(fc, row)
			fc.InviteVariant = inviteWithMeetingPoint
		case row.Kind == entity.EventKindMulti:
			fc.Proposals = proposalsPrompt
			fc.InviteVariant = inviteWithProposals
		}
		return s.notify(ctx, entity.NotificationTypeInvite, row, "", fc, dry)
	})
}

// Cancel notifies the invitees who had accepted an event that was cancelled since
func (s *GuestNotifyService) Cancel(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetCancelled(ctx, entity.InviteeStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to get invitees of cancelled events: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		return s.notify(ctx, entity.NotificationTypeCancel, row, row.Reason, guestContext(row), dry)
	})
}

// LocationConfirmation tells the invitees of a multi-location event which proposal was chosen
func (s *GuestNotifyService) LocationConfirmation(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetWithChosenLocation(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get invitees with a chosen location: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		left, ok := s.remaining(entity.NotificationTypeLocationConfirmation, row)
		if !ok || left.Passed {
			return false
		}
		return s.notify(ctx, entity.NotificationTypeLocationConfirmation, row, "", withLocation(guestContext(row), row), dry)
	})
}

// AttendanceRemindersAuto reminds invitees who have not answered yet, picking the
// reminder that matches the time left before the response deadline.
func (s *GuestNotifyService) AttendanceRemindersAuto(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetByStatus(ctx, entity.InviteeStatusNotResponded)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending invitees: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		left, ok := s.remaining(entity.NotificationTypeAttendanceReminder2Days, row)
		if !ok {
			return false
		}
		t, ok := attendanceTiers[deadline.Classify(left)]
		if !ok {
			return false
		}
		return s.notify(ctx, t, row, "", guestContext(row), dry)
	})
}

// AttendanceConfirmed acknowledges invitees who accepted an event whose deadline is still open
func (s *GuestNotifyService) AttendanceConfirmed(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetByStatus(ctx, entity.InviteeStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to get accepted invitees: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		left, ok := s.remaining(entity.NotificationTypeAttendanceConfirmed, row)
		if !ok || left.Passed {
			return false
		}
		return s.notify(ctx, entity.NotificationTypeAttendanceConfirmed, row, "", guestContext(row), dry)
	})
}

// EventStart1Hour warns accepted invitees when the meeting point start is at most one hour away
func (s *GuestNotifyService) EventStart1Hour(ctx context.Context, dry bool) (int, error) {
	rows, err := s.inviteeStorage.GetWithMeetingPoint(ctx, entity.InviteeStatusAccepted)
	if err != nil {
		return 0, fmt.Errorf("failed to get accepted invitees with a meeting point: %w", err)
	}

	return s.each(ctx, rows, func(row dto.GuestRow) bool {
		start, err := deadline.Parse(row.StartDate, row.StartTime, row.TimeZone)
		if err != nil {
			s.logger.Warnf(
				"skipping row with unparseable start (type=%s, event_id=%d, user_id=%d): %v",
				entity.NotificationTypeEventStart1Hour, row.EventID, row.UserID, err,
			)
			return false
		}
		if until := start.Sub(s.opts.now()); until <= 0 || until > time.Hour {
			return false
		}
		return s.notify(ctx, entity.NotificationTypeEventStart1Hour, row, "", withLocation(guestContext(row), row), dry)
	})
}

// each runs fn for every row and counts the successful dispatches
func (s *GuestNotifyService) each(ctx context.Context, rows []dto.GuestRow, fn func(row dto.GuestRow) bool) (int, error) {
	processed := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if fn(row) {
			processed++
		}
	}
	return processed, nil
}

func (s *GuestNotifyService) remaining(t entity.NotificationType, row dto.GuestRow) (deadline.Remaining, bool) {
	_, left, err := deadline.Evaluate(row.DeadlineDate, row.DeadlineTime, row.TimeZone, s.opts.now())
	if err != nil {
		s.logger.Warnf(
			"skipping row with unparseable deadline (type=%s, event_id=%d, user_id=%d, date=%q, time=%q, tz=%q): %v",
			t, row.EventID, row.UserID, row.DeadlineDate, row.DeadlineTime, row.TimeZone, err,
		)
		return left, false
	}
	return left, true
}

// notify dispatches t to the guest unless the tuple was already notified
func (s *GuestNotifyService) notify(ctx context.Context, t entity.NotificationType, row dto.GuestRow, reason string, fc FormatContext, dry bool) bool {
	key := entity.NotificationKey{Type: t, Role: entity.RoleGuest, EventID: row.EventID, UserID: row.UserID}
	exists, err := s.notificationStorage.Exists(ctx, key)
	if err != nil {
		s.logger.Errorf("failed to check notification record (type=%s, event_id=%d, user_id=%d): %v", t, row.EventID, row.UserID, err)
		return false
	}
	if exists {
		return false
	}

	content := Format(t, row.Title, reason, fc)
	data := NotificationData{
		payloadGuestName:   fc.GuestName,
		payloadCreatorName: fc.CreatorName,
		payloadUserID:      strconv.FormatInt(row.UserID, 10),
	}
	if reason != "" || t == entity.NotificationTypeCancel {
		data[payloadReason] = safeReason(reason)
	}
	if fc.InviteVariant != 0 {
		data[payloadInviteVariant] = fc.InviteVariant
	}
	if fc.Proposals != "" {
		data[payloadProposals] = fc.Proposals
	}
	for k, v := range map[string]string{
		payloadPlace:   fc.Place,
		payloadAddress: fc.Address,
		payloadDate:    fc.StartDate,
		payloadTime:    fc.StartTime,
	} {
		if v != "" {
			data[k] = v
		}
	}

	return s.dispatcher.Dispatch(ctx, t, row.EventID, row.UserID, DispatchPayload{
		PushTitle:   content.PushTitle,
		PushBody:    content.PushBody,
		MailSubject: content.MailSubject,
		MailBody:    content.MailBody,
		Token:       row.PushToken,
		Email:       row.Email,
		Data:        data,
	}, DispatchOptions{DryRun: dry, Role: entity.RoleGuest})
}

func guestContext(row dto.GuestRow) FormatContext {
	return FormatContext{
		GuestName:   row.GuestName(),
		CreatorName: row.CreatorName(),
	}
}

func withLocation(fc FormatContext, row dto.GuestRow) FormatContext {
	fc.Place = row.Place
	fc.Address = row.Address
	fc.StartDate = row.StartDate
	fc.StartTime = row.StartTime
	return fc
}
