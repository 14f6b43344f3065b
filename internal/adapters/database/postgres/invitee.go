package postgres

import (
	"context"

	"github.com/meetingday/notifier/internal/domain/dto"
	"github.com/meetingday/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

const guestColumns = `u.id AS user_id, COALESCE(u.email, '') AS email, COALESCE(u.push_token, '') AS push_token,
	COALESCE(u.first_name, '') AS first_name, COALESCE(u.last_name, '') AS last_name,
	e.id AS event_id, e.title, e.kind, e.meeting_id, e.deadline_date,
	COALESCE(e.deadline_time, '') AS deadline_time, COALESCE(e.time_zone, '') AS time_zone,
	e.creator_id, COALESCE(cr.first_name, '') AS creator_first_name, COALESCE(cr.last_name, '') AS creator_last_name`

const locationColumns = `COALESCE(l.address, '') AS address, COALESCE(l.place, '') AS place,
	COALESCE(l.start_date, '') AS start_date, COALESCE(l.start_time, '') AS start_time`

type InviteeStorage struct {
	db *gorm.DB
}

func NewInviteeStorage(db *gorm.DB) *InviteeStorage {
	return &InviteeStorage{
		db: db,
	}
}

func (s *InviteeStorage) Create(ctx context.Context, invitee *entity.Invitee) (*entity.Invitee, error) {
	err := s.db.WithContext(ctx).Create(invitee).Error
	return invitee, err
}

// guests starts a query over invitees joined with the user, the event and the event creator
func (s *InviteeStorage) guests(ctx context.Context, columns ...string) *gorm.DB {
	sel := guestColumns
	for _, c := range columns {
		sel += ", " + c
	}
	return s.db.WithContext(ctx).
		Table("invitees AS i").
		Select(sel).
		Joins("JOIN users AS u ON u.id = i.user_id").
		Joins("JOIN events AS e ON e.id = i.event_id").
		Joins("LEFT JOIN users AS cr ON cr.id = e.creator_id")
}

func notCancelled(db *gorm.DB) *gorm.DB {
	return db.Where("NOT EXISTS (SELECT 1 FROM cancellations AS c WHERE c.event_id = i.event_id)")
}

// GetActive returns every invitee of a non-cancelled event with the resolved meeting point, if any
func (s *InviteeStorage) GetActive(ctx context.Context) ([]dto.GuestRow, error) {
	var rows []dto.GuestRow
	err := s.guests(ctx, locationColumns).
		Joins("LEFT JOIN locations AS l ON l.id = e.meeting_id AND e.meeting_id <> 0").
		Scopes(notCancelled).
		Order("i.event_id, i.user_id").
		Scan(&rows).Error
	return rows, err
}

// GetCancelled returns the invitees with the given status on cancelled events, with the cancellation reason
func (s *InviteeStorage) GetCancelled(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error) {
	var rows []dto.GuestRow
	err := s.guests(ctx, "COALESCE(c.reason, '') AS reason").
		Joins("JOIN cancellations AS c ON c.event_id = i.event_id").
		Where("i.status = ?", status).
		Order("i.event_id, i.user_id").
		Scan(&rows).Error
	return rows, err
}

// GetByStatus returns the invitees with the given status on non-cancelled events
func (s *InviteeStorage) GetByStatus(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error) {
	var rows []dto.GuestRow
	err := s.guests(ctx).
		Scopes(notCancelled).
		Where("i.status = ?", status).
		Order("i.event_id, i.user_id").
		Scan(&rows).Error
	return rows, err
}

// GetWithChosenLocation returns the invitees of non-cancelled multi-location events that
// have no meeting point yet and exactly one chosen proposal, joined with that proposal.
func (s *InviteeStorage) GetWithChosenLocation(ctx context.Context) ([]dto.GuestRow, error) {
	var rows []dto.GuestRow
	err := s.guests(ctx, locationColumns).
		Joins("JOIN locations AS l ON l.event_id = e.id AND l.chosen = ?", true).
		Scopes(notCancelled).
		Where("e.kind = ? AND e.meeting_id = 0", entity.EventKindMulti).
		Where("(SELECT COUNT(*) FROM locations AS l2 WHERE l2.event_id = e.id AND l2.chosen = ?) = 1", true).
		Order("i.event_id, i.user_id").
		Scan(&rows).Error
	return rows, err
}

// GetWithMeetingPoint returns the invitees with the given status on non-cancelled events
// whose meeting point is resolved, joined with the meeting point.
func (s *InviteeStorage) GetWithMeetingPoint(ctx context.Context, status entity.InviteeStatus) ([]dto.GuestRow, error) {
	var rows []dto.GuestRow
	err := s.guests(ctx, locationColumns).
		Joins("JOIN locations AS l ON l.id = e.meeting_id").
		Scopes(notCancelled).
		Where("i.status = ? AND e.meeting_id <> 0", status).
		Order("i.event_id, i.user_id").
		Scan(&rows).Error
	return rows, err
}
