package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/dto"
	"github.com/meetingday/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

type EventStorage struct {
	db *gorm.DB
}

func NewEventStorage(db *gorm.DB) *EventStorage {
	return &EventStorage{
		db: db,
	}
}

// Create is a function that creates a new event in the database.
func (s *EventStorage) Create(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	err := s.db.WithContext(ctx).Create(event).Error
	return event, err
}

// Get is a function that gets an event from the database by id.
func (s *EventStorage) Get(ctx context.Context, id int64) (*entity.Event, error) {
	var event entity.Event
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	return &event, err
}

// GetUnconfirmed returns the events whose creator has not confirmed them yet and
// that have not been cancelled, joined with the creator.
func (s *EventStorage) GetUnconfirmed(ctx context.Context) ([]dto.CreatorRow, error) {
	var rows []dto.CreatorRow
	err := s.db.WithContext(ctx).
		Table("events AS e").
		Select(`u.id AS user_id, COALESCE(u.email, '') AS email, COALESCE(u.push_token, '') AS push_token,
			COALESCE(u.first_name, '') AS first_name, COALESCE(u.last_name, '') AS last_name,
			e.id AS event_id, e.title, e.deadline_date, COALESCE(e.deadline_time, '') AS deadline_time,
			COALESCE(e.time_zone, '') AS time_zone`).
		Joins("JOIN users AS u ON u.id = e.creator_id").
		Where("e.confirmed = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM cancellations AS c WHERE c.event_id = e.id)").
		Order("e.id").
		Scan(&rows).Error
	return rows, err
}

// AutoCancel cancels an event its creator never confirmed.
//
// The cancellation record, the deactivation of the event and the creator
// notification record are written in one transaction.
func (s *EventStorage) AutoCancel(ctx context.Context, eventID, creatorID int64, reason string, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cancellation := &entity.Cancellation{EventID: eventID, Reason: reason, CreatedAt: now}
		if err := tx.Create(cancellation).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("event %d already cancelled: %w", eventID, errorz.DuplicateNotification)
			}
			return fmt.Errorf("failed to create cancellation: %w", err)
		}

		err := tx.Model(&entity.Event{}).
			Where("id = ?", eventID).
			Updates(map[string]interface{}{"active": false, "updated_at": now}).Error
		if err != nil {
			return fmt.Errorf("failed to deactivate event: %w", err)
		}

		notification := &entity.Notification{
			Type:      entity.NotificationTypeCancelByNoConfirmation,
			Role:      entity.RoleCreator,
			EventID:   eventID,
			UserID:    creatorID,
			CreatedAt: now,
		}
		if err := tx.Create(notification).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %v", errorz.DuplicateNotification, err)
			}
			return fmt.Errorf("failed to create notification record: %w", err)
		}
		return nil
	})
}
