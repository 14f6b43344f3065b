package postgres

import (
	"context"
	"fmt"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/entity"
	"gorm.io/gorm"
)

type NotificationStorage struct {
	db *gorm.DB
}

func NewNotificationStorage(db *gorm.DB) *NotificationStorage {
	return &NotificationStorage{
		db: db,
	}
}

// Create inserts an unread notification record.
// A record that already exists for the same tuple yields errorz.DuplicateNotification.
func (s *NotificationStorage) Create(ctx context.Context, notification *entity.Notification) error {
	err := s.db.WithContext(ctx).Create(notification).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %v", errorz.DuplicateNotification, err)
	}
	return err
}

// Exists reports whether the tuple was already notified
func (s *NotificationStorage) Exists(ctx context.Context, key entity.NotificationKey) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("type = ? AND role = ? AND event_id = ? AND user_id = ?", key.Type, key.Role, key.EventID, key.UserID).
		Count(&count).Error
	return count > 0, err
}

// CountUnread returns the badge of a user
func (s *NotificationStorage) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkAllRead flags every unread notification of the user as read and returns how many changed
func (s *NotificationStorage) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&entity.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
