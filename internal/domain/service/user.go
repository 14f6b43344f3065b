package service

import (
	"context"
	"fmt"
)

type userResolver interface {
	ResolveID(ctx context.Context, ref string) (int64, error)
}

type inboxStorage interface {
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// UserService exposes the notification inbox of a user
type UserService struct {
	userStorage         userResolver
	notificationStorage inboxStorage
}

func NewUserService(userStorage userResolver, notificationStorage inboxStorage) *UserService {
	return &UserService{
		userStorage:         userStorage,
		notificationStorage: notificationStorage,
	}
}

// Badge returns the resolved user id and its unread notification count.
// ref is a user id or a nick.
func (s *UserService) Badge(ctx context.Context, ref string) (int64, int64, error) {
	userID, err := s.userStorage.ResolveID(ctx, ref)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve user %q: %w", ref, err)
	}
	unread, err := s.notificationStorage.CountUnread(ctx, userID)
	return userID, unread, err
}

// MarkRead flags every unread notification of the user as read and returns how many changed
func (s *UserService) MarkRead(ctx context.Context, ref string) (int64, int64, error) {
	userID, err := s.userStorage.ResolveID(ctx, ref)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve user %q: %w", ref, err)
	}
	updated, err := s.notificationStorage.MarkAllRead(ctx, userID)
	return userID, updated, err
}
