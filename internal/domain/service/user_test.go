package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meetingday/notifier/internal/adapters/database/postgres"
	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/entity"
)

func TestUserService_BadgeAndMarkRead(t *testing.T) {
	e := newEnv(t, NotificationConfig{})
	ctx := context.Background()
	luis := e.user(t, "luis", "luis@example.com", "")
	svc := NewUserService(postgres.NewUserStorage(e.db), e.notifications)

	for _, typ := range []entity.NotificationType{entity.NotificationTypeInvite, entity.NotificationTypeCancel} {
		require.NoError(t, e.notifications.Create(ctx, &entity.Notification{Type: typ, Role: entity.RoleGuest, EventID: 1, UserID: luis.ID, CreatedAt: testNow}))
	}

	id, unread, err := svc.Badge(ctx, "luis")
	require.NoError(t, err)
	require.Equal(t, luis.ID, id)
	require.EqualValues(t, 2, unread)

	_, updated, err := svc.MarkRead(ctx, "luis")
	require.NoError(t, err)
	require.EqualValues(t, 2, updated)

	_, unread, err = svc.Badge(ctx, "luis")
	require.NoError(t, err)
	require.Zero(t, unread)

	_, _, err = svc.Badge(ctx, "ghost")
	require.ErrorIs(t, err, errorz.UserNotFound)
}
