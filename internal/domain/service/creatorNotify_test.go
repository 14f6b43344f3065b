package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meetingday/notifier/internal/domain/entity"
)

func TestCreatorRules_DisabledByFlags(t *testing.T) {
	e := newEnv(t, NotificationConfig{})
	ana := e.user(t, "Ana", "ana@example.com", "")
	e.event(t, ana, "Cena", 20*time.Hour)
	e.event(t, ana, "Vencido", -time.Hour)

	n, err := e.creator.ConfirmationRemindersAuto(context.Background(), false)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = e.creator.CancelByNoConfirmation(context.Background(), false)
	require.NoError(t, err)
	require.Zero(t, n)

	require.Empty(t, e.records(t))
	var cancellations int64
	require.NoError(t, e.db.Model(&entity.Cancellation{}).Count(&cancellations).Error)
	require.Zero(t, cancellations)
}

func TestCreatorReminders_Tiers(t *testing.T) {
	e := newEnv(t, NotificationConfig{CreatorRemindersEnabled: true})
	ana := e.user(t, "Ana", "ana@example.com", "")

	twoDays := e.event(t, ana, "A", 40*time.Hour)
	oneDay := e.event(t, ana, "B", 5*time.Hour)
	twoHours := e.event(t, ana, "C", 30*time.Minute)
	e.event(t, ana, "D", 10*24*time.Hour)
	e.event(t, ana, "E", -time.Hour)
	confirmed := e.event(t, ana, "F", 5*time.Hour, func(ev *entity.Event) { ev.Confirmed = true })

	n, err := e.creator.ConfirmationRemindersAuto(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.True(t, e.hasRecord(t, entity.NotificationTypeCreatorReminder2Days, entity.RoleCreator, twoDays.ID, ana.ID))
	require.True(t, e.hasRecord(t, entity.NotificationTypeCreatorReminder1Day, entity.RoleCreator, oneDay.ID, ana.ID))
	require.True(t, e.hasRecord(t, entity.NotificationTypeCreatorReminder2Hours, entity.RoleCreator, twoHours.ID, ana.ID))
	require.False(t, e.hasRecord(t, entity.NotificationTypeCreatorReminder1Day, entity.RoleCreator, confirmed.ID, ana.ID))
	require.Len(t, e.records(t), 3)

	require.Len(t, e.mail.sent, 3)
	require.Equal(t, "A", e.mail.sent[0].Subject)
	require.Equal(t, "<p>Te quedan menos de 2 días para confirmar la realización de tu evento.</p>", e.mail.sent[0].Body)

	n, err = e.creator.ConfirmationRemindersAuto(context.Background(), false)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCancelByNoConfirmation(t *testing.T) {
	e := newEnv(t, NotificationConfig{
		AutoCancelEnabled: true,
		Channels: map[entity.NotificationType]entity.Channels{
			entity.NotificationTypeCancelByNoConfirmation: {Mail: true, Push: true},
		},
	})
	ctx := context.Background()
	ana := e.user(t, "Ana", "ana@example.com", "tok-ana")
	expired := e.event(t, ana, "Olvidado", -2*time.Hour)
	pending := e.event(t, ana, "Pendiente", 2*time.Hour)

	n, err := e.creator.CancelByNoConfirmation(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var cancellation entity.Cancellation
	require.NoError(t, e.db.Where("event_id = ?", expired.ID).First(&cancellation).Error)
	require.Equal(t, autoCancelText, cancellation.Reason)

	var gotExpired, gotPending entity.Event
	require.NoError(t, e.db.First(&gotExpired, expired.ID).Error)
	require.False(t, gotExpired.Active)

	require.NoError(t, e.db.First(&gotPending, pending.ID).Error)
	require.True(t, gotPending.Active)

	require.Len(t, e.records(t), 1)
	require.True(t, e.hasRecord(t, entity.NotificationTypeCancelByNoConfirmation, entity.RoleCreator, expired.ID, ana.ID))

	require.Len(t, e.mail.sent, 1)
	require.Equal(t, "<p>Tu evento ha sido cancelado automáticamente porque no lo confirmaste a tiempo.</p>", e.mail.sent[0].Body)
	require.Len(t, e.push.sent, 1)
	require.Equal(t, 1, e.push.sent[0].Badge)

	n, err = e.creator.CancelByNoConfirmation(ctx, false)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, e.records(t), 1)
}

func TestCancelByNoConfirmation_DefaultChannelsSendNothing(t *testing.T) {
	e := newEnv(t, NotificationConfig{AutoCancelEnabled: true})
	ana := e.user(t, "Ana", "ana@example.com", "tok-ana")
	ev := e.event(t, ana, "Olvidado", -time.Minute)

	n, err := e.creator.CancelByNoConfirmation(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Empty(t, e.mail.sent)
	require.Empty(t, e.push.sent)
	require.True(t, e.hasRecord(t, entity.NotificationTypeCancelByNoConfirmation, entity.RoleCreator, ev.ID, ana.ID))
}

func TestCancelByNoConfirmation_DryRun(t *testing.T) {
	e := newEnv(t, NotificationConfig{AutoCancelEnabled: true})
	ana := e.user(t, "Ana", "ana@example.com", "")
	ev := e.event(t, ana, "Olvidado", -time.Hour)

	for i := 0; i < 2; i++ {
		n, err := e.creator.CancelByNoConfirmation(context.Background(), true)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	var got entity.Event
	require.NoError(t, e.db.First(&got, ev.ID).Error)
	require.True(t, got.Active)
	require.Empty(t, e.records(t))

	var cancellations int64
	require.NoError(t, e.db.Model(&entity.Cancellation{}).Count(&cancellations).Error)
	require.Zero(t, cancellations)
}
