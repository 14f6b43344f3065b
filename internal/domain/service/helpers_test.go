package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/meetingday/notifier/internal/adapters/database/postgres"
	"github.com/meetingday/notifier/internal/adapters/database/testutil"
	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/pkg/logger/types"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func testLogger(t *testing.T) *types.Logger {
	return &types.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar(), Name: t.Name()}
}

type sentMail struct {
	To, Subject, Body, ActionURL, ActionLabel string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMail) Send(_ context.Context, to, subject, body, actionURL, actionLabel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to, subject, body, actionURL, actionLabel})
	return f.err
}

type sentPush struct {
	Type               int
	Title, Body, Token string
	Data               map[string]string
	Badge              int
}

type fakePush struct {
	mu   sync.Mutex
	sent []sentPush
	err  error
}

func (f *fakePush) Send(_ context.Context, t int, title, body, token string, data map[string]string, badge int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{t, title, body, token, data, badge})
	return f.err
}

type env struct {
	db            *gorm.DB
	mail          *fakeMail
	push          *fakePush
	notifications *postgres.NotificationStorage
	dispatcher    *Dispatcher
	guest         *GuestNotifyService
	creator       *CreatorNotifyService
}

func newEnv(t *testing.T, config NotificationConfig) *env {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	e := &env{
		db:            db,
		mail:          &fakeMail{},
		push:          &fakePush{},
		notifications: postgres.NewNotificationStorage(db),
	}
	log := testLogger(t)
	e.dispatcher = NewDispatcher(log, config, e.mail, e.push, e.notifications, WithClock(testClock))
	e.guest = NewGuestNotifyService(log, postgres.NewInviteeStorage(db), e.notifications, e.dispatcher, WithClock(testClock))
	e.creator = NewCreatorNotifyService(log, config, postgres.NewEventStorage(db), e.notifications, e.dispatcher, WithClock(testClock))
	return e
}

func (e *env) user(t *testing.T, first, email, token string) *entity.User {
	t.Helper()
	u := &entity.User{FirstName: first, LastName: "Test", Nick: first, Email: email, PushToken: token}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

// event creates an active event whose response deadline is left away from testNow
func (e *env) event(t *testing.T, creator *entity.User, title string, left time.Duration, mods ...func(*entity.Event)) *entity.Event {
	t.Helper()
	at := testNow.Add(left)
	ev := &entity.Event{
		CreatorID:    creator.ID,
		Title:        title,
		Kind:         entity.EventKindVirtual,
		DeadlineDate: at.Format("02/01/2006"),
		DeadlineTime: at.Format("15:04"),
		TimeZone:     "UTC",
		Active:       true,
	}
	for _, mod := range mods {
		mod(ev)
	}
	require.NoError(t, e.db.Create(ev).Error)
	return ev
}

func (e *env) invite(t *testing.T, ev *entity.Event, u *entity.User, status entity.InviteeStatus) {
	t.Helper()
	require.NoError(t, e.db.Create(&entity.Invitee{EventID: ev.ID, UserID: u.ID, Status: status}).Error)
}

func (e *env) cancel(t *testing.T, ev *entity.Event, reason string) {
	t.Helper()
	require.NoError(t, e.db.Create(&entity.Cancellation{EventID: ev.ID, Reason: reason}).Error)
}

func (e *env) records(t *testing.T) []entity.Notification {
	t.Helper()
	var out []entity.Notification
	require.NoError(t, e.db.Order("id").Find(&out).Error)
	return out
}

func (e *env) hasRecord(t *testing.T, typ entity.NotificationType, role entity.RecipientRole, eventID, userID int64) bool {
	t.Helper()
	ok, err := e.notifications.Exists(context.Background(), entity.NotificationKey{Type: typ, Role: role, EventID: eventID, UserID: userID})
	require.NoError(t, err)
	return ok
}

func boolPtr(b bool) *bool { return &b }
