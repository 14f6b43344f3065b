package entity

import (
	"strconv"
	"strings"
	"time"
)

type NotificationType int

const (
	NotificationTypeInvite NotificationType = iota + 1
	NotificationTypeCancel
	NotificationTypeLocationConfirmation
	NotificationTypeAttendanceReminder2Days
	NotificationTypeAttendanceReminder1Day
	NotificationTypeAttendanceReminder2Hours
	NotificationTypeAttendanceConfirmed
	NotificationTypeEventStart1Hour
	NotificationTypeCreatorReminder2Days
	NotificationTypeCreatorReminder1Day
	NotificationTypeCreatorReminder2Hours
	NotificationTypeCancelByNoConfirmation
)

var notificationTypeNames = map[NotificationType]string{
	NotificationTypeInvite:                   "invite",
	NotificationTypeCancel:                   "cancel",
	NotificationTypeLocationConfirmation:     "location-confirmation",
	NotificationTypeAttendanceReminder2Days:  "attendance-reminder-2-days",
	NotificationTypeAttendanceReminder1Day:   "attendance-reminder-1-day",
	NotificationTypeAttendanceReminder2Hours: "attendance-reminder-2-hours",
	NotificationTypeAttendanceConfirmed:      "attendance-confirmed",
	NotificationTypeEventStart1Hour:          "event-start-1-hour",
	NotificationTypeCreatorReminder2Days:     "creator-reminder-2-days",
	NotificationTypeCreatorReminder1Day:      "creator-reminder-1-day",
	NotificationTypeCreatorReminder2Hours:    "creator-reminder-2-hours",
	NotificationTypeCancelByNoConfirmation:   "cancel-by-no-confirmation",
}

// NotificationTypes lists every known type in ascending order
func NotificationTypes() []NotificationType {
	types := make([]NotificationType, 0, len(notificationTypeNames))
	for t := NotificationTypeInvite; t <= NotificationTypeCancelByNoConfirmation; t++ {
		types = append(types, t)
	}
	return types
}

func (t NotificationType) String() string {
	if name, ok := notificationTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the known types
func (t NotificationType) Valid() bool {
	_, ok := notificationTypeNames[t]
	return ok
}

// ParseNotificationType accepts a type number or its name
func ParseNotificationType(s string) (NotificationType, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		t := NotificationType(n)
		return t, t.Valid()
	}
	for t, name := range notificationTypeNames {
		if strings.EqualFold(name, s) {
			return t, true
		}
	}
	return 0, false
}

// RecipientRole tells whether a notification targets a guest or the event creator
type RecipientRole int

const (
	RoleGuest   RecipientRole = 1
	RoleCreator RecipientRole = 2
)

// Notification represents a notification that has been sent to a user.
//
// The (type, role, event, user) tuple is unique: a row means the lifecycle
// notification was already handled and must not be sent again.
type Notification struct {
	ID        int64            `gorm:"primaryKey"`
	Type      NotificationType `gorm:"not null;uniqueIndex:idx_notification_tuple"`
	Role      RecipientRole    `gorm:"not null;uniqueIndex:idx_notification_tuple"`
	EventID   int64            `gorm:"not null;uniqueIndex:idx_notification_tuple"`
	UserID    int64            `gorm:"not null;uniqueIndex:idx_notification_tuple;index:idx_notification_unread"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notification_unread"`
	CreatedAt time.Time        `gorm:"not null"`
}

// NotificationKey is the idempotency tuple of a notification
type NotificationKey struct {
	Type    NotificationType
	Role    RecipientRole
	EventID int64
	UserID  int64
}

// Key returns the idempotency tuple of the notification
func (n *Notification) Key() NotificationKey {
	return NotificationKey{Type: n.Type, Role: n.Role, EventID: n.EventID, UserID: n.UserID}
}

// Channels is the delivery matrix of a notification type
type Channels struct {
	Push bool
	Mail bool
}

// ChannelOverride replaces single entries of a Channels matrix; nil fields keep the base value
type ChannelOverride struct {
	Push *bool
	Mail *bool
}

// Merge applies the override over the base matrix
func (o *ChannelOverride) Merge(base Channels) Channels {
	if o == nil {
		return base
	}
	if o.Push != nil {
		base.Push = *o.Push
	}
	if o.Mail != nil {
		base.Mail = *o.Mail
	}
	return base
}
