package entity

import "strings"

type User struct {
	ID        int64  `gorm:"primaryKey"`
	FirstName string `gorm:"size:250"`
	LastName  string `gorm:"size:250"`
	Nick      string `gorm:"size:250;index"`
	Email     string `gorm:"size:250"`
	PushToken string `gorm:"type:text"`
}

// FullName joins the display name parts, skipping empty ones
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

type InviteeStatus int

const (
	InviteeStatusNotResponded InviteeStatus = iota
	InviteeStatusPending
	InviteeStatusAccepted
	InviteeStatusRejected
)

// Invitee links a user to an event they were invited to
type Invitee struct {
	ID      int64         `gorm:"primaryKey"`
	EventID int64         `gorm:"not null;uniqueIndex:idx_invitee_event_user"`
	UserID  int64         `gorm:"not null;uniqueIndex:idx_invitee_event_user"`
	Status  InviteeStatus `gorm:"not null;default:0"`
}
