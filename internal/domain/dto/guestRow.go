package dto

import "github.com/meetingday/notifier/internal/domain/entity"

// GuestRow is an invitee joined with its event, the event creator and,
// for some queries, a cancellation or a meeting point.
type GuestRow struct {
	UserID    int64
	Email     string
	PushToken string
	FirstName string
	LastName  string

	EventID          int64
	Title            string
	Kind             entity.EventKind
	MeetingID        int64
	DeadlineDate     string
	DeadlineTime     string
	TimeZone         string
	CreatorID        int64
	CreatorFirstName string
	CreatorLastName  string

	Reason string

	Address   string
	Place     string
	StartDate string
	StartTime string
}

func (r GuestRow) GuestName() string {
	return entity.FullName(r.FirstName, r.LastName)
}

func (r GuestRow) CreatorName() string {
	return entity.FullName(r.CreatorFirstName, r.CreatorLastName)
}
