package dto

import "github.com/meetingday/notifier/internal/domain/entity"

// CreatorRow is an unconfirmed, non-cancelled event joined with its creator
type CreatorRow struct {
	UserID    int64
	Email     string
	PushToken string
	FirstName string
	LastName  string

	EventID      int64
	Title        string
	DeadlineDate string
	DeadlineTime string
	TimeZone     string
}

func (r CreatorRow) CreatorName() string {
	return entity.FullName(r.FirstName, r.LastName)
}
