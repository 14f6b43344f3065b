package entity

import "time"

type EventKind int

const (
	EventKindVirtual EventKind = iota
	EventKindSingle
	EventKindMulti
)

type Event struct {
	ID           int64 `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatorID    int64     `gorm:"not null;index"`
	Title        string    `gorm:"size:250;not null"`
	Description  string    `gorm:"type:text"`
	Kind         EventKind `gorm:"not null;default:0"`
	MeetingID    int64     `gorm:"not null;default:0"`
	Confirmed    bool      `gorm:"not null;default:false"`
	DeadlineDate string    `gorm:"size:200;not null"`
	DeadlineTime string    `gorm:"size:250"`
	TimeZone     string    `gorm:"size:200"`
	Active       bool      `gorm:"not null"`
}

// Location is a meeting point proposal of an event.
//
// Multi-location events carry several proposals until one of them is chosen
type Location struct {
	ID        int64  `gorm:"primaryKey"`
	EventID   int64  `gorm:"not null;index"`
	Address   string `gorm:"size:250"`
	Place     string `gorm:"size:250"`
	StartDate string `gorm:"size:250"`
	StartTime string `gorm:"size:250"`
	Chosen    bool   `gorm:"not null;default:false"`
}

// Cancellation marks an event as cancelled. An event has at most one.
type Cancellation struct {
	ID        int64  `gorm:"primaryKey"`
	EventID   int64  `gorm:"not null;uniqueIndex"`
	Reason    string `gorm:"type:text"`
	CreatedAt time.Time
}
