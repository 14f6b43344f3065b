package postgres

import "github.com/meetingday/notifier/internal/domain/entity"

// Migrations is a list of all gorm migrations for the database.
var Migrations = []interface{}{
	&entity.User{},
	&entity.Event{},
	&entity.Location{},
	&entity.Invitee{},
	&entity.Cancellation{},
	&entity.Notification{},
}
