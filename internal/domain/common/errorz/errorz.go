package errorz

import "errors"

var (
	DuplicateNotification   = errors.New("notification already recorded")
	InvalidDeadline         = errors.New("invalid deadline")
	UnknownNotificationType = errors.New("unknown notification type")
	LockNotAcquired         = errors.New("lock not acquired")
	UserNotFound            = errors.New("user not found")
)
