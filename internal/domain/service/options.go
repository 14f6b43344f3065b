package service

import (
	"time"

	"github.com/meetingday/notifier/internal/domain/entity"
)

// NotificationConfig is the static notification configuration shared by the
// dispatcher and the rule sets.
type NotificationConfig struct {
	CreatorRemindersEnabled bool
	AutoCancelEnabled       bool
	// Channels replaces the built-in channel matrix of the listed types
	Channels map[entity.NotificationType]entity.Channels
}

// ChannelsFor resolves the channel matrix of a type: configuration first,
// then the built-in table, then both channels on.
func (c NotificationConfig) ChannelsFor(t entity.NotificationType) entity.Channels {
	if ch, ok := c.Channels[t]; ok {
		return ch
	}
	if entry, ok := notificationTypes[t]; ok {
		return entry.channels
	}
	return entity.Channels{Push: true, Mail: true}
}

// Recorder receives notification outcomes, typically to export them as metrics
type Recorder interface {
	Dispatch(t entity.NotificationType, result string)
	ChannelSend(channel, result string)
	RuleProcessed(rule string, count int)
	Sweep(scope string, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) Dispatch(entity.NotificationType, string) {}
func (noopRecorder) ChannelSend(string, string) {}
func (noopRecorder) RuleProcessed(string, int) {}
func (noopRecorder) Sweep(string, time.Duration, error) {}

type options struct {
	now      func() time.Time
	recorder Recorder
}

// Option configures a notification service
type Option func(*options)

// WithClock overrides the time source, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRecorder reports outcomes to r
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, recorder: noopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
