package alert

import (
	"errors"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/meetingday/notifier/pkg/logger/types"
)

type sent struct {
	message string
	title   string
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	title, _ := params.Title()
	f.sent = append(f.sent, sent{message: message, title: title})
	return []error{nil, f.err}
}

func testLogger(t *testing.T) *types.Logger {
	return &types.Logger{SugaredLogger: zaptest.NewLogger(t).Sugar()}
}

func TestLogHookFiltersByLevel(t *testing.T) {
	s := &fakeSender{}
	hook := newHook(testLogger(t), s, zapcore.ErrorLevel).LogHook()

	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	hook(types.Log{Timestamp: at, Level: zapcore.InfoLevel, Message: "sweep finished"})
	hook(types.Log{Timestamp: at, Level: zapcore.ErrorLevel, LoggerName: "main.scheduler", Caller: "service/scheduler.go:140", Message: "sweep failed"})

	require.Len(t, s.sent, 1)
	assert.Equal(t, "[ERROR] main.scheduler", s.sent[0].title)
	assert.Equal(t, "2026-06-01T12:00:00Z service/scheduler.go:140\nsweep failed", s.sent[0].message)
}

func TestLogHookSkipsItsOwnFailures(t *testing.T) {
	s := &fakeSender{err: errors.New("unreachable")}
	hook := newHook(testLogger(t), s, zapcore.WarnLevel).LogHook()

	hook(types.Log{Level: zapcore.ErrorLevel, Message: "boom"})
	hook(types.Log{Level: zapcore.ErrorLevel, Message: failedMarker + ": unreachable"})

	assert.Len(t, s.sent, 1)
}

func TestNewShoutrrrRequiresURL(t *testing.T) {
	_, err := NewShoutrrr(testLogger(t), nil, zapcore.ErrorLevel, time.Second)
	assert.Error(t, err)

	_, err = NewShoutrrr(testLogger(t), []string{"not a url"}, zapcore.ErrorLevel, time.Second)
	assert.Error(t, err)
}
