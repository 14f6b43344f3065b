package alert

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.uber.org/zap/zapcore"

	"github.com/meetingday/notifier/pkg/logger/types"
)

const failedMarker = "failed to forward log entry"

type sender interface {
	Send(message string, params *stypes.Params) []error
}

// Hook forwards log entries at or above a level to shoutrrr services
type Hook struct {
	sender sender
	level  zapcore.Level
	logger *types.Logger
}

// NewShoutrrr builds a hook over the given shoutrrr service URLs
func NewShoutrrr(logger *types.Logger, urls []string, level zapcore.Level, timeout time.Duration) (*Hook, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one alert URL is required")
	}
	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert sender: %w", err)
	}
	if timeout > 0 {
		router.Timeout = timeout
	}
	router.SetLogger(stdlog.New(io.Discard, "", 0))

	return newHook(logger, router, level), nil
}

func newHook(logger *types.Logger, s sender, level zapcore.Level) *Hook {
	return &Hook{sender: s, level: level, logger: logger}
}

// LogHook returns the function to install with logger.SetLogHook
func (h *Hook) LogHook() types.LogHook {
	return func(entry types.Log) {
		if entry.Level < h.level || strings.Contains(entry.Message, failedMarker) {
			return
		}

		params := stypes.Params{}
		params.SetTitle(fmt.Sprintf("[%s] %s", entry.Level.CapitalString(), entry.LoggerName))

		for _, err := range h.sender.Send(format(entry), &params) {
			if err != nil {
				h.logger.Errorf("%s: %v", failedMarker, err)
				return
			}
		}
	}
}

func format(entry types.Log) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp.UTC().Format(time.RFC3339))
	if entry.Caller != "" {
		b.WriteString(" ")
		b.WriteString(entry.Caller)
	}
	b.WriteString("\n")
	b.WriteString(entry.Message)
	return b.String()
}
