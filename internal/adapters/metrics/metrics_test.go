package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetingday/notifier/internal/domain/entity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRecorderCounts(t *testing.T) {
	m := New()

	m.Dispatch(entity.NotificationTypeInvite, "sent")
	m.Dispatch(entity.NotificationTypeInvite, "sent")
	m.Dispatch(entity.NotificationTypeCancel, "failed")
	m.ChannelSend("mail", "sent")
	m.RuleProcessed("invite", 3)
	m.RuleProcessed("invite", 0)
	m.Sweep("all", 150*time.Millisecond, nil)
	m.Sweep("all", time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("invite", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("cancel", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.channelSends.WithLabelValues("mail", "sent")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ruleProcessed.WithLabelValues("invite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepFailures.WithLabelValues("all")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.sweepDuration))
}

func TestRouter(t *testing.T) {
	m := New()
	m.Dispatch(entity.NotificationTypeAttendanceReminder1Day, "dry_run")
	r := Router(m)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(),
		`notifier_dispatches_total{result="dry_run",type="attendance-reminder-1-day"} 1`))
}
