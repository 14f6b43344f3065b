package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/k3a/html2text"

	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/internal/domain/utils/textrepair"
	"github.com/meetingday/notifier/internal/domain/utils/validator"
	"github.com/meetingday/notifier/pkg/logger/types"
)

// Dispatch results reported to the Recorder
const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultDryRun  = "dry_run"
)

// MailSender delivers a single HTML mail
type MailSender interface {
	Send(ctx context.Context, to, subject, htmlBody, actionURL, actionLabel string) error
}

// PushSender delivers a single mobile push; data values must be strings
type PushSender interface {
	Send(ctx context.Context, notificationType int, title, body, token string, data map[string]string, badge int) error
}

type dispatcherNotificationStorage interface {
	Create(ctx context.Context, notification *entity.Notification) error
	CountUnread(ctx context.Context, userID int64) (int64, error)
}

// NotificationData is the free-form context attached to a push as a base64 JSON blob
type NotificationData map[string]interface{}

// DispatchPayload is the formatted content and the recipient addresses of a notification
type DispatchPayload struct {
	PushTitle   string
	PushBody    string
	MailSubject string
	MailBody    string

	Token string
	Email string

	Data        NotificationData
	ActionURL   string
	ActionLabel string
}

type DispatchOptions struct {
	// DryRun only logs what would be sent; nothing is delivered or recorded
	DryRun   bool
	Channels *entity.ChannelOverride
	// Role defaults to the role of the notification type
	Role entity.RecipientRole
	// SkipRecord is set when the caller already wrote the notification record
	SkipRecord bool
}

type Dispatcher struct {
	config              NotificationConfig
	mail                MailSender
	push                PushSender
	notificationStorage dispatcherNotificationStorage

	logger *types.Logger
	opts   options
}

func NewDispatcher(
	logger *types.Logger,
	config NotificationConfig,
	mail MailSender,
	push PushSender,
	notificationStorage dispatcherNotificationStorage,
	opts ...Option,
) *Dispatcher {
	return &Dispatcher{
		config:              config,
		mail:                mail,
		push:                push,
		notificationStorage: notificationStorage,
		logger:              logger,
		opts:                buildOptions(opts),
	}
}

// Dispatch sends a notification through the channels enabled for its type and
// records it as unread.
//
// Mail goes first, then the notification record is written so that the badge
// attached to the push counts it. It returns false when an enabled channel
// failed; channels skipped for lack of an address count as delivered.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	t entity.NotificationType,
	eventID, userID int64,
	payload DispatchPayload,
	opts DispatchOptions,
) bool {
	channels := opts.Channels.Merge(d.config.ChannelsFor(t))
	role := opts.Role
	if role == 0 {
		role = RoleOf(t)
	}
	content := repairContent(payload)

	d.logger.Debugf(
		"Dispatching notification (type=%s, event_id=%d, user_id=%d, push=%t, mail=%t, dry_run=%t)",
		t, eventID, userID, channels.Push, channels.Mail, opts.DryRun,
	)

	mailOK := true
	if channels.Mail {
		mailOK = d.sendMail(ctx, t, eventID, userID, payload, content, opts.DryRun)
	}

	if !opts.DryRun && !opts.SkipRecord {
		d.record(ctx, t, role, eventID, userID)
	}

	pushOK := true
	if channels.Push {
		pushOK = d.sendPush(ctx, t, eventID, userID, payload, content, opts.DryRun)
	}

	ok := mailOK && pushOK
	switch {
	case opts.DryRun:
		d.opts.recorder.Dispatch(t, ResultDryRun)
	case ok:
		d.opts.recorder.Dispatch(t, ResultSent)
	default:
		d.opts.recorder.Dispatch(t, ResultFailed)
	}
	return ok
}

func (d *Dispatcher) sendMail(
	ctx context.Context,
	t entity.NotificationType,
	eventID, userID int64,
	payload DispatchPayload,
	content Content,
	dryRun bool,
) bool {
	email := strings.TrimSpace(payload.Email)
	switch {
	case email == "":
		d.logger.Debugf("Mail skipped: empty email (type=%s, event_id=%d, user_id=%d)", t, eventID, userID)
		d.opts.recorder.ChannelSend("mail", ResultSkipped)
		return true
	case !validator.Email(email):
		d.logger.Warnf("Mail skipped: invalid email format (type=%s, event_id=%d, user_id=%d, email=%q)", t, eventID, userID, email)
		d.opts.recorder.ChannelSend("mail", ResultSkipped)
		return true
	case dryRun:
		d.logger.Infof("[DRY-RUN] mail (type=%s, event_id=%d, user_id=%d, email=%s, subject=%q)", t, eventID, userID, email, content.MailSubject)
		d.opts.recorder.ChannelSend("mail", ResultDryRun)
		return true
	}

	label := textrepair.Repair(payload.ActionLabel)
	if err := d.mail.Send(ctx, email, content.MailSubject, content.MailBody, payload.ActionURL, label); err != nil {
		d.logger.Errorf("failed to send mail (type=%s, event_id=%d, user_id=%d, email=%s): %v", t, eventID, userID, email, err)
		d.opts.recorder.ChannelSend("mail", ResultFailed)
		return false
	}

	d.logger.Infof("Mail sent (type=%s, event_id=%d, user_id=%d, email=%s)", t, eventID, userID, email)
	d.opts.recorder.ChannelSend("mail", ResultSent)
	return true
}

func (d *Dispatcher) record(ctx context.Context, t entity.NotificationType, role entity.RecipientRole, eventID, userID int64) {
	err := d.notificationStorage.Create(ctx, &entity.Notification{
		Type:      t,
		Role:      role,
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: d.opts.now(),
	})
	switch {
	case errors.Is(err, errorz.DuplicateNotification):
		d.logger.Debugf("Notification already recorded (type=%s, event_id=%d, user_id=%d)", t, eventID, userID)
	case err != nil:
		d.logger.Errorf("failed to create notification record (type=%s, event_id=%d, user_id=%d): %v", t, eventID, userID, err)
	}
}

func (d *Dispatcher) sendPush(
	ctx context.Context,
	t entity.NotificationType,
	eventID, userID int64,
	payload DispatchPayload,
	content Content,
	dryRun bool,
) bool {
	token := strings.TrimSpace(payload.Token)
	if token == "" {
		d.logger.Debugf("Push skipped: empty token (type=%s, event_id=%d, user_id=%d)", t, eventID, userID)
		d.opts.recorder.ChannelSend("push", ResultSkipped)
		return true
	}

	// counted after the record insert so the badge includes this notification
	badge, err := d.notificationStorage.CountUnread(ctx, userID)
	if err != nil {
		d.logger.Errorf("failed to count unread notifications (user_id=%d): %v", userID, err)
		badge = 0
	}
	data := PushData(t, eventID, userID, payload.Data, badge)

	if dryRun {
		d.logger.Infof("[DRY-RUN] push (type=%s, event_id=%d, user_id=%d, title=%q, badge=%d)", t, eventID, userID, content.PushTitle, badge)
		d.opts.recorder.ChannelSend("push", ResultDryRun)
		return true
	}

	if err := d.push.Send(ctx, int(t), content.PushTitle, content.PushBody, token, data, int(badge)); err != nil {
		d.logger.Errorf("failed to send push (type=%s, event_id=%d, user_id=%d, badge=%d): %v", t, eventID, userID, badge, err)
		d.opts.recorder.ChannelSend("push", ResultFailed)
		return false
	}

	d.logger.Infof("Push sent (type=%s, event_id=%d, user_id=%d, badge=%d)", t, eventID, userID, badge)
	d.opts.recorder.ChannelSend("push", ResultSent)
	return true
}

// repairContent fills missing fields from each other and repairs mis-encoded text
func repairContent(p DispatchPayload) Content {
	pushBody := p.PushBody
	if strings.TrimSpace(pushBody) == "" && p.MailBody != "" {
		pushBody = html2text.HTML2Text(p.MailBody)
	}
	mailBody := p.MailBody
	if strings.TrimSpace(mailBody) == "" && p.PushBody != "" {
		mailBody = "<p>" + nl2br(esc(p.PushBody)) + "</p>"
	}

	return Content{
		PushTitle:   textrepair.Repair(firstNonEmpty(p.PushTitle, p.MailSubject, defaultSubject)),
		PushBody:    textrepair.Repair(pushBody),
		MailSubject: textrepair.Repair(firstNonEmpty(p.MailSubject, p.PushTitle, defaultSubject)),
		MailBody:    textrepair.Repair(mailBody),
	}
}

// PushData builds the string-only data map attached to a push
func PushData(t entity.NotificationType, eventID, userID int64, data NotificationData, badge int64) map[string]string {
	return map[string]string{
		"type":    strconv.Itoa(int(t)),
		"eventId": strconv.FormatInt(eventID, 10),
		"userId":  strconv.FormatInt(userID, 10),
		"payload": encodePayload(data),
		"badge":   strconv.FormatInt(badge, 10),
	}
}

func encodePayload(data NotificationData) string {
	raw, err := marshal(sanitize(map[string]interface{}(data)))
	if err != nil {
		raw = []byte("{}")
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// sanitize rebuilds a payload value so that maps and slices keep their shape
// and every leaf becomes a repaired string.
func sanitize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return textrepair.Repair(val)
	case []byte:
		return textrepair.Repair(string(val))
	case fmt.Stringer:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return ""
		}
		return textrepair.Repair(val.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return ""
		}
		return sanitize(rv.Elem().Interface())
	case reflect.Map:
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[textrepair.Repair(fmt.Sprint(iter.Key().Interface()))] = sanitize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []interface{}{}
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = sanitize(rv.Index(i).Interface())
		}
		return out
	case reflect.Struct:
		// exported fields under their json names
		raw, err := json.Marshal(v)
		if err != nil {
			return textrepair.Repair(fmt.Sprint(v))
		}
		var generic interface{}
		if err = json.Unmarshal(raw, &generic); err != nil {
			return textrepair.Repair(fmt.Sprint(v))
		}
		return sanitize(generic)
	default:
		return textrepair.Repair(fmt.Sprint(v))
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
