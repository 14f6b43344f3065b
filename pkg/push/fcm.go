package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FCM sends push notifications through the Firebase Cloud Messaging HTTP v1 API
type FCM struct {
	messages *fcm.ProjectsMessagesService
	parent   string
}

type Options struct {
	ProjectID       string
	CredentialsFile string
	// Endpoint and HTTPClient replace the Google defaults, mostly for tests
	Endpoint   string
	HTTPClient *http.Client
}

func NewFCM(ctx context.Context, opts Options) (*FCM, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("fcm project id is required")
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		clientOpts = append(clientOpts, option.WithHTTPClient(opts.HTTPClient))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := fcm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create fcm service: %w", err)
	}

	return &FCM{
		messages: svc.Projects.Messages,
		parent:   "projects/" + opts.ProjectID,
	}, nil
}

type apnsPayload struct {
	Aps apsDictionary `json:"aps"`
}

type apsDictionary struct {
	Badge int    `json:"badge"`
	Sound string `json:"sound"`
}

// Send delivers one notification to a device token. The badge is applied on
// iOS and as the Android notification count, clamped at zero.
func (c *FCM) Send(ctx context.Context, notificationType int, title, body, token string, data map[string]string, badge int) error {
	if badge < 0 {
		badge = 0
	}

	payload, err := json.Marshal(apnsPayload{Aps: apsDictionary{Badge: badge, Sound: "default"}})
	if err != nil {
		return err
	}

	msg := &fcm.Message{
		Token: token,
		Notification: &fcm.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &fcm.AndroidConfig{
			Priority: "HIGH",
			Notification: &fcm.AndroidNotification{
				Sound:             "default",
				NotificationCount: int64(badge),
			},
		},
		Apns: &fcm.ApnsConfig{
			Payload: googleapi.RawMessage(payload),
		},
	}

	_, err = c.messages.Send(c.parent, &fcm.SendMessageRequest{Message: msg}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send push (type=%d): %w", notificationType, err)
	}
	return nil
}
