package mailer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/resend/resend-go/v2"
)

// Resend sends rendered mails through the Resend HTTP API
type Resend struct {
	client *resend.Client
	layout *Layout
	from   string
}

// NewResend builds the sender; a nil httpClient uses the library default
func NewResend(apiKey, from string, httpClient *http.Client, layout *Layout) *Resend {
	client := resend.NewClient(apiKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, apiKey)
	}
	return &Resend{
		client: client,
		layout: layout,
		from:   from,
	}
}

func (c *Resend) Send(ctx context.Context, to, subject, htmlBody, actionURL, actionLabel string) error {
	rendered, err := c.layout.Render(to, subject, htmlBody, actionURL, actionLabel)
	if err != nil {
		return err
	}

	_, err = c.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{rendered.To},
		Subject: rendered.Subject,
		Html:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send mail via resend: %w", err)
	}
	return nil
}
