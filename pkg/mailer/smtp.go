package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends rendered mails through an SMTP relay
type SMTP struct {
	dialer dialer
	layout *Layout
	from   string
	domain string
	now    func() time.Time
}

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Domain of the generated Message-ID headers
	Domain string
}

func NewSMTP(opts SMTPOptions, layout *Layout) *SMTP {
	return newSMTP(gomail.NewDialer(opts.Host, opts.Port, opts.Username, opts.Password), layout, opts.From, opts.Domain)
}

func newSMTP(d dialer, layout *Layout, from, domain string) *SMTP {
	return &SMTP{
		dialer: d,
		layout: layout,
		from:   from,
		domain: domain,
		now:    time.Now,
	}
}

// Send renders the mail and delivers it. The dialer has no context support,
// so ctx is only checked before dialing.
func (c *SMTP) Send(ctx context.Context, to, subject, htmlBody, actionURL, actionLabel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rendered, err := c.layout.Render(to, subject, htmlBody, actionURL, actionLabel)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("Message-ID", generateMessageID(c.domain))
	msg.SetHeader("Date", c.now().Format(time.RFC1123Z))
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", rendered.To)
	msg.SetHeader("Subject", rendered.Subject)
	msg.SetBody("text/plain", rendered.Text)
	msg.AddAlternative("text/html", rendered.HTML)

	if err = c.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail via smtp: %w", err)
	}
	return nil
}

func generateMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}
