package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/k3a/html2text"
)

const (
	DefaultSubject     = "Notificación"
	DefaultActionLabel = "Ver detalle"
	DefaultBrand       = "Meetingday"

	preheaderLimit = 120
)

const layoutHTML = `<!doctype html>
<html lang="es">
<head>
  <meta charset="utf-8">
  <title>{{.Subject}}</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    .preheader { display:none !important; visibility:hidden; opacity:0; color:transparent; height:0; width:0; overflow:hidden; mso-hide:all; }
    body { margin:0; padding:0; background:#f5f6f8; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; }
    .wrapper { width:100%; background:#f5f6f8; padding:24px 0; }
    .container { max-width:640px; margin:0 auto; background:#ffffff; border-radius:12px; overflow:hidden; }
    .header { padding:20px 28px; background:#0f172a; color:#fff; }
    .brand { font-size:16px; margin:0; opacity:.9; }
    .title { font-size:20px; margin:8px 0 0; font-weight:700; }
    .content { padding:24px 28px 12px; color:#111827; font-size:15px; line-height:1.6; }
    .content p { margin:0 0 14px; }
    .btn-wrap { padding:8px 28px 28px; text-align:center; }
    .btn { display:inline-block; padding:12px 18px; border-radius:10px; text-decoration:none; background:#2563eb; color:#fff !important; font-weight:600; }
    .meta { padding:0 28px 28px; color:#6b7280; font-size:12px; }
    .footer { text-align:center; color:#94a3b8; font-size:12px; padding:18px 10px; }
  </style>
</head>
<body>
  <span class="preheader">{{.Preheader}}</span>
  <div class="wrapper">
    <div class="container">
      <div class="header">
        <p class="brand">{{.Brand}}</p>
        <h1 class="title">{{.Subject}}</h1>
      </div>
      <div class="content">
        {{.Body}}
      </div>
      {{- if .ActionURL}}
      <div class="btn-wrap">
        <a href="{{.ActionURL}}" target="_blank" class="btn">{{.ActionLabel}}</a>
      </div>
      {{- end}}
      <div class="meta">
        <p>Este mensaje fue enviado automáticamente por el sistema de notificaciones de {{.Brand}}.</p>
      </div>
      <div class="footer">© {{.Year}} {{.Brand}} · Todos los derechos reservados</div>
    </div>
  </div>
</body>
</html>
`

// Message is a rendered mail, ready for any transport
type Message struct {
	To        string
	Subject   string
	HTML      string
	Text      string
	Preheader string
}

// Layout wraps notification bodies into the branded HTML mail
type Layout struct {
	tmpl  *template.Template
	brand string
	now   func() time.Time
}

func NewLayout(brand string) *Layout {
	if brand == "" {
		brand = DefaultBrand
	}
	return &Layout{
		tmpl:  template.Must(template.New("mail").Parse(layoutHTML)),
		brand: brand,
		now:   time.Now,
	}
}

type layoutData struct {
	Brand       string
	Subject     string
	Preheader   string
	Body        template.HTML
	ActionURL   string
	ActionLabel string
	Year        int
}

// Render builds the message. bodyHTML is trusted markup and is not escaped.
func (l *Layout) Render(to, subject, bodyHTML, actionURL, actionLabel string) (Message, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	actionURL = strings.TrimSpace(actionURL)
	if actionLabel == "" {
		actionLabel = DefaultActionLabel
	}

	text := strings.TrimSpace(html2text.HTML2TextWithOptions(bodyHTML, html2text.WithUnixLineBreaks()))
	data := layoutData{
		Brand:       l.brand,
		Subject:     subject,
		Preheader:   Preheader(text),
		Body:        template.HTML(bodyHTML),
		ActionURL:   actionURL,
		ActionLabel: actionLabel,
		Year:        l.now().Year(),
	}

	var buf bytes.Buffer
	if err := l.tmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("failed to render mail layout: %w", err)
	}

	if actionURL != "" {
		text = fmt.Sprintf("%s\n\n%s: %s", text, actionLabel, actionURL)
	}

	return Message{
		To:        to,
		Subject:   subject,
		HTML:      buf.String(),
		Text:      text,
		Preheader: data.Preheader,
	}, nil
}

// Preheader cuts plain text to the inbox preview size
func Preheader(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= preheaderLimit {
		return text
	}
	return string(runes[:preheaderLimit-3]) + "..."
}
