package service

import (
	"html"
	"strings"

	"github.com/meetingday/notifier/internal/domain/entity"
)

const (
	defaultSubject  = "Notificación"
	defaultReason   = "El usuario no colocó motivo alguno."
	proposalsPrompt = "Este evento tiene más de una propuesta, entra en Meetingday para votar por la que más te guste."
	autoCancelText  = "Se canceló el evento porque el creador no confirmó la realización en el tiempo establecido."
)

// Content is the formatted copy of a notification
type Content struct {
	PushTitle   string
	PushBody    string
	MailSubject string
	MailBody    string
}

// Keys of the payload object the mobile app decodes from the push data
const (
	payloadGuestName     = "nombreInvitado"
	payloadCreatorName   = "nombreCreador"
	payloadUserID        = "id_user"
	payloadReason        = "motivo"
	payloadInviteVariant = "tipo"
	payloadProposals     = "propuestas"
	payloadPlace         = "place"
	payloadAddress       = "location"
	payloadDate          = "fecha"
	payloadTime          = "hora"
)

// Invite variants reported under payloadInviteVariant
const (
	inviteWithMeetingPoint = 1
	inviteWithProposals    = 2
)

// FormatContext carries the data a notification copy may interpolate.
// All fields are raw user text; formatting escapes them for the mail body.
type FormatContext struct {
	GuestName   string
	CreatorName string
	Proposals   string

	// InviteVariant tells the app whether an invite carries a meeting point or proposals
	InviteVariant int

	Place     string
	Address   string
	StartDate string
	StartTime string
}

type formatFunc func(title, message string, c FormatContext) Content

type typeEntry struct {
	role     entity.RecipientRole
	channels entity.Channels
	format   formatFunc
}

var (
	pushAndMail = entity.Channels{Push: true, Mail: true}
	mailOnly    = entity.Channels{Mail: true}
)

var notificationTypes = map[entity.NotificationType]typeEntry{
	entity.NotificationTypeInvite:                   {entity.RoleGuest, pushAndMail, formatInvite},
	entity.NotificationTypeCancel:                   {entity.RoleGuest, pushAndMail, formatCancel},
	entity.NotificationTypeLocationConfirmation:     {entity.RoleGuest, mailOnly, formatLocationConfirmation},
	entity.NotificationTypeAttendanceReminder2Days:  {entity.RoleGuest, mailOnly, attendanceReminder("2 días", "faltan 2 días", "Te quedan")},
	entity.NotificationTypeAttendanceReminder1Day:   {entity.RoleGuest, mailOnly, attendanceReminder("1 día", "último día", "Te queda")},
	entity.NotificationTypeAttendanceReminder2Hours: {entity.RoleGuest, mailOnly, attendanceReminder("2 horas", "faltan 2 horas", "Te quedan")},
	entity.NotificationTypeAttendanceConfirmed:      {entity.RoleGuest, mailOnly, formatAttendanceConfirmed},
	entity.NotificationTypeEventStart1Hour:          {entity.RoleGuest, mailOnly, formatEventStart},
	entity.NotificationTypeCreatorReminder2Days:     {entity.RoleCreator, mailOnly, fixedMessage("Te quedan menos de 2 días para confirmar la realización de tu evento.")},
	entity.NotificationTypeCreatorReminder1Day:      {entity.RoleCreator, mailOnly, fixedMessage("Te queda un día para confirmar la realización de tu evento.")},
	entity.NotificationTypeCreatorReminder2Hours:    {entity.RoleCreator, mailOnly, fixedMessage("¡Tienes menos de 2 horas para confirmar la realización de tu evento!")},
	entity.NotificationTypeCancelByNoConfirmation:   {entity.RoleCreator, entity.Channels{}, fixedMessage("Tu evento ha sido cancelado automáticamente porque no lo confirmaste a tiempo.")},
}

// Format renders the copy of a notification type; unknown types get a generic message
func Format(t entity.NotificationType, title, message string, c FormatContext) Content {
	if entry, ok := notificationTypes[t]; ok {
		return entry.format(title, message, c)
	}
	return formatGeneric(title, message, c)
}

// RoleOf returns the recipient role of a notification type
func RoleOf(t entity.NotificationType) entity.RecipientRole {
	if entry, ok := notificationTypes[t]; ok {
		return entry.role
	}
	return entity.RoleGuest
}

func formatInvite(title, _ string, c FormatContext) Content {
	chunks := []string{
		"Hola " + esc(or(c.GuestName, "invitado")) + ",",
		esc(or(c.CreatorName, "El creador")) + " te ha invitado al evento <strong>" + esc(title) + "</strong>.",
	}
	if c.Proposals != "" {
		chunks = append(chunks, esc(c.Proposals))
	}
	if loc := locationHTML(c, false); loc != "" {
		chunks = append(chunks, loc)
	}
	chunks = append(chunks, "¡Te esperamos!")

	return Content{
		PushTitle:   "📨 Tienes una invitación",
		PushBody:    or(c.CreatorName, "Alguien") + " te ha invitado al evento '" + title + "'",
		MailSubject: "Invitación al evento: " + title,
		MailBody:    paragraphs(chunks...),
	}
}

func formatCancel(title, reason string, c FormatContext) Content {
	reason = safeReason(reason)
	return Content{
		PushTitle:   "❌ Evento Cancelado",
		PushBody:    or(c.CreatorName, "El creador") + " ha cancelado el evento '" + title + "'. Motivo: " + reason,
		MailSubject: "Cancelación del evento: " + title,
		MailBody: paragraphs(
			"Hola "+esc(or(c.GuestName, "invitado"))+",",
			"El evento <strong>"+esc(title)+"</strong> fue cancelado por "+esc(or(c.CreatorName, "el creador"))+".",
			"Motivo: "+esc(reason),
			"Gracias por tu comprensión.",
		),
	}
}

func formatLocationConfirmation(title, _ string, c FormatContext) Content {
	chunks := []string{
		"Hola " + esc(or(c.GuestName, "invitado")) + ",",
		"La ubicación del evento <strong>" + esc(title) + "</strong> ha sido confirmada.",
	}
	if loc := locationHTML(c, true); loc != "" {
		chunks = append(chunks, loc)
	}
	chunks = append(chunks, "¡Nos vemos!")

	return Content{
		PushTitle:   "✅ Evento confirmado",
		PushBody:    or(c.CreatorName, "El creador") + " ha confirmado el evento para '" + title + "'",
		MailSubject: "Ubicación confirmada: " + title,
		MailBody:    paragraphs(chunks...),
	}
}

func attendanceReminder(left, subjectHint, verb string) formatFunc {
	return func(title, _ string, c FormatContext) Content {
		creator := or(c.CreatorName, "el creador")
		return Content{
			PushTitle:   "⏰ Recordatorio de Confirmación",
			PushBody:    verb + " " + left + " para confirmar tu asistencia al evento '" + title + "' de " + creator,
			MailSubject: "Recordatorio: confirma tu asistencia (" + subjectHint + ")",
			MailBody: paragraphs(
				"Hola "+esc(or(c.GuestName, "invitado"))+",",
				verb+" <strong>"+left+"</strong> para confirmar tu asistencia al evento <strong>"+esc(title)+"</strong> de "+esc(creator)+".",
				"Ingresa a Meetingday para confirmar.",
			),
		}
	}
}

func formatAttendanceConfirmed(title, _ string, c FormatContext) Content {
	return Content{
		PushTitle:   "✅ Asistencia Confirmada",
		PushBody:    "Has confirmado tu asistencia al evento '" + title + "' de " + or(c.CreatorName, "el creador"),
		MailSubject: "Asistencia confirmada: " + title,
		MailBody: paragraphs(
			"Hola "+esc(or(c.GuestName, "invitado"))+",",
			"Has confirmado tu asistencia al evento <strong>"+esc(title)+"</strong>.",
			"¡Gracias por confirmar!",
		),
	}
}

func formatEventStart(title, _ string, c FormatContext) Content {
	chunks := []string{
		"Hola " + esc(or(c.GuestName, "invitado")) + ",",
		"El evento <strong>" + esc(title) + "</strong> inicia en <strong>1 hora</strong>.",
	}
	if loc := locationHTML(c, true); loc != "" {
		chunks = append(chunks, loc)
	}
	chunks = append(chunks, "¡Prepárate!")

	return Content{
		PushTitle:   "🕐 Evento Iniciando Pronto",
		PushBody:    "El evento '" + title + "' de " + or(c.CreatorName, "el creador") + " inicia en 1 hora",
		MailSubject: "Tu evento inicia en 1 hora: " + title,
		MailBody:    paragraphs(chunks...),
	}
}

// fixedMessage formats creator notifications, whose body is a constant sentence
func fixedMessage(message string) formatFunc {
	return func(title, _ string, c FormatContext) Content {
		return formatGeneric(title, message, c)
	}
}

func formatGeneric(title, message string, _ FormatContext) Content {
	return Content{
		PushTitle:   title,
		PushBody:    or(message, "Tienes una notificación"),
		MailSubject: title,
		MailBody:    "<p>" + nl2br(esc(or(message, "Tienes una notificación."))) + "</p>",
	}
}

func locationHTML(c FormatContext, labels bool) string {
	var parts []string
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if labels {
			parts = append(parts, "<strong>"+label+":</strong> "+esc(value))
			return
		}
		parts = append(parts, esc(value))
	}
	add("Lugar", c.Place)
	add("Link/Ubicación", c.Address)
	add("Fecha", c.StartDate)
	add("Hora", c.StartTime)
	return strings.Join(parts, "<br>")
}

func safeReason(reason string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return defaultReason
}

func paragraphs(chunks ...string) string {
	return "<p>" + strings.Join(chunks, "</p><p>") + "</p>"
}

func nl2br(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br />\n")
}

func esc(s string) string {
	return html.EscapeString(s)
}

func or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
