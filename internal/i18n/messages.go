package i18n

import "strings"

// Template IDs understood by the notification gateway.
const (
	TemplateWorkerInvitation = "worker_invitation"
	TemplateTwoFactorCode    = "two_factor_code"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailTemplate struct {
	Subject string
	Text    string
	HTML    string
}

var emailTemplates = map[string]map[string]emailTemplate{
	"en": {
		TemplateWorkerInvitation: {
			Subject: "You have been invited to CareOps",
			Text: "Hi {name},\n\nYou have been invited to join CareOps.\n" +
				"Complete your registration here: {link}\n" +
				"Your temporary password is {temp_password}.\n" +
				"The invitation expires in {days} days.\n\n" +
				"If you did not expect this invitation, you can ignore this email.",
			HTML: "<p>Hi {name},</p>" +
				"<p>You have been invited to join CareOps.</p>" +
				"<p><a href=\"{link}\">Complete your registration</a></p>" +
				"<p>Your temporary password is <strong>{temp_password}</strong>.</p>" +
				"<p>The invitation expires in {days} days.</p>" +
				"<p>If you did not expect this invitation, you can ignore this email.</p>",
		},
		TemplateTwoFactorCode: {
			Subject: "Your verification code",
			Text:    "Your verification code is {code}. It is valid for {minutes} minutes.",
			HTML: "<p>Your verification code is <strong>{code}</strong>.</p>" +
				"<p>It expires in {minutes} minutes. If you did not request it, ignore this email.</p>",
		},
	},
	"es": {
		TemplateWorkerInvitation: {
			Subject: "Te han invitado a CareOps",
			Text: "Hola {name}:\n\nTe han invitado a unirte a CareOps.\n" +
				"Completa tu registro aquí: {link}\n" +
				"Tu contraseña temporal es {temp_password}.\n" +
				"La invitación caduca en {days} días.\n\n" +
				"Si no esperabas esta invitación, puedes ignorar este correo.",
			HTML: "<p>Hola {name}:</p>" +
				"<p>Te han invitado a unirte a CareOps.</p>" +
				"<p><a href=\"{link}\">Completa tu registro</a></p>" +
				"<p>Tu contraseña temporal es <strong>{temp_password}</strong>.</p>" +
				"<p>La invitación caduca en {days} días.</p>" +
				"<p>Si no esperabas esta invitación, puedes ignorar este correo.</p>",
		},
		TemplateTwoFactorCode: {
			Subject: "Tu código de verificación",
			Text:    "Tu código de verificación es {code}. Es válido durante {minutes} minutos.",
			HTML: "<p>Tu código de verificación es <strong>{code}</strong>.</p>" +
				"<p>Caduca en {minutes} minutos. Si no lo solicitaste, ignora este correo.</p>",
		},
	},
}

var smsTemplates = map[string]map[string]string{
	"en": {
		TemplateWorkerInvitation: "CareOps: you have been invited. Register at {link} with temporary password {temp_password}. Expires in {days} days.",
		TemplateTwoFactorCode:    "CareOps code: {code}. Valid for {minutes} minutes.",
	},
	"es": {
		TemplateWorkerInvitation: "CareOps: te han invitado. Regístrate en {link} con la contraseña temporal {temp_password}. Caduca en {days} días.",
		TemplateTwoFactorCode:    "Código CareOps: {code}. Válido durante {minutes} minutos.",
	},
}

// Email renders an email template. Unknown locales fall back to English;
// an unknown template ID reports ok=false so the gateway can fail closed.
func Email(locale, templateID string, vars map[string]string) (EmailContent, bool) {
	byID, ok := emailTemplates[locale]
	if !ok {
		byID = emailTemplates[DefaultLocale]
	}
	tpl, ok := byID[templateID]
	if !ok {
		return EmailContent{}, false
	}
	return EmailContent{
		Subject: substitute(tpl.Subject, vars),
		Text:    substitute(tpl.Text, vars),
		HTML:    substitute(tpl.HTML, vars),
	}, true
}

// Text renders the SMS body for a template ID.
func Text(locale, templateID string, vars map[string]string) (string, bool) {
	byID, ok := smsTemplates[locale]
	if !ok {
		byID = smsTemplates[DefaultLocale]
	}
	body, ok := byID[templateID]
	if !ok {
		return "", false
	}
	return substitute(body, vars), true
}

func substitute(s string, vars map[string]string) string {
	for key, val := range vars {
		s = strings.ReplaceAll(s, "{"+key+"}", val)
	}
	return s
}
