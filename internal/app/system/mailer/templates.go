// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// ReminderEmailData holds data for the session reminder email.
type ReminderEmailData struct {
	SiteName     string
	UserName     string
	GroupName    string
	SessionTitle string
	StartsAt     string // already formatted, e.g. "3:04 PM"
	MeetingLink  string
	Message      string // the in-app notification text
}

var reminderHTML = template.Must(template.New("reminder").Parse(reminderHTMLTemplate))

// BuildReminderEmail creates a reminder email with text and HTML bodies.
// The caller sets To.
func BuildReminderEmail(data ReminderEmailData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Hi %s,\n\n%s\n", data.UserName, data.Message)
	if data.GroupName != "" {
		fmt.Fprintf(&text, "Group: %s\n", data.GroupName)
	}
	if data.MeetingLink != "" {
		fmt.Fprintf(&text, "Join: %s\n", data.MeetingLink)
	}
	fmt.Fprintf(&text, "\nYou are receiving this because you turned on reminders for this session in %s.\n", data.SiteName)

	var html bytes.Buffer
	_ = reminderHTML.Execute(&html, data)

	return Email{
		Subject:  fmt.Sprintf("Reminder: %s at %s", data.SessionTitle, data.StartsAt),
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}

const reminderHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Session reminder</title>
</head>
<body style="margin:0;padding:24px;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;background:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:480px;margin:0 auto;background:#ffffff;border-radius:8px;">
    <tr>
      <td style="padding:24px 32px;border-bottom:1px solid #e5e7eb;">
        <h1 style="margin:0;font-size:20px;color:#4f46e5;">{{.SiteName}}</h1>
      </td>
    </tr>
    <tr>
      <td style="padding:24px 32px;color:#374151;font-size:15px;line-height:22px;">
        <p style="margin:0 0 12px;">Hi {{.UserName}},</p>
        <p style="margin:0 0 12px;"><strong>{{.Message}}</strong></p>
        {{if .GroupName}}<p style="margin:0 0 12px;">Group: {{.GroupName}}</p>{{end}}
        {{if .MeetingLink}}<p style="margin:0;"><a href="{{.MeetingLink}}" style="color:#4f46e5;">Join the session</a></p>{{end}}
      </td>
    </tr>
  </table>
</body>
</html>`
