package mail

import (
	"bytes"
	"html/template"
	"log/slog"
	"time"
)

var recoveryTemplate = template.Must(template.New("recovery").Parse(`<!doctype html>
<html>
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8" />
    <title>Reset your ToteTrack password</title>
  </head>
  <body style="background-color:#f7fafc;margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;color:#1a202c;">
    <div style="max-width:600px;margin:0 auto;padding:24px;">
      <div style="background:#ffffff;border-radius:8px;padding:24px;">
        <h1 style="margin-top:0;">Hi {{.Name}},</h1>
        <p style="margin:0 0 16px;">We received a request to reset your ToteTrack password. Click the button below to set a new password.</p>
        <p style="margin:16px 0;">
          <a href="{{.Link}}" style="display:inline-block;background:#3182ce;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none;font-weight:600;">Reset my password</a>
        </p>
        <p style="color:#6b7280;">This link expires in {{.Minutes}} minutes.</p>
        <p style="color:#6b7280;">If the button doesn't work, copy and paste this link into your browser:<br/>
          <a href="{{.Link}}" style="color:#2563eb;word-break:break-all;">{{.Link}}</a></p>
        <p style="margin:16px 0 0;color:#6b7280;">If you didn't request a password reset, you can ignore this email.</p>
      </div>
    </div>
  </body>
</html>
`))

// RecoverySubject is the subject line of password recovery emails.
const RecoverySubject = "Reset your ToteTrack password"

// RenderRecovery renders the password recovery email body.
func RenderRecovery(fullName, link string, validFor time.Duration) (string, error) {
	name := fullName
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	err := recoveryTemplate.Execute(&buf, struct {
		Name    string
		Link    string
		Minutes int
	}{name, link, int(validFor.Minutes())})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendPasswordRecovery emails a password reset link.
func (s *Sender) SendPasswordRecovery(to, fullName, link string, validFor time.Duration) bool {
	html, err := RenderRecovery(fullName, link, validFor)
	if err != nil {
		slog.Error("failed to render recovery email", "error", err)
		return false
	}
	return s.Send(RecoverySubject, to, html, "")
}
