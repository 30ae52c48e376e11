package mailer

import (
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Mrsuave-tt/ProjectPlatecv3/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridMailer delivers credentials emails through the SendGrid API.
type SendgridMailer struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

var _ CredentialsMailer = (*SendgridMailer)(nil)

// NewSendgridMailer constructs a SendGrid-backed mailer from configuration.
func NewSendgridMailer(cfg config.EmailConfig) *SendgridMailer {
	return &SendgridMailer{
		key:        cfg.SendgridAPIKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: cfg.SubjectPrefix,
	}
}

// SendCredentials sends the account-created notification synchronously so the
// caller can surface a delivery failure as an advisory.
func (m *SendgridMailer) SendCredentials(msg CredentialsMessage) error {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + "Your Student Account Credentials"
	p.AddTos(sgmail.NewEmail(msg.DisplayName, msg.ToEmail))

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(
		sgmail.NewContent("text/plain", textBody(msg)),
		sgmail.NewContent("text/html", htmlBody(msg)),
	)

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(mail)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("send credentials email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("send credentials email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func textBody(msg CredentialsMessage) string {
	return fmt.Sprintf(`Hello %s,

An account has been created for you by the administrator.

Student ID: %s
Temporary password: %s

Log in at %s and change your password after your first sign-in.

Attendance Management System
This is an automated message. Please do not reply.`,
		msg.DisplayName, msg.StudentNo, msg.InitialPassword, msg.LoginURL)
}

func htmlBody(msg CredentialsMessage) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2>Student Account Created</h2>
<p>Hello <b>%s</b>,</p>
<p>An account has been created for you by the administrator. Below are your login details:</p>
<table>
<tr><td><b>Student ID</b></td><td>%s</td></tr>
<tr><td><b>Temporary Password</b></td><td>%s</td></tr>
</table>
<p><a href="%s">Login to your account</a></p>
<p>For security reasons, please change your password after logging in.</p>
<hr>
<p style="font-size: 12px; color: #777;">Attendance Management System<br>
This is an automated message. Please do not reply.</p>
</body></html>`,
		msg.DisplayName, msg.StudentNo, msg.InitialPassword, msg.LoginURL)
}
