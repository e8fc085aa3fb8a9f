// Package email delivers operator alert mails over SMTP. Alerts are the
// escalation path for failures the system cannot recover on its own:
// provider authentication errors and stuck patient messages.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"sabcare_backend/platform/config"
)

// OperatorMailer sends alert emails to the configured operator address.
// A nil mailer is valid and drops alerts, for deployments without SMTP.
type OperatorMailer struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	toEmail   string
}

// NewOperatorMailer creates the mailer, or returns nil when email is not
// configured.
func NewOperatorMailer(cfg config.EmailConfig) *OperatorMailer {
	if !cfg.IsEmailEnabled() {
		return nil
	}

	return &OperatorMailer{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		toEmail:   cfg.GetOperatorEmail(),
	}
}

// SendOperatorAlert delivers one alert to the operator inbox.
func (m *OperatorMailer) SendOperatorAlert(ctx context.Context, subject, body string) error {
	if m == nil {
		return nil
	}

	content, err := renderEmailTemplate("operator_alert.html", operatorAlertData{
		Title:   subject,
		Heading: subject,
		Body:    body,
		SentAt:  time.Now().UTC().Format(time.RFC1123),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, m.toEmail, "[SabCare] "+subject, content)
}

func (m *OperatorMailer) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(m.host,
		gomail.WithPort(m.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.username),
		gomail.WithPassword(m.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
