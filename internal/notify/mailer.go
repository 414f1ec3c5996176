package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

// Mailer delivers notifications over plain SMTP.
type Mailer struct {
	addr   string
	from   string
	to     []string
	logger *zap.Logger
}

// NewMailer configures delivery to the given recipients through the
// SMTP server at addr ("host:port").
func NewMailer(addr, from string, to []string, logger *zap.Logger) *Mailer {
	return &Mailer{addr: addr, from: from, to: to, logger: logger}
}

// Send sends one mail with the given subject and body.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + strings.Join(m.to, ", "),
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, nil, m.from, m.to, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.logger.Debug("mail sent", zap.String("subject", subject))
	return nil
}
