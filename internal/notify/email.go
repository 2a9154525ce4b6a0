// Copyright (c) 2026 Essenzia. All rights reserved.

package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer sends one-time codes over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer constructs a mailer from SMTP credentials.
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	dialer := gomail.NewDialer(host, port, user, password)
	if from == "" {
		from = user
	}
	return &SMTPMailer{
		dialer: dialer,
		from:   from,
	}
}

// SendCode emails a one-time code to the recipient.
//
// gomail dials per send; the caller bounds the whole delivery with its own
// timeout since the dialer does not take a context.
func (mailer *SMTPMailer) SendCode(to, code string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", mailer.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", "Your Essenzia verification code")

	body := fmt.Sprintf(`
		<p>Your verification code: <strong>%s</strong></p>
		<p>It expires in 10 minutes. If you did not request it, you can ignore this email.</p>
	`, code)

	message.SetBody("text/html", body)

	if err := mailer.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("notify: failed to send code email: %w", err)
	}

	return nil
}
