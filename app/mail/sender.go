// Package mail delivers outbound account emails over SMTP.
package mail

import (
	"gopkg.in/gomail.v2"

	"github.com/pricewatch-io/pricewatch/config"
)

// Sender is the delivery boundary: subject, body, recipients. Delivery
// failure never rolls back state already committed by the caller.
type Sender interface {
	Send(subject, body string, to []string) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
}

func (s *SMTPSender) Send(subject, body string, to []string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	return dialer.DialAndSend(msg)
}
