package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// dialSender is the part of *gomail.Dialer SMTPMailer uses.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	from   string
	dialer dialSender
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// Send opens a connection per message. gomail has no context support, so
// ctx is only checked before dialing.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("mailer: smtp send to %s: %w", msg.To, err)
	}
	return nil
}
