// Package mailer sends the application's transactional emails.
//
// Two transports are available: SMTP through gomail and Amazon SES v2. Both
// render the same embedded HTML templates.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is a single HTML email. The sender address belongs to the transport.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LinkData feeds the link-carrying templates.
type LinkData struct {
	Name string
	Link string
}

// VerificationEmail builds the "verify your email" message.
func VerificationEmail(to, name, link string) (Message, error) {
	return render(to, "Verify your email for Record", "verify_email.html", LinkData{Name: name, Link: link})
}

// PasswordResetEmail builds the "reset your password" message.
func PasswordResetEmail(to, name, link string) (Message, error) {
	return render(to, "Reset your Record password", "reset_password.html", LinkData{Name: name, Link: link})
}

func render(to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Message{}, fmt.Errorf("mailer: rendering %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}
