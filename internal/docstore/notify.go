package docstore

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/logging"
)

// Mailer sends a notification about a stored submission.
type Mailer interface {
	Send(doc contact.Document) error
}

// Notifying wraps a Sink and mails the owner after every successful
// write. Mail failures are logged and never fail the write.
type Notifying struct {
	sink   contact.Sink
	mailer Mailer
	logger *logging.Logger
}

func NewNotifying(sink contact.Sink, mailer Mailer, logger *logging.Logger) *Notifying {
	return &Notifying{sink: sink, mailer: mailer, logger: logger}
}

func (n *Notifying) Create(ctx context.Context, collection string, doc contact.Document) error {
	if err := n.sink.Create(ctx, collection, doc); err != nil {
		return err
	}
	if err := n.mailer.Send(doc); err != nil {
		n.logger.Warn("Error sending contact notification: %v", err)
	}
	return nil
}

// SMTPMailer sends plain-text notification mail with PLAIN auth.
type SMTPMailer struct {
	Host string // e.g., "smtp.gmail.com"
	Port string // e.g., "587"
	User string
	Pass string
	To   string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(host, port, user, pass, to string) *SMTPMailer {
	if to == "" {
		to = user
	}
	return &SMTPMailer{Host: host, Port: port, User: user, Pass: pass, To: to, sendMail: smtp.SendMail}
}

func (m *SMTPMailer) Send(doc contact.Document) error {
	if m.User == "" || m.Pass == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}

	auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
	if err := m.sendMail(m.Host+":"+m.Port, auth, m.User, []string{m.To}, m.compose(doc)); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) compose(doc contact.Document) []byte {
	subject := fmt.Sprintf("Portfolio Contact: %s", doc.Name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, doc.Name, doc.Email, doc.Message)

	return []byte("To: " + m.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + m.User + "\r\n" +
		"Reply-To: " + doc.Email + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
