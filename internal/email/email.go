// Package email renders and delivers the library's outbound mail:
// pickup notices, due-date reminders and shared research papers.
// Delivery is best-effort; the in-app notification row is the
// authoritative record and a failed send never fails the operation
// that triggered it.
package email

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"

	"github.com/iliyamo/university-library/internal/queue"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.  Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers through a plain-auth SMTP relay.
type SMTPSender struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
}

// Send implements Sender over net/smtp.
func (s *SMTPSender) Send(msg Message) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)

	host := s.Addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	if err := smtp.SendMail(s.Addr, auth, s.From, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

// LogSender writes messages to the process log instead of a relay.
// Used in development when no SMTP host is configured.
type LogSender struct{}

// Send implements Sender by logging the message.
func (LogSender) Send(msg Message) error {
	log.Printf("email (log only) to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Body)
	return nil
}

// Render turns a notification event into the matching message.  An
// unknown kind returns an error so the consumer can drop the
// delivery instead of sending an empty mail.
func Render(ev queue.NotificationEvent) (Message, error) {
	switch ev.Kind {
	case queue.KindBookAvailable:
		return renderBookAvailable(ev), nil
	case queue.KindDueReminder:
		return renderDueReminder(ev), nil
	case queue.KindPaperShared:
		return renderPaperShared(ev), nil
	default:
		return Message{}, fmt.Errorf("unknown notification kind %q", ev.Kind)
	}
}

func renderBookAvailable(ev queue.NotificationEvent) Message {
	expiry := formatDate(ev.ExpiryDate)
	body := fmt.Sprintf(`Dear %s,

Good news! The book you reserved is now available for pickup:

  %s
  by %s
  Location: %s

Please pick it up by %s. After that the reservation expires and the
copy is offered to the next person in the queue.

University Library`,
		ev.UserName, ev.BookTitle, ev.BookAuthor, ev.BookLocation, expiry)
	return Message{
		To:      ev.Email,
		Subject: fmt.Sprintf("Your reserved book %q is available", ev.BookTitle),
		Body:    body,
	}
}

func renderDueReminder(ev queue.NotificationEvent) Message {
	due := formatDate(ev.DueDate)
	body := fmt.Sprintf(`Dear %s,

This is a friendly reminder that the following book is due soon:

  %s
  by %s
  Due date: %s

Please return it on time to avoid late fees. If you need the book
longer, visit the library desk about a renewal.

University Library`,
		ev.UserName, ev.BookTitle, ev.BookAuthor, due)
	return Message{
		To:      ev.Email,
		Subject: fmt.Sprintf("Reminder: %q is due on %s", ev.BookTitle, due),
		Body:    body,
	}
}

func renderPaperShared(ev queue.NotificationEvent) Message {
	body := fmt.Sprintf(`Dear %s,

A research paper has been shared with you:

  %s
  by %s

Download: %s

University Library`,
		ev.UserName, ev.PaperTitle, ev.PaperAuthor, ev.DownloadLink)
	return Message{
		To:      ev.Email,
		Subject: fmt.Sprintf("Research paper shared with you: %s", ev.PaperTitle),
		Body:    body,
	}
}

// formatDate renders an RFC 3339 timestamp as a human date, passing
// through values that do not parse.
func formatDate(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.Format("January 2, 2006")
}
