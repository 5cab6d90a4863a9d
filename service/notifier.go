package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/kevinaaaquil/bookstore/models"
)

// Notice is one message to the holder of a rental.
type Notice struct {
	Kind      models.NoticeKind
	To        string
	Username  string
	BookTitle string
	DueDate   time.Time
}

// Notifier delivers rental notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Render builds the subject and plain-text body of a notice.
func (n Notice) Render() (subject, body string) {
	due := n.DueDate.Format("Monday, 2 January 2006")
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", n.Username)
	switch n.Kind {
	case models.NoticeRentalOverdue:
		subject = fmt.Sprintf("Overdue: %s", n.BookTitle)
		fmt.Fprintf(&b, "Your rental of %q was due on %s and is now overdue.\n", n.BookTitle, due)
		b.WriteString("Please return it as soon as possible.\n")
	default:
		subject = fmt.Sprintf("Reminder: %s is due soon", n.BookTitle)
		fmt.Fprintf(&b, "Your rental of %q is due on %s.\n", n.BookTitle, due)
		b.WriteString("Return it from your profile page before then to avoid it becoming overdue.\n")
	}
	b.WriteString("\nThe Bookstore\n")
	return subject, b.String()
}

// MailNotifier sends notices over SMTP.
type MailNotifier struct {
	dialer *mail.Dialer
	from   string
}

func NewMailNotifier(host string, port int, username, password, from string) *MailNotifier {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	d.Timeout = 15 * time.Second
	return &MailNotifier{dialer: d, from: from}
}

func (m *MailNotifier) Notify(ctx context.Context, n Notice) error {
	if n.To == "" {
		return fmt.Errorf("notice has no recipient")
	}
	subject, body := n.Render()
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", n.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.dialer.DialAndSend(msg)
}

// LogNotifier writes notices to the log instead of sending them. Used when SMTP is not configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	subject, _ := n.Render()
	logger.InfoContext(ctx, "rental notice", "kind", n.Kind, "to", n.To, "subject", subject, "due", n.DueDate)
	return nil
}
