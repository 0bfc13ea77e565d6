package identity

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Transport moves a fully rendered message to the outside world.
type Transport interface {
	Send(ctx context.Context, from string, to []string, subject, htmlBody, textBody string) error
}

// Mailer renders a job's template and hands the message to the transport.
// It is the production Dispatcher.
type Mailer struct {
	engine      *django.Engine
	transport   Transport
	defaultFrom string
	logger      Logger
}

type MailerOption func(*Mailer)

func WithMailerLogger(logger Logger) MailerOption {
	return func(m *Mailer) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMailer loads templates from dir. Template names are file names without
// the extension.
func NewMailer(dir string, transport Transport, defaultFrom string, opts ...MailerOption) (*Mailer, error) {
	engine := django.New(dir, ".html")
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not load mail templates")
	}

	m := &Mailer{
		engine:      engine,
		transport:   transport,
		defaultFrom: defaultFrom,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

func (m *Mailer) Dispatch(ctx context.Context, job EmailJob) error {
	if len(job.To) == 0 {
		return goerrors.New("mail job has no recipients", goerrors.CategoryBadInput)
	}

	htmlBody := job.HTML
	if job.Template != "" {
		var buf bytes.Buffer
		if err := m.engine.Render(&buf, job.Template, job.TemplateData); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal,
				fmt.Sprintf("could not render template %q", job.Template))
		}
		htmlBody = buf.String()
	}

	from := job.From
	if from == "" {
		from = m.defaultFrom
	}

	if err := m.transport.Send(ctx, from, job.To, job.Subject, htmlBody, job.Text); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "mail transport send failed")
	}

	m.logger.Debug("mail dispatched", "to", job.To, "subject", job.Subject)

	return nil
}

var _ Dispatcher = (*Mailer)(nil)

// SMTPTransport delivers mail over SMTP.
type SMTPTransport struct {
	dialer *gomail.Dialer
}

func NewSMTPTransport(host string, port int, username, password string) *SMTPTransport {
	return &SMTPTransport{
		dialer: gomail.NewDialer(host, port, username, password),
	}
}

// Send delivers synchronously. gomail has no context support, so a hung
// server stalls the calling worker slot until the TCP stack gives up.
func (t *SMTPTransport) Send(ctx context.Context, from string, to []string, subject, htmlBody, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)

	if textBody != "" {
		msg.SetBody("text/plain", textBody)
		if htmlBody != "" {
			msg.AddAlternative("text/html", htmlBody)
		}
	} else {
		msg.SetBody("text/html", htmlBody)
	}

	return t.dialer.DialAndSend(msg)
}

var _ Transport = (*SMTPTransport)(nil)
