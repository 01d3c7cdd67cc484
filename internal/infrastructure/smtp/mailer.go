package smtp

import (
	"context"
	"fmt"
	netmail "net/mail"

	"github.com/go-chat-otp/internal/config"
	mail "github.com/wneessen/go-mail"
)

// Mailer sends HTML emails.
type Mailer interface {
	SendEmail(ctx context.Context, to netmail.Address, subject, body string) error
}

type mailer struct {
	host       string
	port       int
	from       netmail.Address
	username   string
	password   string
	requireTLS bool
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:       cfg.SMTPHost,
		port:       cfg.SMTPPort,
		from:       netmail.Address{Name: cfg.SMTPFromName, Address: cfg.SMTPFrom},
		username:   cfg.SMTPUsername,
		password:   cfg.SMTPPassword,
		requireTLS: cfg.SMTPRequireTLS,
	}
}

// SendEmail delivers one message. The dial and the whole SMTP exchange are
// bounded by ctx.
func (m *mailer) SendEmail(ctx context.Context, to netmail.Address, subject, body string) error {
	msg, err := newMessage(m.from, to, subject, body)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client init: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s:%d: %w", m.host, m.port, err)
	}
	return nil
}

func (m *mailer) clientOptions() []mail.Option {
	policy := mail.TLSOpportunistic
	if m.requireTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithTLSPolicy(policy),
	}
	if m.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.username),
			mail.WithPassword(m.password),
		)
	}
	return opts
}

// newMessage builds an HTML message. Date, Message-ID and the transfer
// encoding are added by go-mail when the message is written.
func newMessage(from, to netmail.Address, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(from.Name, from.Address); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.AddToFormat(to.Name, to.Address); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}
