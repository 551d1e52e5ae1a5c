package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"hazacheck/internal/config"
)

// EmailSender mails events to the staff mailbox
type EmailSender struct {
	cfg       config.EmailConfig
	formatter Formatter
}

// NewEmailSender creates a sender; it is disabled unless EMAIL_ENABLED and
// ADMIN_EMAIL are both set.
func NewEmailSender(cfg config.EmailConfig, formatter Formatter) *EmailSender {
	return &EmailSender{cfg: cfg, formatter: formatter}
}

func (s *EmailSender) Name() string { return "email" }

func (s *EmailSender) Enabled() bool {
	return s.cfg.Enabled && s.cfg.AdminEmail != "" && s.cfg.SMTPHost != ""
}

// Send delivers e as a text message with an HTML alternative
func (s *EmailSender) Send(ctx context.Context, e Event) error {
	if !s.Enabled() {
		return nil
	}
	msg, err := s.message(e)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("email client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *EmailSender) message(e Event) (*mail.Msg, error) {
	text := s.formatter.Text(e)
	if text == "" {
		return nil, fmt.Errorf("email: unsupported event kind %q", e.Kind)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("email from: %w", err)
	}
	if err := msg.To(s.cfg.AdminEmail); err != nil {
		return nil, fmt.Errorf("email to: %w", err)
	}
	msg.Subject(s.formatter.Subject(e))
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, "<html><body><pre style=\"font-family: sans-serif; white-space: pre-wrap;\">"+
		s.formatter.HTML(e)+"</pre></body></html>")
	return msg, nil
}
