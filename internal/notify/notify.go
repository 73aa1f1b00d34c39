package notify

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/config"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers a message to a single recipient. Callers treat
// delivery as best-effort and never fail a request because of it.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Send(_ context.Context, msg Message) error {
	n.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("text", msg.Text).
		Msg("notification")
	return nil
}

type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
	log    zerolog.Logger
}

func NewSMTPNotifier(cfg config.SMTPConfig, log zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		log:    log.With().Str("component", "notify").Logger(),
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("send %q: empty recipient", msg.Subject)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	// gomail has no deadline of its own; an abandoned send finishes in the background
	done := make(chan error, 1)
	go func() { done <- n.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("send %q: %w", msg.Subject, ctx.Err())
	}
	n.log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// New picks SMTP delivery when it is configured and falls back to logging.
func New(cfg config.SMTPConfig, log zerolog.Logger) Notifier {
	if cfg.Enabled() {
		return NewSMTPNotifier(cfg, log)
	}
	return NewLogNotifier(log)
}
