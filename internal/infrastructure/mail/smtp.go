package mail

import (
	"context"
	"document-review/internal/config"
	"document-review/internal/domain/services"
	"fmt"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPNotifier delivers approval requests through an SMTP relay. A new
// connection is dialed per message so concurrent sends do not share a client.
type SMTPNotifier struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func NewSMTPNotifier(cfg config.MailConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

func (n *SMTPNotifier) Notify(ctx context.Context, note services.Notification) error {
	msg, err := buildMessage(n.cfg.From, note)
	if err != nil {
		return err
	}

	client, err := gomail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	n.logger.Debug("approval email sent",
		zap.String("document_id", note.DocumentID),
		zap.String("slot", note.Reviewer.Slot))

	return nil
}

func (n *SMTPNotifier) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(n.cfg.Port),
		gomail.WithTimeout(n.cfg.SendTimeout),
	}
	if n.cfg.SSL {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.cfg.Username),
			gomail.WithPassword(n.cfg.Password),
		)
	}
	return opts
}

func buildMessage(from string, note services.Notification) (*gomail.Msg, error) {
	html, err := renderHTML(note)
	if err != nil {
		return nil, fmt.Errorf("failed to render approval email: %w", err)
	}

	msg := gomail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(note.Reviewer.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(note.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)
	msg.AddAlternativeString(gomail.TypeTextPlain, renderText(note))

	return msg, nil
}

// LogNotifier only logs approval links. It is used when no SMTP relay is
// configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, note services.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("approval email (not sent, mail disabled)",
		zap.String("document_id", note.DocumentID),
		zap.String("to", note.Reviewer.Email),
		zap.String("subject", note.Subject),
		zap.String("link", note.Link))
	return nil
}

var (
	_ services.Notifier = (*SMTPNotifier)(nil)
	_ services.Notifier = (*LogNotifier)(nil)
)
