package notifier

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	alertTemplate     = "alert.html"
	sellAlertTemplate = "sell_alert.html"
)

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends price alert emails over SMTP
type EmailNotifier struct {
	sender    Sender
	from      string
	fromName  string
	templates *template.Template
	logger    *zap.Logger
}

type emailData struct {
	Symbol  string
	Current string
	Target  string
}

// New creates an EmailNotifier backed by an SMTP client
func New(cfg config.EmailConfig, logger *zap.Logger) (*EmailNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return NewWithSender(client, from, cfg.FromName, logger)
}

// NewWithSender creates an EmailNotifier that hands messages to sender
func NewWithSender(sender Sender, from, fromName string, logger *zap.Logger) (*EmailNotifier, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &EmailNotifier{
		sender:    sender,
		from:      from,
		fromName:  fromName,
		templates: tmpl,
		logger:    logger,
	}, nil
}

// SendAlertEmail tells a user that a watchlist ticker reached its alert price
func (n *EmailNotifier) SendAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error {
	return n.send(ctx, to, symbol+" Alert Triggered", alertTemplate, symbol, current, target)
}

// SendSellAlertEmail tells a user that a held ticker reached its target sell price
func (n *EmailNotifier) SendSellAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error {
	return n.send(ctx, to, symbol+" Sell Now!", sellAlertTemplate, symbol, current, target)
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, tmpl, symbol string, current, target decimal.Decimal) error {
	body, err := n.render(tmpl, emailData{
		Symbol:  symbol,
		Current: current.StringFixed(2),
		Target:  target.StringFixed(2),
	})
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(n.fromName, n.from); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", n.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %q to %s: %w", subject, to, err)
	}

	n.logger.Info("Alert email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (n *EmailNotifier) render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := n.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
