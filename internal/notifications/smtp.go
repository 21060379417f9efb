package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 10 * time.Second
)

var (
	ErrMissingSMTPHost  = errors.New("notifications: smtp host is required")
	ErrMissingSender    = errors.New("notifications: sender address is required")
	ErrMissingRecipient = errors.New("notifications: recipient is required")
	errSenderNotReady   = errors.New("notifications: smtp sender not initialized")
)

// EmailSender sends a plain-text email message to a recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, recipient string, subject string, message string) error
}

// SMTPConfig captures connection settings for the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type messageDelivery func(ctx context.Context, message *mail.Msg) error

// SMTPSender delivers email through an SMTP relay, one connection per message.
type SMTPSender struct {
	logger  *zap.Logger
	from    string
	deliver messageDelivery
}

// NewSMTPSender validates the configuration and prepares a sender.
func NewSMTPSender(logger *zap.Logger, cfg SMTPConfig) (*SMTPSender, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Host == "" {
		return nil, ErrMissingSMTPHost
	}
	if cfg.From == "" {
		return nil, ErrMissingSender
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultSMTPPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	options := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if strings.TrimSpace(cfg.Username) != "" {
		options = append(options,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, clientErr := mail.NewClient(cfg.Host, options...)
	if clientErr != nil {
		return nil, fmt.Errorf("configure smtp client: %w", clientErr)
	}

	return &SMTPSender{
		logger: logger,
		from:   cfg.From,
		deliver: func(ctx context.Context, message *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, message)
		},
	}, nil
}

// SendEmail composes a plain-text message and hands it to the relay.
func (sender *SMTPSender) SendEmail(ctx context.Context, recipient string, subject string, message string) error {
	if sender == nil || sender.deliver == nil {
		return errSenderNotReady
	}
	composed, composeErr := sender.compose(recipient, subject, message)
	if composeErr != nil {
		return composeErr
	}
	if sendErr := sender.deliver(ctx, composed); sendErr != nil {
		sender.logger.Debug("smtp_send_failed", zap.Error(sendErr), zap.String("recipient", recipient))
		return fmt.Errorf("send email: %w", sendErr)
	}
	return nil
}

func (sender *SMTPSender) compose(recipient string, subject string, message string) (*mail.Msg, error) {
	normalizedRecipient := strings.TrimSpace(recipient)
	if normalizedRecipient == "" {
		return nil, ErrMissingRecipient
	}

	composed := mail.NewMsg()
	if fromErr := composed.From(sender.from); fromErr != nil {
		return nil, fmt.Errorf("set sender: %w", fromErr)
	}
	if toErr := composed.To(normalizedRecipient); toErr != nil {
		return nil, fmt.Errorf("set recipient: %w", toErr)
	}
	composed.Subject(strings.TrimSpace(subject))
	composed.SetDate()
	composed.SetMessageID()
	composed.SetBodyString(mail.TypeTextPlain, message)
	return composed, nil
}
