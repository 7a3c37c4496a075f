// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail sends transactional email: newsletter confirmations and
// feedback forwarded to the operators.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Providers.
const (
	ProviderNoop = "noop"
	ProviderSES  = "ses"
)

// ErrNoRecipients is returned when an Email has no To addresses.
var ErrNoRecipients = errors.New("mail: no recipients")

// Email is one outgoing message. HTML is optional.
type Email struct {
	To      []string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// SESConfig holds AWS SES settings. Endpoint overrides the regional endpoint.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// Config selects and configures a Mailer.
type Config struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
}

// New creates a Mailer from cfg. Unknown providers fall back to noop.
func New(cfg Config, logger *slog.Logger) Mailer {
	switch cfg.Provider {
	case ProviderSES:
		awsCfg := aws.Config{
			Region: cfg.SES.Region,
		}
		if cfg.SES.AccessKeyID != "" {
			awsCfg.Credentials = aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
			)
		}
		client := ses.NewFromConfig(awsCfg, func(o *ses.Options) {
			if cfg.SES.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.SES.Endpoint)
			}
		})
		return &SESMailer{
			client: client,
			from:   formatAddress(cfg.FromName, cfg.FromAddress),
			logger: logger,
		}
	case ProviderNoop, "":
		return &NoopMailer{logger: logger}
	default:
		logger.Warn("unknown mail provider, using noop", "provider", cfg.Provider)
		return &NoopMailer{logger: logger}
	}
}

func formatAddress(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// SESMailer sends email through AWS SES.
type SESMailer struct {
	client *ses.Client
	from   string
	logger *slog.Logger
}

// Send delivers msg with a UTF-8 text body and an optional HTML body.
func (m *SESMailer) Send(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.Text),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	if msg.HTML != "" {
		input.Message.Body.Html = &types.Content{
			Data:    aws.String(msg.HTML),
			Charset: aws.String("UTF-8"),
		}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("sending email via SES: %w", err)
	}
	m.logger.Info("email sent", "provider", ProviderSES,
		"message_id", aws.ToString(out.MessageId), "subject", msg.Subject)
	return nil
}

// NoopMailer logs and discards every message.
type NoopMailer struct {
	logger *slog.Logger
}

// Send logs msg at debug level.
func (m *NoopMailer) Send(_ context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m.logger.Debug("email not sent (noop provider)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Recorder keeps sent messages in memory. Err, when set, is returned from
// Send and the message is not recorded.
type Recorder struct {
	mu   sync.Mutex
	sent []Email
	Err  error
}

// Send records msg.
func (r *Recorder) Send(_ context.Context, msg Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Email, len(r.sent))
	copy(out, r.sent)
	return out
}

var (
	_ Mailer = (*SESMailer)(nil)
	_ Mailer = (*NoopMailer)(nil)
	_ Mailer = (*Recorder)(nil)
)
