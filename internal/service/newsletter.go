// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	mailer "github.com/petrpacas/spiritevents-sub000/internal/mail"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// MaxEmailLength limits submitted email addresses.
const MaxEmailLength = 254

// ParseEmail validates a single bare address such as "ana@example.org".
func ParseEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > MaxEmailLength {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return "", false
	}
	return addr.Address, true
}

// NewsletterService manages mailing-list signups.
type NewsletterService struct {
	queries  *store.Queries
	mailer   mailer.Mailer
	notifier notify.Notifier
	logger   *slog.Logger
	siteName string
	now      func() time.Time
}

// NewNewsletterService creates a NewsletterService.
func NewNewsletterService(db *sql.DB, m mailer.Mailer, n notify.Notifier, siteName string, logger *slog.Logger) *NewsletterService {
	if n == nil {
		n = notify.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsletterService{
		queries:  store.New(db),
		mailer:   m,
		notifier: n,
		logger:   logger,
		siteName: siteName,
		now:      time.Now,
	}
}

// Subscribe adds email to the mailing list. Subscribing twice is not an
// error; only a new signup gets a confirmation mail.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (bool, error) {
	addr, ok := ParseEmail(email)
	if !ok {
		return false, event.ValidationError{event.FieldEmail: "Enter a valid email address"}
	}

	created, err := s.queries.CreateSubscriber(ctx, store.CreateSubscriberParams{Email: addr, CreatedAt: s.now()})
	if err != nil {
		return false, fmt.Errorf("creating subscriber: %w", err)
	}
	if !created {
		return false, nil
	}

	if s.mailer != nil {
		err := s.mailer.Send(ctx, mailer.Email{
			To:      []string{addr},
			Subject: "You are subscribed to " + s.siteName,
			Text: "Thank you for subscribing to " + s.siteName + ".\n\n" +
				"We will let you know about new gatherings.\n",
		})
		if err != nil {
			s.logger.Warn("failed to send subscription confirmation", "error", err)
		}
	}
	s.notifier.Notify(ctx, notify.Message{
		Kind:  notify.KindSubscriber,
		Title: "New newsletter subscriber",
		Text:  addr,
	})
	return true, nil
}

// Subscribers returns every address on the list.
func (s *NewsletterService) Subscribers(ctx context.Context) ([]store.Subscriber, error) {
	return s.queries.ListSubscribers(ctx)
}
