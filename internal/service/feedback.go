// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	mailer "github.com/petrpacas/spiritevents-sub000/internal/mail"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/util"
)

// Feedback limits.
const (
	MaxFeedbackMessageLength = 5000
	MaxFeedbackNameLength    = 100
	MaxFeedbackClientLength  = 100
)

// FeedbackInput is a submitted feedback form. Client and Country describe
// the sender and are filled in from the request, not the form.
type FeedbackInput struct {
	Name    string
	Email   string
	Message string
	Client  string
	Country string
}

// Validate normalizes in and checks it.
func (in *FeedbackInput) Validate() event.ValidationError {
	in.Name = util.CollapseWhitespace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	in.Client = truncateRunes(in.Client, MaxFeedbackClientLength)
	in.Country = event.NormalizeCountry(in.Country)

	errs := event.ValidationError{}
	if utf8.RuneCountInString(in.Name) > MaxFeedbackNameLength {
		errs.Add(event.FieldName, fmt.Sprintf("Name must be at most %d characters", MaxFeedbackNameLength))
	}
	if in.Email != "" {
		if _, ok := ParseEmail(in.Email); !ok {
			errs.Add(event.FieldEmail, "Enter a valid email address")
		}
	}
	switch n := utf8.RuneCountInString(in.Message); {
	case n == 0:
		errs.Add(event.FieldMessage, "Message is required")
	case n > MaxFeedbackMessageLength:
		errs.Add(event.FieldMessage, fmt.Sprintf("Message must be at most %d characters", MaxFeedbackMessageLength))
	}
	return errs
}

// FeedbackService stores feedback and forwards it to the operators.
type FeedbackService struct {
	queries  *store.Queries
	mailer   mailer.Mailer
	notifier notify.Notifier
	inbox    string
	logger   *slog.Logger
	now      func() time.Time
}

// NewFeedbackService creates a FeedbackService. Feedback is mailed to inbox
// when it is set.
func NewFeedbackService(db *sql.DB, m mailer.Mailer, n notify.Notifier, inbox string, logger *slog.Logger) *FeedbackService {
	if n == nil {
		n = notify.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackService{
		queries:  store.New(db),
		mailer:   m,
		notifier: n,
		inbox:    inbox,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit stores a feedback message. Mail and notification failures are
// logged only.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (store.Feedback, error) {
	if err := in.Validate().Err(); err != nil {
		return store.Feedback{}, err
	}

	f, err := s.queries.CreateFeedback(ctx, store.CreateFeedbackParams{
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Client:    in.Client,
		Country:   in.Country,
		CreatedAt: s.now(),
	})
	if err != nil {
		return store.Feedback{}, fmt.Errorf("storing feedback: %w", err)
	}

	from := in.Name
	if from == "" {
		from = "anonymous visitor"
	}

	if s.mailer != nil && s.inbox != "" {
		err := s.mailer.Send(ctx, mailer.Email{
			To:      []string{s.inbox},
			ReplyTo: in.Email,
			Subject: "Feedback from " + from,
			Text:    in.Message + "\n\n-- \n" + from + " " + in.Email + "\n",
		})
		if err != nil {
			s.logger.Warn("failed to forward feedback", "feedback_id", f.ID, "error", err)
		}
	}

	s.notifier.Notify(ctx, notify.Message{
		Kind:  notify.KindFeedback,
		Title: "Feedback from " + from,
		Text:  truncateRunes(in.Message, 280),
	})
	return f, nil
}

// List returns a page of feedback, newest first.
func (s *FeedbackService) List(ctx context.Context, limit, offset int) ([]store.Feedback, error) {
	return s.queries.ListFeedback(ctx, store.ListFeedbackParams{Limit: int64(limit), Offset: int64(offset)})
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
