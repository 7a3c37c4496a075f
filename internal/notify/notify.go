// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify delivers operator notifications (new suggestions, feedback)
// to a chat webhook without blocking the request that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/util"
)

// Message kinds.
const (
	KindSuggestion = "event.suggested"
	KindFeedback   = "feedback.received"
	KindSubscriber = "newsletter.subscribed"
)

// Message is a single notification.
type Message struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url,omitempty"`
}

// Notifier sends messages. Notify must return promptly; delivery failures are
// logged by the implementation and never reported to the caller.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Noop discards every message.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, Message) {}

// Config selects the notifier implementation.
type Config struct {
	WebhookURL    string
	WebhookSecret string
	Workers       int
	QueueSize     int
}

// New returns a started WebhookNotifier when a URL is configured, Noop
// otherwise. The URL is checked against private and loopback addresses.
// The returned stop function waits for the workers to exit.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Notifier, func(), error) {
	if cfg.WebhookURL == "" {
		return Noop{}, func() {}, nil
	}
	if err := util.CheckWebhookURL(ctx, cfg.WebhookURL); err != nil {
		return nil, nil, fmt.Errorf("notify webhook url: %w", err)
	}

	n := NewWebhookNotifier(WebhookOptions{
		URL:       cfg.WebhookURL,
		Secret:    cfg.WebhookSecret,
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
	}, logger)
	n.Start(ctx)
	return n, n.Stop, nil
}

// envelope is the JSON body posted to the webhook.
type envelope struct {
	Text      string    `json:"text"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      Message   `json:"data"`
}

func newEnvelope(msg Message, now time.Time) envelope {
	text := msg.Title
	if msg.Text != "" {
		text += "\n" + msg.Text
	}
	if msg.URL != "" {
		text += "\n" + msg.URL
	}
	return envelope{
		Text:      text,
		Type:      msg.Kind,
		Timestamp: now.UTC(),
		Data:      msg,
	}
}
