// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/util"
)

// Delivery settings.
const (
	MaxAttempts     = 3
	InitialBackoff  = 2 * time.Second
	RequestTimeout  = 15 * time.Second
	MaxResponseLen  = 4 * 1024
	UserAgent       = "SpiritEvents/1.0"
	SignatureHeader = "X-Spirit-Signature"
	EventHeader     = "X-Spirit-Event"
)

// WebhookOptions configures a WebhookNotifier.
type WebhookOptions struct {
	URL       string
	Secret    string
	Workers   int
	QueueSize int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	// Client defaults to a client that refuses private addresses.
	Client *http.Client
}

// WebhookNotifier posts messages to a webhook from a pool of workers fed by
// a bounded queue. A full queue drops the message with a warning.
type WebhookNotifier struct {
	url     string
	secret  string
	backoff time.Duration
	client  *http.Client
	logger  *slog.Logger
	queue   chan Message
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	now     func() time.Time
}

// NewWebhookNotifier creates a notifier. Call Start before Notify.
func NewWebhookNotifier(opts WebhookOptions, logger *slog.Logger) *WebhookNotifier {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.Backoff <= 0 {
		opts.Backoff = InitialBackoff
	}
	if opts.Client == nil {
		opts.Client = &http.Client{
			Timeout: RequestTimeout,
			Transport: &http.Transport{
				DialContext:     util.PublicDialContext(&net.Dialer{Timeout: 5 * time.Second}),
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookNotifier{
		url:     opts.URL,
		secret:  opts.Secret,
		backoff: opts.Backoff,
		client:  opts.Client,
		logger:  logger,
		queue:   make(chan Message, opts.QueueSize),
		workers: opts.Workers,
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

// Start launches the workers. It is a no-op when already running.
func (n *WebhookNotifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true

	n.logger.Info("starting notify workers", "workers", n.workers)
	for i := 0; i < n.workers; i++ {
		n.wg.Add(1)
		go n.worker(ctx, i)
	}
}

// Stop signals the workers and waits for them to return. Queued messages
// that have not been picked up are dropped.
func (n *WebhookNotifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
	n.logger.Info("notify workers stopped")
}

// Notify enqueues msg without blocking.
func (n *WebhookNotifier) Notify(_ context.Context, msg Message) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.running {
		n.logger.Warn("notifier not running, message dropped", "kind", msg.Kind)
		return
	}

	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("notify queue full, message dropped", "kind", msg.Kind)
	}
}

func (n *WebhookNotifier) worker(ctx context.Context, id int) {
	defer n.wg.Done()

	for {
		select {
		case <-n.done:
			return
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			n.deliver(ctx, msg, id)
		}
	}
}

// deliver posts msg, retrying network errors, 5xx, 408 and 429 responses.
func (n *WebhookNotifier) deliver(ctx context.Context, msg Message, workerID int) {
	payload, err := json.Marshal(newEnvelope(msg, n.now()))
	if err != nil {
		n.logger.Error("failed to marshal notification", "error", err, "kind", msg.Kind)
		return
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		result := n.attempt(ctx, msg.Kind, payload)
		if result.Success {
			n.logger.Debug("notification delivered",
				"kind", msg.Kind, "worker_id", workerID, "status_code", result.StatusCode)
			return
		}
		if !result.ShouldRetry || attempt == MaxAttempts {
			n.logger.Warn("notification delivery failed",
				"kind", msg.Kind, "attempts", attempt, "error", result.Error)
			return
		}

		select {
		case <-time.After(n.backoff << (attempt - 1)):
		case <-n.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// deliveryResult is the outcome of one HTTP attempt.
type deliveryResult struct {
	Success     bool
	StatusCode  int
	Error       error
	ShouldRetry bool
}

func (n *WebhookNotifier) attempt(ctx context.Context, kind string, payload []byte) deliveryResult {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return deliveryResult{Error: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(EventHeader, kind)
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+GenerateSignature(payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return deliveryResult{Error: fmt.Errorf("request failed: %w", err), ShouldRetry: true}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return deliveryResult{Success: true, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return deliveryResult{
			StatusCode:  resp.StatusCode,
			Error:       fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			ShouldRetry: resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests,
		}
	default:
		return deliveryResult{
			StatusCode:  resp.StatusCode,
			Error:       fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
			ShouldRetry: true,
		}
	}
}

// GenerateSignature returns the hex HMAC-SHA256 of payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a hex HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(GenerateSignature(payload, secret)))
}

var _ Notifier = (*WebhookNotifier)(nil)
