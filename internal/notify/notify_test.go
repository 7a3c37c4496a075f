// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrpacas/spiritevents-sub000/internal/testutil"
)

type capturedRequest struct {
	body      []byte
	signature string
	event     string
}

func newCaptureServer(t *testing.T, statuses ...int) (*httptest.Server, chan capturedRequest, *atomic.Int32) {
	t.Helper()
	reqs := make(chan capturedRequest, 10)
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		body, _ := io.ReadAll(r.Body)
		reqs <- capturedRequest{
			body:      body,
			signature: r.Header.Get(SignatureHeader),
			event:     r.Header.Get(EventHeader),
		}
		status := http.StatusOK
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, reqs, &calls
}

func startNotifier(t *testing.T, url string) *WebhookNotifier {
	t.Helper()
	n := NewWebhookNotifier(WebhookOptions{
		URL:     url,
		Secret:  "s3cret",
		Workers: 1,
		Backoff: time.Millisecond,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}, testutil.TestLogger())
	n.Start(context.Background())
	t.Cleanup(n.Stop)
	return n
}

func waitRequest(t *testing.T, reqs chan capturedRequest) capturedRequest {
	t.Helper()
	select {
	case r := <-reqs:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for webhook request")
		return capturedRequest{}
	}
}

func TestWebhookNotifier_DeliversSignedPayload(t *testing.T) {
	srv, reqs, _ := newCaptureServer(t)
	n := startNotifier(t, srv.URL)

	n.Notify(context.Background(), Message{
		Kind:  KindSuggestion,
		Title: "New suggestion: Full Moon Circle",
		URL:   "https://example.org/admin/events/abc/edit",
	})

	got := waitRequest(t, reqs)
	assert.Equal(t, KindSuggestion, got.event)
	assert.Equal(t, "sha256="+GenerateSignature(got.body, "s3cret"), got.signature)
	assert.True(t, VerifySignature(got.body, strings.TrimPrefix(got.signature, "sha256="), "s3cret"))

	var env struct {
		Text string  `json:"text"`
		Type string  `json:"type"`
		Data Message `json:"data"`
	}
	require.NoError(t, json.Unmarshal(got.body, &env))
	assert.Equal(t, KindSuggestion, env.Type)
	assert.Equal(t, "Full Moon Circle", strings.TrimPrefix(env.Data.Title, "New suggestion: "))
	assert.Contains(t, env.Text, "https://example.org/admin/events/abc/edit")
}

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	srv, reqs, calls := newCaptureServer(t, http.StatusBadGateway, http.StatusServiceUnavailable)
	n := startNotifier(t, srv.URL)

	n.Notify(context.Background(), Message{Kind: KindFeedback, Title: "Feedback"})

	for range 3 {
		waitRequest(t, reqs)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookNotifier_DoesNotRetryClientErrors(t *testing.T) {
	srv, reqs, calls := newCaptureServer(t, http.StatusBadRequest)
	n := startNotifier(t, srv.URL)

	n.Notify(context.Background(), Message{Kind: KindFeedback, Title: "Feedback"})
	waitRequest(t, reqs)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookNotifier_NotifyNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(block) }) }
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(release)

	n := NewWebhookNotifier(WebhookOptions{
		URL:       srv.URL,
		Workers:   1,
		QueueSize: 1,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}, testutil.TestLogger())
	n.Start(context.Background())
	t.Cleanup(n.Stop)

	done := make(chan struct{})
	go func() {
		for range 20 {
			n.Notify(context.Background(), Message{Kind: KindFeedback})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	release()
}

func TestWebhookNotifier_NotRunningDrops(t *testing.T) {
	n := NewWebhookNotifier(WebhookOptions{URL: "http://example.invalid"}, testutil.TestLogger())
	n.Notify(context.Background(), Message{Kind: KindFeedback})
	assert.Len(t, n.queue, 0)
}

func TestNew(t *testing.T) {
	n, stop, err := New(context.Background(), Config{}, testutil.TestLogger())
	require.NoError(t, err)
	stop()
	assert.IsType(t, Noop{}, n)

	_, _, err = New(context.Background(), Config{WebhookURL: "http://127.0.0.1:9/hook"}, testutil.TestLogger())
	assert.Error(t, err)

	_, _, err = New(context.Background(), Config{WebhookURL: "ftp://chat.example.org/hook"}, testutil.TestLogger())
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Notify(context.Background(), Message{Kind: KindSubscriber, Title: "a@example.org"})

	msgs := r.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, KindSubscriber, msgs[0].Kind)
}
