// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"sync"
)

// Recorder keeps every message in memory. It is used in tests and in
// development when no webhook is configured but messages should be inspected.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records msg.
func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
