// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

// User is an operator account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  sql.NullTime
}

// Event is one gathering as stored in the events table.
type Event struct {
	ID            string
	Slug          string
	Title         string
	DateStart     string
	DateEnd       string
	TimeStart     string
	TimeEnd       string
	Location      string
	Country       string
	Region        string
	LinkWebsite   string
	LinkTickets   string
	LinkMap       string
	LinkSocial    string
	Description   string
	ImageKey      string
	ImageID       string
	ImageBlurhash string
	Status        string
	CreatedBy     sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Category is a named, sluggable tag attached to events.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subscriber is a mailing-list address.
type Subscriber struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// Feedback is a message sent through the public feedback form.
type Feedback struct {
	ID      int64
	Name    string
	Email   string
	Message string
	// Client summarizes the sender's browser, e.g. "Firefox 128 on Linux".
	Client    string
	Country   string
	CreatedAt time.Time
}

// AuditEntry is a row of the audit log.
type AuditEntry struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}
