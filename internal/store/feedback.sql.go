// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const createFeedback = `INSERT INTO feedback (name, email, message, client, country, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, email, message, client, country, created_at`

type CreateFeedbackParams struct {
	Name      string
	Email     string
	Message   string
	Client    string
	Country   string
	CreatedAt time.Time
}

func (q *Queries) CreateFeedback(ctx context.Context, arg CreateFeedbackParams) (Feedback, error) {
	var f Feedback
	err := q.db.QueryRowContext(ctx, createFeedback, arg.Name, arg.Email, arg.Message, arg.Client, arg.Country, arg.CreatedAt).
		Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Client, &f.Country, &f.CreatedAt)
	return f, err
}

const listFeedback = `SELECT id, name, email, message, client, country, created_at FROM feedback
ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

type ListFeedbackParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListFeedback(ctx context.Context, arg ListFeedbackParams) ([]Feedback, error) {
	rows, err := q.db.QueryContext(ctx, listFeedback, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Message, &f.Client, &f.Country, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
