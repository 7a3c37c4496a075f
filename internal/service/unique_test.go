// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

const (
	titleCountQuery = `SELECT COUNT\(\*\) FROM events WHERE title_key = \? AND id <> \?`
	slugCountQuery  = `SELECT COUNT\(\*\) FROM events WHERE lower\(slug\) = lower\(\?\) AND id <> \?`
)

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestUniqueness_CheckEvent(t *testing.T) {
	ctx := context.Background()
	original := &store.Event{ID: "ev-1", Title: "Moon Gathering", Slug: "moon-gathering"}

	tests := []struct {
		name     string
		in       event.Input
		original *store.Event
		preset   event.ValidationError
		mock     func(mock sqlmock.Sqlmock)
		want     event.ValidationError
	}{
		{
			name: "new event, both free",
			in:   event.Input{Title: "Moon Gathering", Slug: "moon-gathering"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(titleCountQuery).WithArgs("moon gathering", "").WillReturnRows(countRows(0))
				mock.ExpectQuery(slugCountQuery).WithArgs("moon-gathering", "").WillReturnRows(countRows(0))
			},
			want: event.ValidationError{},
		},
		{
			name: "new event, both taken",
			in:   event.Input{Title: "Moon Gathering", Slug: "moon-gathering"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(titleCountQuery).WithArgs("moon gathering", "").WillReturnRows(countRows(1))
				mock.ExpectQuery(slugCountQuery).WithArgs("moon-gathering", "").WillReturnRows(countRows(1))
			},
			want: event.ValidationError{
				event.FieldTitle: MsgTitleTaken,
				event.FieldSlug:  MsgEventSlugTaken,
			},
		},
		{
			name:     "edit with unchanged values makes no queries",
			in:       event.Input{Title: "Moon Gathering", Slug: "moon-gathering"},
			original: original,
			mock:     func(sqlmock.Sqlmock) {},
			want:     event.ValidationError{},
		},
		{
			name:     "edit with case-only change makes no queries",
			in:       event.Input{Title: "MOON GATHERING", Slug: "moon-gathering"},
			original: original,
			mock:     func(sqlmock.Sqlmock) {},
			want:     event.ValidationError{},
		},
		{
			name:     "edit with new title excludes the event itself",
			in:       event.Input{Title: "Sun Gathering", Slug: "moon-gathering"},
			original: original,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(titleCountQuery).WithArgs("sun gathering", "ev-1").WillReturnRows(countRows(1))
			},
			want: event.ValidationError{event.FieldTitle: MsgTitleTaken},
		},
		{
			name:   "fields with errors are not checked",
			in:     event.Input{Title: "Moon Gathering", Slug: "Bad Slug"},
			preset: event.ValidationError{event.FieldSlug: "Slug may only contain lowercase letters, numbers and hyphens"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(titleCountQuery).WithArgs("moon gathering", "").WillReturnRows(countRows(0))
			},
			want: event.ValidationError{event.FieldSlug: "Slug may only contain lowercase letters, numbers and hyphens"},
		},
		{
			name: "empty values are not checked",
			in:   event.Input{},
			mock: func(sqlmock.Sqlmock) {},
			want: event.ValidationError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.mock(mock)

			errs := event.ValidationError{}
			errs.Merge(tt.preset)
			err = NewUniqueness(store.New(db)).CheckEvent(ctx, errs, tt.in, tt.original)
			require.NoError(t, err)
			assert.Equal(t, tt.want, errs)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUniqueness_StoreError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(titleCountQuery).WithArgs("moon gathering", "").WillReturnError(sql.ErrConnDone)

	err = NewUniqueness(store.New(db)).CheckEvent(context.Background(), event.ValidationError{}, event.Input{Title: "Moon Gathering"}, nil)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUniqueness_Categories(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	yoga := env.category(t, "Yoga")
	u := env.svc.Uniqueness()

	taken, err := u.IsCategoryNameTaken(ctx, "yoga", "")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = u.IsCategoryNameTaken(ctx, "YOGA", yoga.ID)
	require.NoError(t, err)
	assert.False(t, taken, "a category does not conflict with itself")

	taken, err = u.IsCategorySlugTaken(ctx, "yoga", "")
	require.NoError(t, err)
	assert.True(t, taken)

	errs := event.ValidationError{}
	require.NoError(t, u.CheckCategory(ctx, errs, CategoryInput{Name: "yoga", Slug: "yoga"}, nil))
	assert.Equal(t, event.ValidationError{
		event.FieldName: MsgCategoryNameTaken,
		event.FieldSlug: MsgCategorySlugTaken,
	}, errs)
}

func TestUniqueness_Events(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	e := env.create(t, event.Input{Title: "Moon Gathering"})
	u := env.svc.Uniqueness()

	tests := []struct {
		name      string
		check     func(context.Context, string, string) (bool, error)
		value     string
		excluding string
		want      bool
	}{
		{"title same case", u.IsTitleTaken, "Moon Gathering", "", true},
		{"title other case", u.IsTitleTaken, "moon GATHERING", "", true},
		{"title excluding itself", u.IsTitleTaken, "moon gathering", e.ID, false},
		{"title free", u.IsTitleTaken, "Sun Gathering", "", false},
		{"slug taken", u.IsSlugTaken, "moon-gathering", "", true},
		{"slug other case", u.IsSlugTaken, "Moon-Gathering", "", true},
		{"slug excluding itself", u.IsSlugTaken, "moon-gathering", e.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.check(ctx, tt.value, tt.excluding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniqueViolationError_FoldedKeys(t *testing.T) {
	tests := []struct {
		msg   string
		field string
		want  string
	}{
		{"UNIQUE constraint failed: events.title_key", event.FieldTitle, MsgTitleTaken},
		{"UNIQUE constraint failed: categories.name_key (2067)", event.FieldName, MsgCategoryNameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			errs, ok := uniqueViolationError(errors.New(tt.msg))
			require.True(t, ok)
			assert.Equal(t, tt.want, errs[tt.field])
		})
	}
}
