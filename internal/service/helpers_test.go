// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
	"github.com/petrpacas/spiritevents-sub000/internal/testutil"
)

var errStorageDown = errors.New("storage unreachable")

// flakyStorage wraps a Storage and fails selected operations.
type flakyStorage struct {
	storage.Storage
	failUpload bool
	failMove   bool
	failDelete bool
	failExists bool
}

func (f *flakyStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) error {
	if f.failUpload {
		return errStorageDown
	}
	return f.Storage.Upload(ctx, key, r, contentType)
}

func (f *flakyStorage) Move(ctx context.Context, src, dst string) error {
	if f.failMove {
		return errStorageDown
	}
	return f.Storage.Move(ctx, src, dst)
}

func (f *flakyStorage) Delete(ctx context.Context, key string) error {
	if f.failDelete {
		return errStorageDown
	}
	return f.Storage.Delete(ctx, key)
}

func (f *flakyStorage) Exists(ctx context.Context, key string) (bool, error) {
	if f.failExists {
		return false, errStorageDown
	}
	return f.Storage.Exists(ctx, key)
}

type testEnv struct {
	db       *sql.DB
	svc      *EventService
	storage  *flakyStorage
	notifier *notify.Recorder
	operator auth.Principal
}

// fixedNow is the clock of the test services. Events in June 2025 are
// upcoming, events in April 2025 are past.
var fixedNow = time.Date(2025, time.May, 1, 12, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.TestMemoryDB(t)
	local, err := storage.NewLocal(t.TempDir(), "/uploads")
	require.NoError(t, err)

	env := &testEnv{
		db:       db,
		storage:  &flakyStorage{Storage: local},
		notifier: &notify.Recorder{},
	}
	env.svc = NewEventService(db, EventServiceOptions{
		Storage:  env.storage,
		Notifier: env.notifier,
		Logger:   testutil.TestLogger(),
		BaseURL:  "https://spirit.example.org/",
	})
	env.svc.now = func() time.Time { return fixedNow }

	now := time.Now()
	user, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Email: "ops@example.org", PasswordHash: "x", Name: "Ops", CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	env.operator = auth.Operator(user.ID, user.Email, user.Name)
	return env
}

func (env *testEnv) create(t *testing.T, in event.Input) store.Event {
	t.Helper()
	res, err := env.svc.Create(context.Background(), env.operator, EventForm{Input: in})
	require.NoError(t, err)
	return res.Event
}

func (env *testEnv) published(t *testing.T, title, date string) store.Event {
	t.Helper()
	e := env.create(t, event.Input{Title: title, Schedule: event.Schedule{DateStart: date}})
	res, err := env.svc.Publish(context.Background(), env.operator, e.ID)
	require.NoError(t, err)
	return res.Event
}

func (env *testEnv) category(t *testing.T, name string) store.Category {
	t.Helper()
	now := time.Now()
	c, err := store.New(env.db).CreateCategory(context.Background(), store.CreateCategoryParams{
		ID: "cat-" + event.Slug(name), Name: name, Slug: event.Slug(name), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	return c
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for x := 0; x < 16; x++ {
		for y := 0; y < 12; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 20), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngUpload(t *testing.T) *Upload {
	return &Upload{Filename: "poster.png", Reader: bytes.NewReader(testPNG(t))}
}

func requireFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()
	verr, ok := event.AsValidation(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	require.Equal(t, msg, verr[field], "field %q", field)
}
