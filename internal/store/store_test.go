// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"
)

// testDB creates a temporary migrated database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "spiritevents-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		_ = os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		_ = os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
		_ = os.Remove(dbPath + "-wal")
		_ = os.Remove(dbPath + "-shm")
	})
	return db
}

func createTestEvent(t *testing.T, q *Queries, id, slug, title, dateStart, dateEnd, status string) Event {
	t.Helper()
	now := time.Now()
	e, err := q.CreateEvent(context.Background(), CreateEventParams{
		ID:        id,
		Slug:      slug,
		Title:     title,
		DateStart: dateStart,
		DateEnd:   dateEnd,
		Country:   "CZ",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateEvent(%s): %v", slug, err)
	}
	return e
}

func createTestCategory(t *testing.T, q *Queries, id, name, slug string) Category {
	t.Helper()
	now := time.Now()
	c, err := q.CreateCategory(context.Background(), CreateCategoryParams{
		ID: id, Name: name, Slug: slug, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", slug, err)
	}
	return c
}

func TestCreateUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "ops@example.com",
		PasswordHash: "hashed-password",
		Name:         "Ops",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}

	got, err := q.GetUserByEmail(ctx, "OPS@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %d, want %d", got.ID, user.ID)
	}

	if _, err := q.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByEmail(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestSeedAdmin(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := SeedAdmin(ctx, db, "admin@example.com", "long-enough-password"); err != nil {
		t.Fatalf("SeedAdmin: %v", err)
	}
	// Second run is a no-op.
	if err := SeedAdmin(ctx, db, "admin@example.com", "long-enough-password"); err != nil {
		t.Fatalf("SeedAdmin (second run): %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		t.Fatalf("counting users: %v", err)
	}
	if count != 1 {
		t.Errorf("users = %d, want 1", count)
	}

	if err := SeedAdmin(ctx, db, "", ""); err != nil {
		t.Errorf("SeedAdmin without credentials: %v", err)
	}
}

func TestEvent_SlugLookupIsCaseInsensitive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	q := New(db)

	created := createTestEvent(t, q, "e1", "summer-gathering", "Summer Gathering", "2030-06-01", "2030-06-03", "PUBLISHED")

	got, err := q.GetEventBySlug(ctx, "Summer-Gathering")
	if err != nil {
		t.Fatalf("GetEventBySlug: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestEvent_UniqueConstraints(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "retreat", "Retreat", "", "", "DRAFT")

	now := time.Now()
	_, err := q.CreateEvent(ctx, CreateEventParams{
		ID: "e2", Slug: "RETREAT", Title: "Other", Status: "DRAFT", CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err, "events.slug") {
		t.Errorf("duplicate slug error = %v, want events.slug violation", err)
	}

	_, err = q.CreateEvent(ctx, CreateEventParams{
		ID: "e3", Slug: "other", Title: "retreat", Status: "DRAFT", CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err, "events.title") && !IsUniqueViolation(err, "events.title_key") {
		t.Errorf("duplicate title error = %v, want a title violation", err)
	}

	createTestEvent(t, q, "e4", "equinoxe-gathering", "Équinoxe Gathering", "", "", "DRAFT")
	_, err = q.CreateEvent(ctx, CreateEventParams{
		ID: "e5", Slug: "other-slug", Title: "équinoxe gathering", Status: "DRAFT", CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err, "events.title_key") {
		t.Errorf("non-ASCII duplicate title error = %v, want events.title_key violation", err)
	}

	createTestCategory(t, q, "c1", "Ómega", "omega")
	_, err = q.CreateCategory(ctx, CreateCategoryParams{
		ID: "c2", Name: "ómega", Slug: "omega-2", CreatedAt: now, UpdatedAt: now,
	})
	if !IsUniqueViolation(err, "categories.name_key") {
		t.Errorf("non-ASCII duplicate name error = %v, want categories.name_key violation", err)
	}
}

func TestFoldKey(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"Retreat", "RETREAT", true},
		{"Équinoxe Gathering", "équinoxe gathering", true},
		{"Ómega", "ÓMEGA", true},
		{"E\u0301quinoxe", "équinoxe", true},
		{"Équinoxe", "Equinoxe", false},
	}
	for _, tt := range tests {
		if got := FoldKey(tt.a) == FoldKey(tt.b); got != tt.same {
			t.Errorf("FoldKey(%q) == FoldKey(%q) is %v, want %v", tt.a, tt.b, got, tt.same)
		}
	}
}

func TestCounts_FoldNonASCII(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "equinoxe-gathering", "Équinoxe Gathering", "", "", "DRAFT")
	createTestCategory(t, q, "c1", "Ómega", "omega")

	n, err := q.CountEventsByTitle(ctx, CountEventsByTitleParams{Title: "équinoxe GATHERING"})
	if err != nil {
		t.Fatalf("CountEventsByTitle: %v", err)
	}
	if n != 1 {
		t.Errorf("title count = %d, want 1", n)
	}

	n, err = q.CountCategoriesByName(ctx, CountCategoriesByNameParams{Name: "ómega"})
	if err != nil {
		t.Fatalf("CountCategoriesByName: %v", err)
	}
	if n != 1 {
		t.Errorf("name count = %d, want 1", n)
	}
}

func TestMigrate_BackfillsFoldKeys(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "equinoxe-gathering", "Équinoxe Gathering", "", "", "DRAFT")
	// Rows written before the key columns existed carry SQL lower() keys.
	if _, err := db.ExecContext(ctx, `UPDATE events SET title_key = lower(title)`); err != nil {
		t.Fatalf("resetting key: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var key string
	if err := db.QueryRowContext(ctx, `SELECT title_key FROM events WHERE id = 'e1'`).Scan(&key); err != nil {
		t.Fatalf("reading key: %v", err)
	}
	if key != FoldKey("Équinoxe Gathering") {
		t.Errorf("title_key = %q, want %q", key, FoldKey("Équinoxe Gathering"))
	}
}

func TestEvent_CountsExcludeSelf(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "retreat", "Retreat", "", "", "DRAFT")

	n, err := q.CountEventsByTitle(ctx, CountEventsByTitleParams{Title: "RETREAT"})
	if err != nil {
		t.Fatalf("CountEventsByTitle: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	n, err = q.CountEventsBySlug(ctx, CountEventsBySlugParams{Slug: "retreat", ExcludeID: "e1"})
	if err != nil {
		t.Fatalf("CountEventsBySlug: %v", err)
	}
	if n != 0 {
		t.Errorf("count excluding self = %d, want 0", n)
	}
}

func TestEvent_UpdateStatusAndDelete(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "retreat", "Retreat", "2030-01-01", "2030-01-01", "DRAFT")

	e, err := q.UpdateEventStatus(ctx, UpdateEventStatusParams{ID: "e1", Status: "PUBLISHED", UpdatedAt: time.Now()})
	if err != nil {
		t.Fatalf("UpdateEventStatus: %v", err)
	}
	if e.Status != "PUBLISHED" {
		t.Errorf("Status = %q, want PUBLISHED", e.Status)
	}

	if _, err := q.UpdateEventStatus(ctx, UpdateEventStatusParams{ID: "e1", Status: "ARCHIVED", UpdatedAt: time.Now()}); err == nil {
		t.Error("expected CHECK constraint failure for unknown status")
	}

	if err := q.DeleteEvent(ctx, "e1"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if _, err := q.GetEventByID(ctx, "e1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetEventByID after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestListEvents_Filters(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()
	today := "2030-06-15"

	createTestEvent(t, q, "e1", "late", "Late Circle", "2030-07-01", "2030-07-02", "PUBLISHED")
	createTestEvent(t, q, "e2", "early", "Early Circle", "2030-06-20", "2030-06-20", "PUBLISHED")
	createTestEvent(t, q, "e3", "ongoing", "Ongoing Fire", "2030-06-10", "2030-06-16", "PUBLISHED")
	createTestEvent(t, q, "e4", "old", "Old Circle", "2030-01-01", "2030-01-02", "PUBLISHED")
	createTestEvent(t, q, "e5", "draft", "Draft Circle", "2030-07-01", "2030-07-01", "DRAFT")

	cat := createTestCategory(t, q, "c1", "Breathwork", "breathwork")
	if err := q.AddEventCategory(ctx, AddEventCategoryParams{EventID: "e1", CategoryID: cat.ID}); err != nil {
		t.Fatalf("AddEventCategory: %v", err)
	}

	slugs := func(events []Event) []string {
		var out []string
		for _, e := range events {
			out = append(out, e.Slug)
		}
		return out
	}

	tests := []struct {
		name   string
		params ListEventsParams
		want   []string
	}{
		{
			name: "upcoming published ascending",
			params: ListEventsParams{
				EventFilter: EventFilter{Status: "PUBLISHED", Period: PeriodUpcoming, Today: today},
				Order:       OrderUpcoming, Limit: 10,
			},
			want: []string{"ongoing", "early", "late"},
		},
		{
			name: "past descending",
			params: ListEventsParams{
				EventFilter: EventFilter{Status: "PUBLISHED", Period: PeriodPast, Today: today},
				Order:       OrderPast, Limit: 10,
			},
			want: []string{"old"},
		},
		{
			name: "text query",
			params: ListEventsParams{
				EventFilter: EventFilter{Status: "PUBLISHED", Query: "circle", Period: PeriodUpcoming, Today: today},
				Order:       OrderUpcoming, Limit: 10,
			},
			want: []string{"early", "late"},
		},
		{
			name: "category",
			params: ListEventsParams{
				EventFilter: EventFilter{CategorySlug: "breathwork"},
				Order:       OrderUpcoming, Limit: 10,
			},
			want: []string{"late"},
		},
		{
			name: "like wildcards are literal",
			params: ListEventsParams{
				EventFilter: EventFilter{Query: "%"},
				Order:       OrderUpcoming, Limit: 10,
			},
			want: nil,
		},
		{
			name: "pagination",
			params: ListEventsParams{
				EventFilter: EventFilter{Status: "PUBLISHED", Period: PeriodUpcoming, Today: today},
				Order:       OrderUpcoming, Limit: 1, Offset: 1,
			},
			want: []string{"early"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := q.ListEvents(ctx, tt.params)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			gotSlugs := slugs(got)
			if len(gotSlugs) != len(tt.want) {
				t.Fatalf("slugs = %v, want %v", gotSlugs, tt.want)
			}
			for i := range tt.want {
				if gotSlugs[i] != tt.want[i] {
					t.Errorf("slugs = %v, want %v", gotSlugs, tt.want)
					break
				}
			}

			n, err := q.CountEvents(ctx, tt.params.EventFilter)
			if err != nil {
				t.Fatalf("CountEvents: %v", err)
			}
			if tt.params.Offset == 0 && n != int64(len(tt.want)) {
				t.Errorf("CountEvents = %d, want %d", n, len(tt.want))
			}
		})
	}
}

func TestFacets(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()
	today := "2030-06-15"

	createTestEvent(t, q, "e1", "a", "A", "2030-07-01", "2030-07-01", "PUBLISHED")
	createTestEvent(t, q, "e2", "b", "B", "2030-07-01", "2030-07-01", "DRAFT")
	createTestEvent(t, q, "e3", "c", "C", "2030-01-01", "2030-01-01", "PUBLISHED")

	c1 := createTestCategory(t, q, "c1", "Yoga", "yoga")
	createTestCategory(t, q, "c2", "Dance", "dance")
	for _, id := range []string{"e1", "e2", "e3"} {
		if err := q.AddEventCategory(ctx, AddEventCategoryParams{EventID: id, CategoryID: c1.ID}); err != nil {
			t.Fatalf("AddEventCategory: %v", err)
		}
	}

	cats, err := q.CountPublishedByCategory(ctx, today)
	if err != nil {
		t.Fatalf("CountPublishedByCategory: %v", err)
	}
	want := map[string]int64{"yoga": 1, "dance": 0}
	if len(cats) != len(want) {
		t.Fatalf("got %d categories, want %d", len(cats), len(want))
	}
	for _, c := range cats {
		if c.Count != want[c.Slug] {
			t.Errorf("count[%s] = %d, want %d", c.Slug, c.Count, want[c.Slug])
		}
	}

	countries, err := q.CountPublishedByCountry(ctx, today)
	if err != nil {
		t.Fatalf("CountPublishedByCountry: %v", err)
	}
	if len(countries) != 1 || countries[0].Country != "CZ" || countries[0].Count != 1 {
		t.Errorf("countries = %+v, want [{CZ 1}]", countries)
	}
}

func TestEventCategories(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	createTestEvent(t, q, "e1", "a", "A", "", "", "DRAFT")
	createTestEvent(t, q, "e2", "b", "B", "", "", "DRAFT")
	createTestCategory(t, q, "c1", "Yoga", "yoga")
	createTestCategory(t, q, "c2", "Dance", "dance")

	for _, p := range []AddEventCategoryParams{
		{EventID: "e1", CategoryID: "c1"},
		{EventID: "e1", CategoryID: "c2"},
		{EventID: "e1", CategoryID: "c2"},
		{EventID: "e2", CategoryID: "c1"},
	} {
		if err := q.AddEventCategory(ctx, p); err != nil {
			t.Fatalf("AddEventCategory: %v", err)
		}
	}

	byEvent, err := q.ListCategoriesForEvents(ctx, []string{"e1", "e2"})
	if err != nil {
		t.Fatalf("ListCategoriesForEvents: %v", err)
	}
	if len(byEvent["e1"]) != 2 || len(byEvent["e2"]) != 1 {
		t.Errorf("categories = %+v", byEvent)
	}

	if err := q.DeleteEventCategories(ctx, "e1"); err != nil {
		t.Fatalf("DeleteEventCategories: %v", err)
	}
	cats, err := q.ListCategoriesForEvent(ctx, "e1")
	if err != nil {
		t.Fatalf("ListCategoriesForEvent: %v", err)
	}
	if len(cats) != 0 {
		t.Errorf("categories after clear = %d, want 0", len(cats))
	}

	// Deleting a category cascades to the join table.
	if err := q.DeleteCategory(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	n, err := q.CountCategoryEvents(ctx, "c1")
	if err != nil {
		t.Fatalf("CountCategoryEvents: %v", err)
	}
	if n != 0 {
		t.Errorf("links after category delete = %d, want 0", n)
	}
}

func TestCreateSubscriber_Idempotent(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	inserted, err := q.CreateSubscriber(ctx, CreateSubscriberParams{Email: "a@example.com", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	if !inserted {
		t.Error("first subscribe should insert")
	}

	inserted, err = q.CreateSubscriber(ctx, CreateSubscriberParams{Email: "A@example.com", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateSubscriber (duplicate): %v", err)
	}
	if inserted {
		t.Error("duplicate subscribe should not insert")
	}

	subs, err := q.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("subscribers = %d, want 1", len(subs))
	}
}

func TestFeedbackAndAudit(t *testing.T) {
	db := testDB(t)
	q := New(db)
	ctx := context.Background()

	f, err := q.CreateFeedback(ctx, CreateFeedbackParams{Name: "Ann", Message: "Lovely site", Client: "Firefox 128 on Linux", Country: "cz", CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	if f.ID == 0 {
		t.Error("feedback ID should not be 0")
	}
	list, err := q.ListFeedback(ctx, ListFeedbackParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(list) != 1 || list[0].Message != "Lovely site" || list[0].Client != "Firefox 128 on Linux" || list[0].Country != "cz" {
		t.Errorf("feedback = %+v", list)
	}

	old := time.Now().Add(-48 * time.Hour)
	if err := q.CreateAuditEntry(ctx, CreateAuditEntryParams{Level: "warn", Category: "event", Message: "old", Metadata: "{}", CreatedAt: old}); err != nil {
		t.Fatalf("CreateAuditEntry: %v", err)
	}
	if err := q.CreateAuditEntry(ctx, CreateAuditEntryParams{Level: "error", Category: "event", Message: "new", Metadata: "{}", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateAuditEntry: %v", err)
	}

	deleted, err := q.DeleteAuditEntriesBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteAuditEntriesBefore: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	entries, err := q.ListAuditEntries(ctx, 10)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "new" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := InTx(ctx, db, func(q *Queries) error {
		now := time.Now()
		if _, err := q.CreateCategory(ctx, CreateCategoryParams{ID: "c1", Name: "Yoga", Slug: "yoga", CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("InTx error = %v, want %v", err, errBoom)
	}

	if _, err := New(db).GetCategoryByID(ctx, "c1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("category should have been rolled back, got err = %v", err)
	}
}
