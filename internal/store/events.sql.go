// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const eventColumns = `id, slug, title, date_start, date_end, time_start, time_end,
	location, country, region, link_website, link_tickets, link_map, link_social,
	description, image_key, image_id, image_blurhash, status, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var e Event
	err := row.Scan(
		&e.ID, &e.Slug, &e.Title, &e.DateStart, &e.DateEnd, &e.TimeStart, &e.TimeEnd,
		&e.Location, &e.Country, &e.Region, &e.LinkWebsite, &e.LinkTickets, &e.LinkMap, &e.LinkSocial,
		&e.Description, &e.ImageKey, &e.ImageID, &e.ImageBlurhash, &e.Status, &e.CreatedBy,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

const createEvent = `INSERT INTO events (
	id, slug, title, date_start, date_end, time_start, time_end,
	location, country, region, link_website, link_tickets, link_map, link_social,
	description, image_key, image_id, image_blurhash, status, created_by, created_at, updated_at,
	title_key
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + eventColumns

// CreateEventParams holds the column values of a new event.
type CreateEventParams struct {
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

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.ID, arg.Slug, arg.Title, arg.DateStart, arg.DateEnd, arg.TimeStart, arg.TimeEnd,
		arg.Location, arg.Country, arg.Region, arg.LinkWebsite, arg.LinkTickets, arg.LinkMap, arg.LinkSocial,
		arg.Description, arg.ImageKey, arg.ImageID, arg.ImageBlurhash, arg.Status, arg.CreatedBy,
		arg.CreatedAt, arg.UpdatedAt, FoldKey(arg.Title),
	)
	return scanEvent(row)
}

const getEventByID = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

func (q *Queries) GetEventByID(ctx context.Context, id string) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEventByID, id))
}

const getEventBySlug = `SELECT ` + eventColumns + ` FROM events WHERE slug = ?`

// GetEventBySlug matches case-insensitively through the column collation.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEventBySlug, slug))
}

const updateEvent = `UPDATE events SET
	slug = ?, title = ?, date_start = ?, date_end = ?, time_start = ?, time_end = ?,
	location = ?, country = ?, region = ?, link_website = ?, link_tickets = ?, link_map = ?, link_social = ?,
	description = ?, status = ?, updated_at = ?, title_key = ?
WHERE id = ?
RETURNING ` + eventColumns

// UpdateEventParams holds the editable columns of an event.
type UpdateEventParams struct {
	ID          string
	Slug        string
	Title       string
	DateStart   string
	DateEnd     string
	TimeStart   string
	TimeEnd     string
	Location    string
	Country     string
	Region      string
	LinkWebsite string
	LinkTickets string
	LinkMap     string
	LinkSocial  string
	Description string
	Status      string
	UpdatedAt   time.Time
}

func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (Event, error) {
	row := q.db.QueryRowContext(ctx, updateEvent,
		arg.Slug, arg.Title, arg.DateStart, arg.DateEnd, arg.TimeStart, arg.TimeEnd,
		arg.Location, arg.Country, arg.Region, arg.LinkWebsite, arg.LinkTickets, arg.LinkMap, arg.LinkSocial,
		arg.Description, arg.Status, arg.UpdatedAt, FoldKey(arg.Title), arg.ID,
	)
	return scanEvent(row)
}

const updateEventStatus = `UPDATE events SET status = ?, updated_at = ? WHERE id = ?
RETURNING ` + eventColumns

type UpdateEventStatusParams struct {
	ID        string
	Status    string
	UpdatedAt time.Time
}

func (q *Queries) UpdateEventStatus(ctx context.Context, arg UpdateEventStatusParams) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, updateEventStatus, arg.Status, arg.UpdatedAt, arg.ID))
}

const updateEventImage = `UPDATE events SET image_key = ?, image_id = ?, image_blurhash = ?, updated_at = ? WHERE id = ?`

type UpdateEventImageParams struct {
	ID            string
	ImageKey      string
	ImageID       string
	ImageBlurhash string
	UpdatedAt     time.Time
}

func (q *Queries) UpdateEventImage(ctx context.Context, arg UpdateEventImageParams) error {
	_, err := q.db.ExecContext(ctx, updateEventImage, arg.ImageKey, arg.ImageID, arg.ImageBlurhash, arg.UpdatedAt, arg.ID)
	return err
}

const deleteEvent = `DELETE FROM events WHERE id = ?`

func (q *Queries) DeleteEvent(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteEvent, id)
	return err
}

const countEventsByTitle = `SELECT COUNT(*) FROM events WHERE title_key = ? AND id <> ?`

// CountEventsByTitleParams excludes the event with ExcludeID from the count.
type CountEventsByTitleParams struct {
	Title     string
	ExcludeID string
}

func (q *Queries) CountEventsByTitle(ctx context.Context, arg CountEventsByTitleParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEventsByTitle, FoldKey(arg.Title), arg.ExcludeID).Scan(&count)
	return count, err
}

const countEventsBySlug = `SELECT COUNT(*) FROM events WHERE lower(slug) = lower(?) AND id <> ?`

type CountEventsBySlugParams struct {
	Slug      string
	ExcludeID string
}

func (q *Queries) CountEventsBySlug(ctx context.Context, arg CountEventsBySlugParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countEventsBySlug, arg.Slug, arg.ExcludeID).Scan(&count)
	return count, err
}

// Event list orderings.
const (
	OrderUpcoming = "upcoming"
	OrderPast     = "past"
	OrderRecent   = "recent"
)

// Event list periods.
const (
	PeriodAll      = ""
	PeriodUpcoming = "upcoming"
	PeriodPast     = "past"
)

// ?1 status, ?2 text, ?3 category slug, ?4 country, ?5 period, ?6 today
const eventFilterWhere = `
WHERE (?1 = '' OR e.status = ?1)
  AND (?2 = '' OR e.title LIKE '%' || ?2 || '%' ESCAPE '\'
       OR e.location LIKE '%' || ?2 || '%' ESCAPE '\'
       OR e.region LIKE '%' || ?2 || '%' ESCAPE '\')
  AND (?3 = '' OR e.id IN (
       SELECT ec.event_id FROM event_categories ec
       JOIN categories c ON c.id = ec.category_id
       WHERE c.slug = ?3))
  AND (?4 = '' OR e.country = ?4)
  AND (?5 = ''
       OR (?5 = 'upcoming' AND e.date_end >= ?6)
       OR (?5 = 'past' AND e.date_end <> '' AND e.date_end < ?6))`

// EventFilter selects events for listing. Empty fields do not filter.
type EventFilter struct {
	Status       string
	Query        string
	CategorySlug string
	Country      string
	Period       string
	Today        string
}

func (f EventFilter) args() []any {
	return []any{f.Status, escapeLike(f.Query), f.CategorySlug, f.Country, f.Period, f.Today}
}

// ListEventsParams is a filtered, ordered page of events.
type ListEventsParams struct {
	EventFilter
	Order  string
	Limit  int64
	Offset int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	var order string
	switch arg.Order {
	case OrderPast:
		order = ` ORDER BY e.date_start DESC, e.time_start DESC, e.title`
	case OrderRecent:
		order = ` ORDER BY e.created_at DESC, e.title`
	default:
		order = ` ORDER BY e.date_start = '', e.date_start, e.time_start, e.title`
	}

	query := `SELECT ` + prefixColumns("e", eventColumns) + ` FROM events e` + eventFilterWhere + order + ` LIMIT ?7 OFFSET ?8`
	rows, err := q.db.QueryContext(ctx, query, append(arg.args(), arg.Limit, arg.Offset)...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) CountEvents(ctx context.Context, arg EventFilter) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+eventFilterWhere, arg.args()...).Scan(&count)
	return count, err
}

const countEventsByStatus = `SELECT status, COUNT(*) FROM events GROUP BY status`

// CountEventsByStatus returns the number of events per status.
func (q *Queries) CountEventsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countEventsByStatus)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

const listEventImageKeys = `SELECT image_key FROM events WHERE image_key <> ''`

func (q *Queries) ListEventImageKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listEventImageKeys)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

const listPublishedEventSlugs = `SELECT slug, updated_at FROM events
WHERE status = 'PUBLISHED' ORDER BY date_start DESC, slug`

// EventSlug is the slug and modification time of a published event.
type EventSlug struct {
	Slug      string
	UpdatedAt time.Time
}

func (q *Queries) ListPublishedEventSlugs(ctx context.Context) ([]EventSlug, error) {
	rows, err := q.db.QueryContext(ctx, listPublishedEventSlugs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []EventSlug
	for rows.Next() {
		var e EventSlug
		if err := rows.Scan(&e.Slug, &e.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CategoryCount is a category with the number of upcoming published events in it.
type CategoryCount struct {
	ID    string
	Name  string
	Slug  string
	Count int64
}

const countPublishedByCategory = `SELECT c.id, c.name, c.slug, COUNT(e.id)
FROM categories c
LEFT JOIN event_categories ec ON ec.category_id = c.id
LEFT JOIN events e ON e.id = ec.event_id AND e.status = 'PUBLISHED' AND e.date_end >= ?
GROUP BY c.id, c.name, c.slug
ORDER BY c.name`

func (q *Queries) CountPublishedByCategory(ctx context.Context, today string) ([]CategoryCount, error) {
	rows, err := q.db.QueryContext(ctx, countPublishedByCategory, today)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// CountryCount is a country code with the number of upcoming published events in it.
type CountryCount struct {
	Country string
	Count   int64
}

const countPublishedByCountry = `SELECT country, COUNT(*) FROM events
WHERE status = 'PUBLISHED' AND country <> '' AND date_end >= ?
GROUP BY country
ORDER BY country`

func (q *Queries) CountPublishedByCountry(ctx context.Context, today string) ([]CountryCount, error) {
	rows, err := q.db.QueryContext(ctx, countPublishedByCountry, today)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CountryCount
	for rows.Next() {
		var c CountryCount
		if err := rows.Scan(&c.Country, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteEventCategories = `DELETE FROM event_categories WHERE event_id = ?`

func (q *Queries) DeleteEventCategories(ctx context.Context, eventID string) error {
	_, err := q.db.ExecContext(ctx, deleteEventCategories, eventID)
	return err
}

const addEventCategory = `INSERT OR IGNORE INTO event_categories (event_id, category_id) VALUES (?, ?)`

type AddEventCategoryParams struct {
	EventID    string
	CategoryID string
}

func (q *Queries) AddEventCategory(ctx context.Context, arg AddEventCategoryParams) error {
	_, err := q.db.ExecContext(ctx, addEventCategory, arg.EventID, arg.CategoryID)
	return err
}

const listCategoriesForEvent = `SELECT c.id, c.name, c.slug, c.created_at, c.updated_at
FROM categories c
JOIN event_categories ec ON ec.category_id = c.id
WHERE ec.event_id = ?
ORDER BY c.name`

func (q *Queries) ListCategoriesForEvent(ctx context.Context, eventID string) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesForEvent, eventID)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// ListCategoriesForEvents returns the categories of each event keyed by event ID.
func (q *Queries) ListCategoriesForEvents(ctx context.Context, eventIDs []string) (map[string][]Category, error) {
	result := make(map[string][]Category, len(eventIDs))
	if len(eventIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(eventIDs)), ",")
	query := `SELECT ec.event_id, c.id, c.name, c.slug, c.created_at, c.updated_at
FROM categories c
JOIN event_categories ec ON ec.category_id = c.id
WHERE ec.event_id IN (` + placeholders + `)
ORDER BY c.name`

	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var eventID string
		var c Category
		if err := rows.Scan(&eventID, &c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result[eventID] = append(result[eventID], c)
	}
	return result, rows.Err()
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
