// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/cache"
	"github.com/petrpacas/spiritevents-sub000/internal/event"
	"github.com/petrpacas/spiritevents-sub000/internal/imaging"
	"github.com/petrpacas/spiritevents-sub000/internal/notify"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Warnings reported when an image step fails.
const (
	WarnImageUpload       = "The image could not be uploaded. The event was saved without it."
	WarnImageMove         = "The image could not be stored. The event was saved without it."
	WarnImageRecord       = "The image was stored but could not be attached to the event."
	WarnImageDelete       = "The previous image could not be removed from storage."
	WarnImageDetach       = "The image could not be removed from the event."
	WarnEventImageDelete  = "The event image could not be removed from storage."
	WarnImageCheck        = "The event image could not be checked in storage."
	WarnStorageDisabled   = "Image storage is not configured. The event was saved without an image."
	msgPublishedNeedsDate = "A published event needs a start date"
)

// Upload is an image file submitted with an event form.
type Upload struct {
	Filename string
	Reader   io.Reader
}

// EventForm is a submitted event form.
type EventForm struct {
	event.Input
	Image *Upload
	// RemoveImage detaches the current image when no new one is uploaded.
	RemoveImage bool
}

// EventResult is a written event and the warnings of its collaborator steps.
type EventResult struct {
	Event store.Event
	Result
}

// EventView is an event with its categories.
type EventView struct {
	store.Event
	Categories []store.Category
}

// Schedule returns the dates and times of the event.
func (v EventView) Schedule() event.Schedule {
	return event.Schedule{
		DateStart: v.DateStart,
		DateEnd:   v.DateEnd,
		TimeStart: v.TimeStart,
		TimeEnd:   v.TimeEnd,
	}
}

// CategoryIDs returns the ids of the event categories.
func (v EventView) CategoryIDs() []string {
	ids := make([]string, len(v.Categories))
	for i, c := range v.Categories {
		ids[i] = c.ID
	}
	return ids
}

// Input returns the stored values as a form input for editing.
func (v EventView) Input() event.Input {
	return event.Input{
		Title:        v.Title,
		Slug:         v.Slug,
		SlugModified: event.NewSlugEditor(v.Title, v.Slug).ManuallyModified,
		Schedule:     v.Schedule(),
		Location:     v.Location,
		Country:      v.Country,
		Region:       v.Region,
		LinkWebsite:  v.LinkWebsite,
		LinkTickets:  v.LinkTickets,
		LinkMap:      v.LinkMap,
		LinkSocial:   v.LinkSocial,
		Description:  v.Description,
		CategoryIDs:  v.CategoryIDs(),
	}
}

// EventServiceOptions holds the collaborators of an EventService.
type EventServiceOptions struct {
	Storage  storage.Storage
	Images   *imaging.Processor
	Notifier notify.Notifier
	Cache    cache.Cache
	Logger   *slog.Logger
	// BaseURL is used for links in notifications.
	BaseURL  string
	CacheTTL time.Duration
}

// EventService implements the event lifecycle.
type EventService struct {
	db       *sql.DB
	queries  *store.Queries
	unique   *Uniqueness
	storage  storage.Storage
	images   *imaging.Processor
	notifier notify.Notifier
	cache    cache.Cache
	logger   *slog.Logger
	baseURL  string
	cacheTTL time.Duration
	now      func() time.Time
}

// NewEventService creates an EventService. Missing collaborators default
// to an in-memory cache, a no-op notifier and no image storage.
func NewEventService(db *sql.DB, opts EventServiceOptions) *EventService {
	queries := store.New(db)
	s := &EventService{
		db:       db,
		queries:  queries,
		unique:   NewUniqueness(queries),
		storage:  opts.Storage,
		images:   opts.Images,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		logger:   opts.Logger,
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		cacheTTL: opts.CacheTTL,
		now:      time.Now,
	}
	if s.images == nil {
		s.images = imaging.NewProcessor()
	}
	if s.notifier == nil {
		s.notifier = notify.Noop{}
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache(cache.MemoryCacheOptions{})
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 5 * time.Minute
	}
	return s
}

// Uniqueness returns the checker used by the service.
func (s *EventService) Uniqueness() *Uniqueness {
	return s.unique
}

// Suggest stores a public suggestion. Anyone may suggest; the slug is
// always derived from the title. Operators are notified.
func (s *EventService) Suggest(ctx context.Context, p auth.Principal, form EventForm) (EventResult, error) {
	status, err := event.Next("", event.ActionSuggest, event.Facts{})
	if err != nil {
		return EventResult{}, err
	}

	form.Slug = ""
	form.SlugModified = false

	res, err := s.insert(ctx, p, form, status)
	if err != nil {
		return EventResult{}, err
	}

	text := res.Event.Title
	if r := eventSchedule(res.Event).Range(); r != "" {
		text += " (" + r + ")"
	}
	s.notifier.Notify(ctx, notify.Message{
		Kind:  notify.KindSuggestion,
		Title: "New event suggestion",
		Text:  text,
		URL:   s.baseURL + "/admin/events/" + res.Event.ID + "/edit",
	})
	return res, nil
}

// Create stores a new draft event.
func (s *EventService) Create(ctx context.Context, p auth.Principal, form EventForm) (EventResult, error) {
	if err := requireOperator(p); err != nil {
		return EventResult{}, err
	}
	status, err := event.Next("", event.ActionCreate, event.Facts{})
	if err != nil {
		return EventResult{}, err
	}
	return s.insert(ctx, p, form, status)
}

func (s *EventService) insert(ctx context.Context, p auth.Principal, form EventForm, status event.Status) (EventResult, error) {
	in := form.Input
	in.Normalize()

	img, errs, err := s.validate(ctx, in, form.Image, nil, status)
	if err != nil {
		return EventResult{}, err
	}
	if err := errs.Err(); err != nil {
		return EventResult{}, err
	}

	var res EventResult
	tmpKey := s.uploadTmp(ctx, &res, img)

	now := s.now()
	params := store.CreateEventParams{
		ID:          uuid.NewString(),
		Slug:        in.Slug,
		Title:       in.Title,
		DateStart:   in.DateStart,
		DateEnd:     in.DateEnd,
		TimeStart:   in.TimeStart,
		TimeEnd:     in.TimeEnd,
		Location:    in.Location,
		Country:     in.Country,
		Region:      in.Region,
		LinkWebsite: in.LinkWebsite,
		LinkTickets: in.LinkTickets,
		LinkMap:     in.LinkMap,
		LinkSocial:  in.LinkSocial,
		Description: in.Description,
		Status:      string(status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.IsOperator() {
		params.CreatedBy = sql.NullInt64{Int64: p.UserID, Valid: true}
	}

	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		created, err := q.CreateEvent(ctx, params)
		if err != nil {
			return err
		}
		res.Event = created
		return setEventCategories(ctx, q, created.ID, in.CategoryIDs)
	})
	if err != nil {
		if verr, ok := uniqueViolationError(err); ok {
			return EventResult{}, verr
		}
		return EventResult{}, fmt.Errorf("creating event: %w", err)
	}

	if tmpKey != "" {
		s.attachImage(ctx, &res, tmpKey, img)
	}
	s.invalidateFacets(ctx)

	s.logger.Info("event created", "event_id", res.Event.ID, "status", res.Event.Status, "user_id", p.UserID)
	return res, nil
}

// Update saves an operator edit. A suggestion is promoted to a draft by
// every save, whether or not any field changed.
func (s *EventService) Update(ctx context.Context, p auth.Principal, id string, form EventForm) (EventResult, error) {
	if err := requireOperator(p); err != nil {
		return EventResult{}, err
	}

	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return EventResult{}, notFound(err)
	}

	status, err := event.Next(event.Status(current.Status), event.ActionEdit, event.Facts{})
	if err != nil {
		return EventResult{}, err
	}

	in := form.Input
	in.Normalize()

	img, errs, err := s.validate(ctx, in, form.Image, &current, status)
	if err != nil {
		return EventResult{}, err
	}
	if err := errs.Err(); err != nil {
		return EventResult{}, err
	}

	var res EventResult
	tmpKey := s.uploadTmp(ctx, &res, img)

	err = store.InTx(ctx, s.db, func(q *store.Queries) error {
		updated, err := q.UpdateEvent(ctx, store.UpdateEventParams{
			ID:          current.ID,
			Slug:        in.Slug,
			Title:       in.Title,
			DateStart:   in.DateStart,
			DateEnd:     in.DateEnd,
			TimeStart:   in.TimeStart,
			TimeEnd:     in.TimeEnd,
			Location:    in.Location,
			Country:     in.Country,
			Region:      in.Region,
			LinkWebsite: in.LinkWebsite,
			LinkTickets: in.LinkTickets,
			LinkMap:     in.LinkMap,
			LinkSocial:  in.LinkSocial,
			Description: in.Description,
			Status:      string(status),
			UpdatedAt:   s.now(),
		})
		if err != nil {
			return err
		}
		res.Event = updated
		if err := q.DeleteEventCategories(ctx, current.ID); err != nil {
			return err
		}
		return setEventCategories(ctx, q, current.ID, in.CategoryIDs)
	})
	if err != nil {
		if verr, ok := uniqueViolationError(err); ok {
			return EventResult{}, verr
		}
		return EventResult{}, fmt.Errorf("updating event: %w", err)
	}

	oldKey := current.ImageKey
	switch {
	case tmpKey != "":
		if s.attachImage(ctx, &res, tmpKey, img) && oldKey != "" && oldKey != res.Event.ImageKey {
			s.deleteImage(ctx, &res.Result, oldKey, WarnImageDelete)
		}
	case form.RemoveImage && oldKey != "":
		if err := s.queries.UpdateEventImage(ctx, store.UpdateEventImageParams{ID: current.ID, UpdatedAt: s.now()}); err != nil {
			res.warn(s.logger, WarnImageDetach, err, "event_id", current.ID)
			break
		}
		res.Event.ImageKey, res.Event.ImageID, res.Event.ImageBlurhash = "", "", ""
		s.deleteImage(ctx, &res.Result, oldKey, WarnImageDelete)
	}
	s.invalidateFacets(ctx)

	if current.Status != res.Event.Status {
		s.logger.Info("event status changed", "event_id", id, "from", current.Status, "to", res.Event.Status, "user_id", p.UserID)
	}
	return res, nil
}

// validate checks a normalized input against the field rules, the store
// and the uploaded image. A non-nil error is a store failure.
func (s *EventService) validate(ctx context.Context, in event.Input, upload *Upload, original *store.Event, status event.Status) (*imaging.Result, event.ValidationError, error) {
	errs := in.Validate()

	if status == event.StatusPublished && in.DateStart == "" {
		errs.Add(event.FieldDateStart, msgPublishedNeedsDate)
	}

	if err := s.unique.CheckEvent(ctx, errs, in, original); err != nil {
		return nil, nil, fmt.Errorf("checking uniqueness: %w", err)
	}

	for _, id := range in.CategoryIDs {
		if _, err := s.queries.GetCategoryByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				errs.Add(event.FieldCategories, "Unknown category")
				break
			}
			return nil, nil, fmt.Errorf("loading category: %w", err)
		}
	}

	var img *imaging.Result
	if upload != nil && upload.Reader != nil {
		var err error
		img, err = s.images.Process(upload.Reader, upload.Filename)
		switch {
		case errors.Is(err, imaging.ErrUnsupportedFormat):
			errs.Add(event.FieldImage, "Image must be a JPEG, PNG, GIF or WebP file")
		case err != nil:
			s.logger.Info("image rejected", "filename", upload.Filename, "error", err)
			errs.Add(event.FieldImage, "Image could not be read")
		}
	}

	return img, errs, nil
}

// uploadTmp stores a processed image under tmp/ and returns its key, or ""
// when there is nothing to store or the upload failed.
func (s *EventService) uploadTmp(ctx context.Context, res *EventResult, img *imaging.Result) string {
	if img == nil {
		return ""
	}
	if s.storage == nil {
		res.Warnings = append(res.Warnings, WarnStorageDisabled)
		return ""
	}
	key := storage.TmpKey(img.Filename)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(img.Data), img.MimeType); err != nil {
		res.warn(s.logger, WarnImageUpload, err, "key", key)
		return ""
	}
	return key
}

// attachImage moves an uploaded image to its permanent key and records it
// on the event. It reports whether the image is attached.
func (s *EventService) attachImage(ctx context.Context, res *EventResult, tmpKey string, img *imaging.Result) bool {
	imageID, filename, ok := storage.SplitTmpKey(tmpKey)
	if !ok {
		res.warn(s.logger, WarnImageMove, storage.ErrInvalidKey, "key", tmpKey)
		return false
	}

	key := storage.EventKey(res.Event.ID, imageID, filename)
	if err := s.storage.Move(ctx, tmpKey, key); err != nil {
		res.warn(s.logger, WarnImageMove, err, "event_id", res.Event.ID, "key", tmpKey)
		return false
	}

	err := s.queries.UpdateEventImage(ctx, store.UpdateEventImageParams{
		ID:            res.Event.ID,
		ImageKey:      key,
		ImageID:       imageID,
		ImageBlurhash: img.BlurHash,
		UpdatedAt:     s.now(),
	})
	if err != nil {
		res.warn(s.logger, WarnImageRecord, err, "event_id", res.Event.ID, "key", key)
		return false
	}

	res.Event.ImageKey = key
	res.Event.ImageID = imageID
	res.Event.ImageBlurhash = img.BlurHash
	return true
}

func (s *EventService) deleteImage(ctx context.Context, res *Result, key, warning string) {
	if s.storage == nil || key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		res.warn(s.logger, warning, err, "key", key)
	}
}

// Publish makes an event public. The event needs a start date, and an
// image it references must still be in storage.
func (s *EventService) Publish(ctx context.Context, p auth.Principal, id string) (EventResult, error) {
	if err := requireOperator(p); err != nil {
		return EventResult{}, err
	}
	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return EventResult{}, notFound(err)
	}

	var res EventResult
	facts := event.Facts{HasDateStart: current.DateStart != "", ImageAvailable: true}
	if current.ImageKey != "" && s.storage != nil {
		exists, err := s.storage.Exists(ctx, current.ImageKey)
		switch {
		case err != nil:
			res.warn(s.logger, WarnImageCheck, err, "event_id", id, "key", current.ImageKey)
		case !exists:
			facts.ImageAvailable = false
		}
	}

	status, err := event.Next(event.Status(current.Status), event.ActionPublish, facts)
	if err != nil {
		return EventResult{}, err
	}
	return s.setStatus(ctx, p, res, current, status)
}

// SetDraft takes an event out of public view.
func (s *EventService) SetDraft(ctx context.Context, p auth.Principal, id string) (EventResult, error) {
	if err := requireOperator(p); err != nil {
		return EventResult{}, err
	}
	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return EventResult{}, notFound(err)
	}

	status, err := event.Next(event.Status(current.Status), event.ActionSetDraft, event.Facts{})
	if err != nil {
		return EventResult{}, err
	}
	return s.setStatus(ctx, p, EventResult{}, current, status)
}

func (s *EventService) setStatus(ctx context.Context, p auth.Principal, res EventResult, current store.Event, status event.Status) (EventResult, error) {
	updated, err := s.queries.UpdateEventStatus(ctx, store.UpdateEventStatusParams{
		ID:        current.ID,
		Status:    string(status),
		UpdatedAt: s.now(),
	})
	if err != nil {
		return EventResult{}, fmt.Errorf("updating event status: %w", notFound(err))
	}
	res.Event = updated
	s.invalidateFacets(ctx)

	s.logger.Info("event status changed", "event_id", current.ID, "from", current.Status, "to", updated.Status, "user_id", p.UserID)
	return res, nil
}

// Delete removes an event and, best effort, its image.
func (s *EventService) Delete(ctx context.Context, p auth.Principal, id string) (EventResult, error) {
	if err := requireOperator(p); err != nil {
		return EventResult{}, err
	}
	current, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return EventResult{}, notFound(err)
	}
	if _, err := event.Next(event.Status(current.Status), event.ActionDelete, event.Facts{}); err != nil {
		return EventResult{}, err
	}

	if err := s.queries.DeleteEvent(ctx, id); err != nil {
		return EventResult{}, fmt.Errorf("deleting event: %w", err)
	}

	res := EventResult{Event: current}
	s.deleteImage(ctx, &res.Result, current.ImageKey, WarnEventImageDelete)
	s.invalidateFacets(ctx)

	s.logger.Info("event deleted", "event_id", id, "title", current.Title, "user_id", p.UserID)
	return res, nil
}

// GetBySlug returns the event with slug. Events p may not see are reported
// as event.ErrNotFound, exactly like missing ones.
func (s *EventService) GetBySlug(ctx context.Context, p auth.Principal, slug string) (EventView, error) {
	e, err := s.queries.GetEventBySlug(ctx, slug)
	if err != nil {
		return EventView{}, notFound(err)
	}
	if !event.CanView(event.Status(e.Status), p) {
		return EventView{}, event.ErrNotFound
	}
	return s.view(ctx, e)
}

// GetByID returns any event for an operator.
func (s *EventService) GetByID(ctx context.Context, p auth.Principal, id string) (EventView, error) {
	if err := requireOperator(p); err != nil {
		return EventView{}, err
	}
	e, err := s.queries.GetEventByID(ctx, id)
	if err != nil {
		return EventView{}, notFound(err)
	}
	return s.view(ctx, e)
}

func (s *EventService) view(ctx context.Context, e store.Event) (EventView, error) {
	cats, err := s.queries.ListCategoriesForEvent(ctx, e.ID)
	if err != nil {
		return EventView{}, fmt.Errorf("loading event categories: %w", err)
	}
	return EventView{Event: e, Categories: cats}, nil
}

// StatusCounts returns the number of events per status for an operator.
func (s *EventService) StatusCounts(ctx context.Context, p auth.Principal) (map[string]int64, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	return s.queries.CountEventsByStatus(ctx)
}

func setEventCategories(ctx context.Context, q *store.Queries, eventID string, categoryIDs []string) error {
	for _, id := range categoryIDs {
		if err := q.AddEventCategory(ctx, store.AddEventCategoryParams{EventID: eventID, CategoryID: id}); err != nil {
			return err
		}
	}
	return nil
}

func eventSchedule(e store.Event) event.Schedule {
	return EventView{Event: e}.Schedule()
}
