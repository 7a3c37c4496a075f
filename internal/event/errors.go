// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned for missing records and for records the
	// principal is not allowed to see.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an anonymous principal attempts an
	// operator action.
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPublishWithoutDate = errors.New("an event without a start date cannot be published")
	ErrImageMissing       = errors.New("event image is missing from storage")
)

// Form field names used as ValidationError keys.
const (
	FieldTitle       = "title"
	FieldSlug        = "slug"
	FieldDateStart   = "dateStart"
	FieldDateEnd     = "dateEnd"
	FieldTimeStart   = "timeStart"
	FieldTimeEnd     = "timeEnd"
	FieldLocation    = "location"
	FieldCountry     = "country"
	FieldRegion      = "region"
	FieldLinkWebsite = "linkWebsite"
	FieldLinkTickets = "linkTickets"
	FieldLinkMap     = "linkMap"
	FieldLinkSocial  = "linkSocial"
	FieldDescription = "description"
	FieldCategories  = "categories"
	FieldImage       = "image"
	FieldName        = "name"
	FieldEmail       = "email"
	FieldMessage     = "message"
)

// ValidationError maps form fields to messages.
type ValidationError map[string]string

// Add records msg for field unless the field already has a message.
func (v ValidationError) Add(field, msg string) {
	if _, ok := v[field]; !ok {
		v[field] = msg
	}
}

// Merge copies messages from other that are not already present.
func (v ValidationError) Merge(other ValidationError) {
	for field, msg := range other {
		v.Add(field, msg)
	}
}

// Err returns v as an error, or nil when it is empty.
func (v ValidationError) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidation extracts a ValidationError from err.
func AsValidation(err error) (ValidationError, bool) {
	var v ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
