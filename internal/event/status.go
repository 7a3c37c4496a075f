// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package event holds the lifecycle and identity rules of an event: slugs,
// schedules, status transitions and input validation.
package event

import (
	"fmt"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
)

// Status is the publication state of an event.
type Status string

const (
	StatusSuggested Status = "SUGGESTED"
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusSuggested, StatusDraft, StatusPublished}

// ParseStatus converts a stored or submitted value into a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusSuggested, StatusDraft, StatusPublished:
		return Status(s), true
	}
	return "", false
}

func (s Status) String() string {
	return string(s)
}

// Label is the human readable form shown in the admin.
func (s Status) Label() string {
	switch s {
	case StatusSuggested:
		return "Suggested"
	case StatusDraft:
		return "Draft"
	case StatusPublished:
		return "Published"
	}
	return string(s)
}

// Action triggers a status transition.
type Action string

const (
	ActionSuggest  Action = "suggest"
	ActionCreate   Action = "create"
	ActionEdit     Action = "edit"
	ActionPublish  Action = "publish"
	ActionSetDraft Action = "set-draft"
	ActionDelete   Action = "delete"
)

// Facts are the record properties a transition depends on.
type Facts struct {
	HasDateStart bool
	// ImageAvailable is false only when the event references an image that
	// storage no longer holds.
	ImageAvailable bool
}

// Next returns the status an event in from ends up in after action.
// from is empty for actions that create a record. Delete returns an empty
// status because the record is removed.
func Next(from Status, action Action, facts Facts) (Status, error) {
	switch action {
	case ActionSuggest:
		if from != "" {
			return "", invalid(from, action)
		}
		return StatusSuggested, nil

	case ActionCreate:
		if from != "" {
			return "", invalid(from, action)
		}
		return StatusDraft, nil

	case ActionEdit:
		switch from {
		case StatusSuggested:
			// An operator save always promotes a suggestion to a draft.
			return StatusDraft, nil
		case StatusDraft, StatusPublished:
			return from, nil
		}

	case ActionPublish:
		switch from {
		case StatusDraft, StatusSuggested:
			if !facts.HasDateStart {
				return "", ErrPublishWithoutDate
			}
			if !facts.ImageAvailable {
				return "", ErrImageMissing
			}
			return StatusPublished, nil
		}

	case ActionSetDraft:
		switch from {
		case StatusPublished, StatusSuggested:
			return StatusDraft, nil
		}

	case ActionDelete:
		if _, ok := ParseStatus(string(from)); ok {
			return "", nil
		}
	}

	return "", invalid(from, action)
}

func invalid(from Status, action Action) error {
	if from == "" {
		from = "none"
	}
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
}

// CanView reports whether p may see an event in status s.
func CanView(s Status, p auth.Principal) bool {
	return s == StatusPublished || p.IsOperator()
}
