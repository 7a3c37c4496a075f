// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"strings"
	"time"
)

// Layouts of stored dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Schedule holds the optional dates and clock times of an event.
// Empty strings mean absent.
type Schedule struct {
	DateStart string
	DateEnd   string
	TimeStart string
	TimeEnd   string
}

// SingleDay reports whether the dates are equal or both absent.
func (s Schedule) SingleDay() bool {
	return s.DateStart == s.DateEnd
}

// Reconcile fills and clears paired fields before validation:
//   - a lone start date is copied to the end date and vice versa;
//   - a start time without an end time is left as is;
//   - an end time is cleared when there is no start time or the event spans
//     several dates.
func Reconcile(s Schedule) Schedule {
	s.DateStart = strings.TrimSpace(s.DateStart)
	s.DateEnd = strings.TrimSpace(s.DateEnd)
	s.TimeStart = strings.TrimSpace(s.TimeStart)
	s.TimeEnd = strings.TrimSpace(s.TimeEnd)

	if s.DateStart != "" && s.DateEnd == "" {
		s.DateEnd = s.DateStart
	}
	if s.DateEnd != "" && s.DateStart == "" {
		s.DateStart = s.DateEnd
	}

	if s.TimeEnd != "" && (s.TimeStart == "" || !s.SingleDay()) {
		s.TimeEnd = ""
	}
	return s
}

// Validate checks a reconciled schedule.
func (s Schedule) Validate() ValidationError {
	errs := ValidationError{}

	start, startOK := parseField(errs, FieldDateStart, s.DateStart, DateLayout, "Invalid date")
	end, endOK := parseField(errs, FieldDateEnd, s.DateEnd, DateLayout, "Invalid date")
	if startOK && endOK && end.Before(start) {
		errs.Add(FieldDateEnd, "End date cannot be earlier than start date")
	}

	tStart, tStartOK := parseField(errs, FieldTimeStart, s.TimeStart, TimeLayout, "Invalid time")
	tEnd, tEndOK := parseField(errs, FieldTimeEnd, s.TimeEnd, TimeLayout, "Invalid time")
	if tStartOK && tEndOK && s.SingleDay() && tEnd.Before(tStart) {
		errs.Add(FieldTimeEnd, "End time cannot be earlier than start time")
	}

	return errs
}

// parseField reports ok only for a present, well-formed value.
func parseField(errs ValidationError, field, value, layout, msg string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		errs.Add(field, msg)
		return time.Time{}, false
	}
	return t, true
}

// Start returns the parsed start date.
func (s Schedule) Start() (time.Time, bool) {
	if s.DateStart == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, s.DateStart)
	return t, err == nil
}

// Range formats the dates for display, e.g. "1 Jun 2030" or "1 – 3 Jun 2030".
func (s Schedule) Range() string {
	start, ok := s.Start()
	if !ok {
		return ""
	}
	end, err := time.Parse(DateLayout, s.DateEnd)
	if err != nil || !end.After(start) {
		return start.Format("2 Jan 2006")
	}
	switch {
	case start.Year() != end.Year():
		return start.Format("2 Jan 2006") + " – " + end.Format("2 Jan 2006")
	case start.Month() != end.Month():
		return start.Format("2 Jan") + " – " + end.Format("2 Jan 2006")
	default:
		return start.Format("2") + " – " + end.Format("2 Jan 2006")
	}
}

// Hours formats the clock times for display.
func (s Schedule) Hours() string {
	switch {
	case s.TimeStart != "" && s.TimeEnd != "":
		return s.TimeStart + " – " + s.TimeEnd
	default:
		return s.TimeStart
	}
}
