// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage keeps uploaded event images in object storage: an
// S3-compatible bucket or a local directory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes.
const (
	TmpPrefix    = "tmp/"
	EventsPrefix = "events/"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape
// their prefix.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored object.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage is an object store addressed by slash-separated keys.
type Storage interface {
	// Upload stores r under key, replacing any existing object.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Move renames src to dst.
	Move(ctx context.Context, src, dst string) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns objects whose keys start with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// URL returns the public URL of key.
	URL(key string) string
}

// TmpKey returns a fresh key under tmp/ for an upload named filename.
func TmpKey(filename string) string {
	return TmpPrefix + uuid.NewString() + "/" + path.Base(filename)
}

// EventKey returns the permanent key of an event image. The image id is the
// random directory name the upload was given under tmp/.
func EventKey(eventID, imageID, filename string) string {
	return EventsPrefix + eventID + "/" + imageID + "/" + path.Base(filename)
}

// SplitTmpKey returns the image id and filename of a key made by TmpKey.
func SplitTmpKey(key string) (imageID, filename string, ok bool) {
	rest, found := strings.CutPrefix(key, TmpPrefix)
	if !found {
		return "", "", false
	}
	imageID, filename, found = strings.Cut(rest, "/")
	if !found || imageID == "" || filename == "" || strings.Contains(filename, "/") {
		return "", "", false
	}
	return imageID, filename, true
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
