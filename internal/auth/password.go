// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth handles operator credentials and the acting principal
// passed to event operations.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are the Argon2id cost parameters of a hash.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

// Operator passwords use OWASP's second Argon2id profile (m=19456, t=2, p=1).
var currentParams = argonParams{memory: 19 * 1024, time: 2, threads: 1}

const (
	saltLen = 16
	keyLen  = 32
)

// ErrMalformedHash is returned for stored hashes that cannot be parsed.
var ErrMalformedHash = errors.New("malformed password hash")

// passwordHash is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type passwordHash struct {
	params argonParams
	salt   []byte
	key    []byte
}

func (h passwordHash) String() string {
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.memory, h.params.time, h.params.threads,
		enc.EncodeToString(h.salt), enc.EncodeToString(h.key))
}

func parseHash(encoded string) (passwordHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return passwordHash{}, ErrMalformedHash
	}
	if parts[1] != "argon2id" {
		return passwordHash{}, fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedHash, parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return passwordHash{}, fmt.Errorf("%w: version %q", ErrMalformedHash, parts[2])
	}

	var h passwordHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.params.memory, &h.params.time, &h.params.threads); err != nil {
		return passwordHash{}, fmt.Errorf("%w: parameters: %v", ErrMalformedHash, err)
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return passwordHash{}, fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return passwordHash{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}

func derive(password string, salt []byte, p argonParams, n uint32) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, n)
}

// HashPassword hashes an operator password with the current parameters.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	h := passwordHash{
		params: currentParams,
		salt:   salt,
		key:    derive(password, salt, currentParams, keyLen),
	}
	return h.String(), nil
}

// CheckPassword reports whether password matches encoded. Hashes made
// with older parameters still verify.
func CheckPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := derive(password, h.salt, h.params, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(got, h.key) == 1, nil
}

// NeedsRehash reports whether encoded should be replaced by a fresh hash
// on the next successful login.
func NeedsRehash(encoded string) bool {
	h, err := parseHash(encoded)
	return err != nil || h.params != currentParams || len(h.key) != keyLen
}
