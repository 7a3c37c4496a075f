// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// CSRF protection, security headers and rate limiting.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/session"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyPrincipal holds the auth.Principal of the request.
const ContextKeyPrincipal ContextKey = "principal"

// LoadPrincipal resolves the session user into an auth.Principal and stores
// it in the request context. Requests without a valid session continue as
// anonymous; a session pointing to a deleted user is destroyed.
func LoadPrincipal(sm *scs.SessionManager, queries *store.Queries) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), session.KeyUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetUserByID(r.Context(), userID)
			if err != nil {
				slog.Warn("session user not found, clearing session", "user_id", userID, "error", err)
				_ = sm.Destroy(r.Context())
				next.ServeHTTP(w, r)
				return
			}

			p := auth.Operator(user.ID, user.Email, user.Name)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireOperator redirects anonymous visitors to the login page.
func RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetPrincipal(r).IsOperator() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// GetPrincipal returns the request principal, or auth.Anonymous.
func GetPrincipal(r *http.Request) auth.Principal {
	p, ok := r.Context().Value(ContextKeyPrincipal).(auth.Principal)
	if !ok {
		return auth.Anonymous
	}
	return p
}
