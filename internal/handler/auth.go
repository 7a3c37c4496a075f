// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/petrpacas/spiritevents-sub000/internal/auth"
	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/render"
	"github.com/petrpacas/spiritevents-sub000/internal/session"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

const (
	msgInvalidCredentials = "Invalid email or password."
	msgCredentialsMissing = "Email and password are required."
	msgLoggedOut          = "You have been signed out."
)

// AuthHandler handles operator sign-in.
type AuthHandler struct {
	pages
	queries        *store.Queries
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		pages:          pages{renderer: renderer},
		queries:        store.New(db),
		sessionManager: sm,
	}
}

// LoginForm renders the login page. Signed-in operators go to the admin.
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetPrincipal(r).IsOperator() {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "auth/login", render.TemplateData{Title: "Sign in"})
}

// Login handles the login form submission.
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, routeLogin, msgInvalidForm)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		flashError(w, r, h.renderer, routeLogin, msgCredentialsMissing)
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for non-existent user", "email", email)
		} else {
			slog.Error("database error during login", "error", err)
		}
		flashError(w, r, h.renderer, routeLogin, msgInvalidCredentials)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, routeLogin, msgInvalidCredentials)
		return
	}
	if !valid {
		slog.Warn("login failed", "email", email, "ip", middleware.ClientIP(r))
		flashError(w, r, h.renderer, routeLogin, msgInvalidCredentials)
		return
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				ID:           user.ID,
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	if err := h.queries.UpdateUserLastLogin(r.Context(), store.UpdateUserLastLoginParams{
		ID:          user.ID,
		LastLoginAt: sql.NullTime{Time: time.Now(), Valid: true},
	}); err != nil {
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), session.KeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	flashSuccess(w, r, h.renderer, redirectAdmin, "Welcome back, "+user.Name+".")
}

// Logout ends the operator session.
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}
	slog.Info("user logged out", "user_id", userID)

	flashAndRedirect(w, r, h.renderer, routeLogin, msgLoggedOut, render.FlashInfo)
}
