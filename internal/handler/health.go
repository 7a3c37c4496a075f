// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/middleware"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/version"
)

// Health check states.
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// storageProbeKey is checked for existence to reach the image store.
const storageProbeKey = "health/probe"

// HealthHandler handles health check requests.
type HealthHandler struct {
	db        *sql.DB
	storage   storage.Storage
	version   version.Info
	startTime time.Time
}

// NewHealthHandler creates a new health handler. store may be nil when
// image storage is not configured.
func NewHealthHandler(db *sql.DB, store storage.Storage, v version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		storage:   store,
		version:   v,
		startTime: time.Now(),
	}
}

// HealthStatusPublic is the minimal health response for anonymous callers.
type HealthStatusPublic struct {
	Status string `json:"status"`
}

// HealthStatus is the detailed response shown to operators.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	GoVersion string           `json:"go_version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Health handles GET /health. The database is required; unreachable image
// storage only degrades the service.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]Check{"database": h.checkDatabase(ctx)}
	if h.storage != nil {
		checks["storage"] = h.checkStorage(ctx)
	}

	overall := statusHealthy
	code := http.StatusOK
	if checks["database"].Status != statusHealthy {
		overall = statusUnhealthy
		code = http.StatusServiceUnavailable
	} else if c, ok := checks["storage"]; ok && c.Status != statusHealthy {
		overall = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)

	if !middleware.GetPrincipal(r).IsOperator() {
		_ = json.NewEncoder(w).Encode(HealthStatusPublic{Status: overall})
		return
	}

	_ = json.NewEncoder(w).Encode(HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version.String(),
		GoVersion: runtime.Version(),
		Checks:    checks,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return Check{Status: statusUnhealthy, Message: "database unreachable"}
	}
	var one int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return Check{Status: statusUnhealthy, Message: "database query failed"}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkStorage(ctx context.Context) Check {
	start := time.Now()
	if _, err := h.storage.Exists(ctx, storageProbeKey); err != nil {
		return Check{Status: statusUnhealthy, Message: "image storage unreachable"}
	}
	return Check{Status: statusHealthy, Latency: time.Since(start).String()}
}
