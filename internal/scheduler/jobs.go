// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrpacas/spiritevents-sub000/internal/geoip"
	"github.com/petrpacas/spiritevents-sub000/internal/storage"
	"github.com/petrpacas/spiritevents-sub000/internal/store"
)

// Job names.
const (
	JobSweepUploads = "sweep-tmp-uploads"
	JobPruneAudit   = "prune-audit-log"
	JobReloadGeoIP  = "reload-geoip"
)

// UploadSweeper deletes images left under the tmp/ prefix by forms that were
// never saved.
type UploadSweeper struct {
	Storage storage.Storage
	MaxAge  time.Duration
	Logger  *slog.Logger
	Now     func() time.Time
}

// Run deletes tmp/ objects older than MaxAge and reports how many were removed.
func (s *UploadSweeper) Run(ctx context.Context) (int, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().Add(-s.MaxAge)

	objects, err := s.Storage.List(ctx, storage.TmpPrefix)
	if err != nil {
		return 0, fmt.Errorf("listing tmp uploads: %w", err)
	}

	removed := 0
	for _, obj := range objects {
		if !obj.ModTime.Before(cutoff) {
			continue
		}
		if err := s.Storage.Delete(ctx, obj.Key); err != nil {
			s.Logger.Warn("failed to delete stale upload", "key", obj.Key, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.Logger.Info("swept stale uploads", "removed", removed)
	}
	return removed, nil
}

// Job adapts Run to a JobFunc.
func (s *UploadSweeper) Job() JobFunc {
	return func(ctx context.Context) error {
		_, err := s.Run(ctx)
		return err
	}
}

// AuditPruner removes audit log entries older than Retention.
type AuditPruner struct {
	Queries   *store.Queries
	Retention time.Duration
	Logger    *slog.Logger
}

// Job returns the pruning JobFunc.
func (p *AuditPruner) Job() JobFunc {
	return func(ctx context.Context) error {
		n, err := p.Queries.DeleteAuditEntriesBefore(ctx, time.Now().UTC().Add(-p.Retention))
		if err != nil {
			return fmt.Errorf("pruning audit log: %w", err)
		}
		if n > 0 {
			p.Logger.Info("pruned audit log", "removed", n)
		}
		return nil
	}
}

// GeoIPReloader picks up a replaced GeoIP database file.
func GeoIPReloader(l *geoip.Locator) JobFunc {
	return func(context.Context) error {
		if err := l.Reload(); err != nil {
			return fmt.Errorf("reloading geoip database: %w", err)
		}
		return nil
	}
}
