// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FoldKey returns the case-folded form of s that event titles and category
// names are unique on. SQLite's NOCASE only folds ASCII.
func FoldKey(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// backfillFoldKeys recomputes keys left by the SQL migration. Rows whose
// folded key collides with another row keep their old key.
func backfillFoldKeys(ctx context.Context, db *sql.DB) error {
	for _, t := range []struct{ table, source, key string }{
		{"events", "title", "title_key"},
		{"categories", "name", "name_key"},
	} {
		rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT id, %s, %s FROM %s", t.source, t.key, t.table))
		if err != nil {
			return fmt.Errorf("reading %s keys: %w", t.table, err)
		}
		stale := map[string]string{}
		for rows.Next() {
			var id, value, key string
			if err := rows.Scan(&id, &value, &key); err != nil {
				_ = rows.Close()
				return err
			}
			if k := FoldKey(value); k != key {
				stale[id] = k
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}

		update := fmt.Sprintf("UPDATE OR IGNORE %s SET %s = ? WHERE id = ?", t.table, t.key)
		for id, k := range stale {
			if _, err := db.ExecContext(ctx, update, k, id); err != nil {
				return fmt.Errorf("updating %s key: %w", t.table, err)
			}
		}
	}
	return nil
}
