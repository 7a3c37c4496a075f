// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const categoryColumns = `id, name, slug, created_at, updated_at`

func scanCategories(rows *sql.Rows) ([]Category, error) {
	defer func() { _ = rows.Close() }()

	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createCategory = `INSERT INTO categories (id, name, slug, created_at, updated_at, name_key)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + categoryColumns

type CreateCategoryParams struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, createCategory, arg.ID, arg.Name, arg.Slug, arg.CreatedAt, arg.UpdatedAt, FoldKey(arg.Name)).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCategoryByID = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

func (q *Queries) GetCategoryByID(ctx context.Context, id string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategoryByID, id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const getCategoryBySlug = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ?`

func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategoryBySlug, slug).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY name`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

const updateCategory = `UPDATE categories SET name = ?, slug = ?, updated_at = ?, name_key = ? WHERE id = ?
RETURNING ` + categoryColumns

type UpdateCategoryParams struct {
	ID        string
	Name      string
	Slug      string
	UpdatedAt time.Time
}

func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, updateCategory, arg.Name, arg.Slug, arg.UpdatedAt, FoldKey(arg.Name), arg.ID).
		Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const countCategoriesByName = `SELECT COUNT(*) FROM categories WHERE name_key = ? AND id <> ?`

type CountCategoriesByNameParams struct {
	Name      string
	ExcludeID string
}

func (q *Queries) CountCategoriesByName(ctx context.Context, arg CountCategoriesByNameParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCategoriesByName, FoldKey(arg.Name), arg.ExcludeID).Scan(&count)
	return count, err
}

const countCategoriesBySlug = `SELECT COUNT(*) FROM categories WHERE lower(slug) = lower(?) AND id <> ?`

type CountCategoriesBySlugParams struct {
	Slug      string
	ExcludeID string
}

func (q *Queries) CountCategoriesBySlug(ctx context.Context, arg CountCategoriesBySlugParams) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCategoriesBySlug, arg.Slug, arg.ExcludeID).Scan(&count)
	return count, err
}

const countCategoryEvents = `SELECT COUNT(*) FROM event_categories WHERE category_id = ?`

func (q *Queries) CountCategoryEvents(ctx context.Context, categoryID string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCategoryEvents, categoryID).Scan(&count)
	return count, err
}
