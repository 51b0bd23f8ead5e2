package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quailpub/internal/apperr"
)

// UpsertPost records a saved post. Saving always clears the stale flag;
// the status and publication time are kept unless p sets them.
func (db *DB) UpsertPost(p PostRow) error {
	if p.Status == "" {
		p.Status = StatusSaved
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := db.conn.Exec(`
		INSERT INTO posts (path, list_id, slug, checksum, status, view_url, stale, published_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			list_id      = excluded.list_id,
			slug         = excluded.slug,
			checksum     = excluded.checksum,
			status       = CASE WHEN posts.status = 'saved' OR excluded.status <> 'saved' THEN excluded.status ELSE posts.status END,
			view_url     = CASE WHEN excluded.view_url <> '' THEN excluded.view_url ELSE posts.view_url END,
			stale        = 0,
			published_at = COALESCE(excluded.published_at, posts.published_at),
			updated_at   = excluded.updated_at
	`, p.Path, p.ListID, p.Slug, p.Checksum, p.Status, p.ViewURL, p.PublishedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ledger: upsert post: %w", err)
	}
	return nil
}

// SetStatus updates the status of a recorded post. Publishing also stamps
// published_at.
func (db *DB) SetStatus(path, status string, at time.Time) error {
	var published any
	if status == StatusPublished {
		published = at
	}
	res, err := db.conn.Exec(`
		UPDATE posts SET status = ?, published_at = COALESCE(?, published_at), updated_at = ?
		WHERE path = ?
	`, status, published, at, path)
	if err != nil {
		return fmt.Errorf("ledger: set status: %w", err)
	}
	return expectRow(res, path)
}

// MarkStale flags a post whose document changed since it was saved.
func (db *DB) MarkStale(path string, stale bool) error {
	res, err := db.conn.Exec(`UPDATE posts SET stale = ? WHERE path = ?`, stale, path)
	if err != nil {
		return fmt.Errorf("ledger: mark stale: %w", err)
	}
	return expectRow(res, path)
}

// GetPost returns the post recorded for path, or apperr.ErrNotFound.
func (db *DB) GetPost(path string) (*PostRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, list_id, slug, checksum, status, view_url, stale, published_at, updated_at
		FROM posts WHERE path = ?`, path)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger: post %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: get post: %w", err)
	}
	return p, nil
}

// ListPosts returns every recorded post ordered by path.
func (db *DB) ListPosts() ([]PostRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, list_id, slug, checksum, status, view_url, stale, published_at, updated_at
		FROM posts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("ledger: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// DeletePost forgets the post recorded for path.
func (db *DB) DeletePost(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM posts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("ledger: delete post: %w", err)
	}
	return nil
}

// AllChecksums returns the saved checksum of every recorded post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("ledger: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*PostRow, error) {
	var (
		p         PostRow
		published sql.NullTime
	)
	if err := s.Scan(&p.Path, &p.ListID, &p.Slug, &p.Checksum, &p.Status, &p.ViewURL, &p.Stale, &published, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if published.Valid {
		t := published.Time
		p.PublishedAt = &t
	}
	return &p, nil
}

func expectRow(res sql.Result, path string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ledger: post %s: %w", path, apperr.ErrNotFound)
	}
	return nil
}
