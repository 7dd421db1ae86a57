package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BookmarkStore = (*BookmarkRepo)(nil)

// BookmarkRepo is the SQLite implementation of the BookmarkStore port interface.
type BookmarkRepo struct {
	db *DB
}

// NewBookmarkRepo creates a new BookmarkRepo backed by the given DB.
func NewBookmarkRepo(db *DB) *BookmarkRepo {
	return &BookmarkRepo{db: db}
}

// Insert stores a new bookmark. Inserting an existing ID is an error; IDs are
// ULIDs assigned once at creation and never reused.
func (r *BookmarkRepo) Insert(ctx context.Context, b model.Bookmark) error {
	const query = `
		INSERT INTO bookmarks (id, owner_id, title, url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		b.ID, b.OwnerID, b.Title, b.URL, b.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert bookmark %s: %w", b.ID, err)
	}

	return nil
}

// ListByOwner returns all bookmarks for the given owner, newest first.
// Ties on created_at are broken by id descending so the order is stable.
func (r *BookmarkRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Bookmark, error) {
	const query = `
		SELECT id, owner_id, title, url, created_at
		FROM bookmarks
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []model.Bookmark
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

// Get retrieves a single bookmark scoped to the owner.
// Returns nil, nil if the bookmark does not exist.
func (r *BookmarkRepo) Get(ctx context.Context, ownerID, id string) (*model.Bookmark, error) {
	const query = `
		SELECT id, owner_id, title, url, created_at
		FROM bookmarks
		WHERE owner_id = ? AND id = ?
	`

	b, err := scanBookmark(r.db.Reader.QueryRowContext(ctx, query, ownerID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmark %s: %w", id, err)
	}

	return b, nil
}

// Delete removes a bookmark scoped to the owner. Returns an error if the
// bookmark does not exist, so callers can distinguish no-op deletes.
func (r *BookmarkRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM bookmarks WHERE owner_id = ? AND id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete bookmark %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("bookmark %s not found", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(s scanner) (*model.Bookmark, error) {
	var b model.Bookmark
	var createdAt string

	if err := s.Scan(&b.ID, &b.OwnerID, &b.Title, &b.URL, &createdAt); err != nil {
		return nil, err
	}

	var err error
	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &b, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized datetime format %q", s)
}
