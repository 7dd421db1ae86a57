package driven

import (
	"context"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// BookmarkStore defines the driven port for bookmark persistence.
type BookmarkStore interface {
	// Insert stores a new bookmark. The ID must be unique.
	Insert(ctx context.Context, b model.Bookmark) error
	// ListByOwner returns all bookmarks for the owner, newest first
	// (created_at descending, id descending on ties).
	ListByOwner(ctx context.Context, ownerID string) ([]model.Bookmark, error)
	// Get retrieves a single bookmark scoped to the owner.
	// Returns nil, nil if it does not exist.
	Get(ctx context.Context, ownerID, id string) (*model.Bookmark, error)
	// Delete removes a bookmark scoped to the owner. Returns an error if the
	// bookmark does not exist.
	Delete(ctx context.Context, ownerID, id string) error
}
