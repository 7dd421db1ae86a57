package model

import "time"

// Bookmark is a single saved link owned by one identity.
type Bookmark struct {
	ID        string // ULID, assigned at creation, immutable.
	OwnerID   string // Identity.ID of the creator, never reassigned.
	Title     string
	URL       string
	CreatedAt time.Time // Server-assigned, immutable, sole sort key.
}

// Before reports whether b sorts after other in a newest-first snapshot,
// i.e. b is strictly older. Ties on CreatedAt are broken by ID descending;
// ULIDs are time-ordered so the ordering is stable.
func (b Bookmark) Before(other Bookmark) bool {
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.Before(other.CreatedAt)
	}
	return b.ID < other.ID
}
