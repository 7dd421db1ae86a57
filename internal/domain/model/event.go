package model

// EventKind discriminates change events on the bookmark collection.
type EventKind string

const (
	// EventCreated carries the full new bookmark row.
	EventCreated EventKind = "created"
	// EventDeleted carries only the ID of the removed row. The change feed
	// does not retain deleted row contents, so folds must not rely on any
	// other field being present.
	EventDeleted EventKind = "deleted"
)

// Event is one change notification for an owner's bookmark collection.
type Event struct {
	Kind     EventKind
	OwnerID  string
	Bookmark Bookmark // Populated for EventCreated only.
	ID       string   // Populated for EventDeleted only.
}

// CreatedEvent builds a created event from a full bookmark row.
func CreatedEvent(b Bookmark) Event {
	return Event{Kind: EventCreated, OwnerID: b.OwnerID, Bookmark: b}
}

// DeletedEvent builds a deleted event from the removed row's key.
func DeletedEvent(ownerID, id string) Event {
	return Event{Kind: EventDeleted, OwnerID: ownerID, ID: id}
}
