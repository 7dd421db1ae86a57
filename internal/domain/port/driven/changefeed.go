package driven

import (
	"context"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// Subscription is a handle to an active change-feed subscription.
// Close stops delivery; it is safe to call more than once.
type Subscription interface {
	Close() error
}

// ChangeFeed defines the driven port for bookmark change notifications.
// Created and deleted events are independently subscribable: deleted events
// carry only the removed row's key, so a consumer that needs to distinguish
// them cannot rely on a single wildcard subscription.
//
// Delivery guarantees: events published for one owner are delivered to each
// subscriber in publish order. Delivery is asynchronous with respect to
// Publish; handlers must not assume they run on the publisher's goroutine.
type ChangeFeed interface {
	PublishCreated(ctx context.Context, b model.Bookmark) error
	PublishDeleted(ctx context.Context, ownerID, id string) error
	// SubscribeCreated delivers full-row created events for one owner.
	SubscribeCreated(ownerID string, handler func(model.Bookmark)) (Subscription, error)
	// SubscribeDeleted delivers the removed row's ID for one owner.
	SubscribeDeleted(ownerID string, handler func(id string)) (Subscription, error)
}
