package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChangeFeed = (*Redis)(nil)

// Redis is a ChangeFeed backed by Redis pub/sub, one channel per owner per
// event kind. It lets multiple linkdeck instances fan changes out to every
// open session regardless of which instance handled the mutation.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis creates a Redis-backed change feed and verifies connectivity.
func NewRedis(ctx context.Context, addr string, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  0, // Blocking pub/sub reads must not time out.
		WriteTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	return &Redis{client: client, logger: logger}, nil
}

// Close releases the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping reports Redis reachability for health checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// createdPayload is the wire form of a created event.
type createdPayload struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// deletedPayload is the wire form of a deleted event. Only the key survives;
// the row contents are gone by the time the event is published.
type deletedPayload struct {
	ID string `json:"id"`
}

func channelName(ownerID string, kind model.EventKind) string {
	return fmt.Sprintf("linkdeck:bookmarks:%s:%s", ownerID, kind)
}

// PublishCreated publishes a full-row created event on the owner's created channel.
func (r *Redis) PublishCreated(ctx context.Context, b model.Bookmark) error {
	data, err := json.Marshal(createdPayload{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Title:     b.Title,
		URL:       b.URL,
		CreatedAt: b.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal created event: %w", err)
	}

	if err := r.client.Publish(ctx, channelName(b.OwnerID, model.EventCreated), data).Err(); err != nil {
		return fmt.Errorf("publish created event: %w", err)
	}

	return nil
}

// PublishDeleted publishes a key-only deleted event on the owner's deleted channel.
func (r *Redis) PublishDeleted(ctx context.Context, ownerID, id string) error {
	data, err := json.Marshal(deletedPayload{ID: id})
	if err != nil {
		return fmt.Errorf("marshal deleted event: %w", err)
	}

	if err := r.client.Publish(ctx, channelName(ownerID, model.EventDeleted), data).Err(); err != nil {
		return fmt.Errorf("publish deleted event: %w", err)
	}

	return nil
}

// SubscribeCreated subscribes to the owner's created channel. Events are
// decoded and handed to the handler on the subscription's own goroutine, in
// receive order.
func (r *Redis) SubscribeCreated(ownerID string, handler func(model.Bookmark)) (driven.Subscription, error) {
	pubsub := r.client.Subscribe(context.Background(), channelName(ownerID, model.EventCreated))

	sub := &redisSub{pubsub: pubsub}
	go func() {
		for msg := range pubsub.Channel() {
			var p createdPayload
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				r.logger.Error("malformed created event", "channel", msg.Channel, "error", err)
				continue
			}
			handler(model.Bookmark{
				ID:        p.ID,
				OwnerID:   p.OwnerID,
				Title:     p.Title,
				URL:       p.URL,
				CreatedAt: p.CreatedAt,
			})
		}
	}()

	return sub, nil
}

// SubscribeDeleted subscribes to the owner's deleted channel.
func (r *Redis) SubscribeDeleted(ownerID string, handler func(id string)) (driven.Subscription, error) {
	pubsub := r.client.Subscribe(context.Background(), channelName(ownerID, model.EventDeleted))

	sub := &redisSub{pubsub: pubsub}
	go func() {
		for msg := range pubsub.Channel() {
			var p deletedPayload
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				r.logger.Error("malformed deleted event", "channel", msg.Channel, "error", err)
				continue
			}
			handler(p.ID)
		}
	}()

	return sub, nil
}

// redisSub wraps a go-redis PubSub as a driven.Subscription.
type redisSub struct {
	pubsub *redis.PubSub
	once   sync.Once
	err    error
}

// Close unsubscribes and stops the delivery goroutine. Safe to call twice.
func (s *redisSub) Close() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
	})
	return s.err
}
