package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// CommandService issues create/delete intents against the bookmark store and
// publishes the resulting change events. It never writes to a snapshot
// directly — synchronizers fold the published events — with one sanctioned
// exception: Delete optimistically removes the row from the issuing session's
// synchronizer, through the same fold primitive, before the store round-trip.
type CommandService struct {
	store  driven.BookmarkStore
	feed   driven.ChangeFeed
	logger *slog.Logger
	now    func() time.Time
}

// NewCommandService creates a CommandService.
func NewCommandService(store driven.BookmarkStore, feed driven.ChangeFeed, logger *slog.Logger) *CommandService {
	return &CommandService{
		store:  store,
		feed:   feed,
		logger: logger,
		now:    time.Now,
	}
}

var (
	errEmptyTitle = errors.New("title must not be empty")
	errEmptyURL   = errors.New("url must not be empty")
)

// Create validates and stores a new bookmark owned by the given identity,
// then publishes the created event. Validation failures return MutationError
// wrapping errEmptyTitle/errEmptyURL so callers can keep the user's input for
// a retry.
func (s *CommandService) Create(ctx context.Context, identity model.Identity, title, url string) (model.Bookmark, error) {
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)

	if title == "" {
		return model.Bookmark{}, &model.MutationError{Op: "create", Err: errEmptyTitle}
	}
	if url == "" {
		return model.Bookmark{}, &model.MutationError{Op: "create", Err: errEmptyURL}
	}
	if identity.ID == "" {
		return model.Bookmark{}, &model.MutationError{Op: "create", Err: model.ErrNotSignedIn}
	}

	now := s.now().UTC()
	b := model.Bookmark{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		OwnerID:   identity.ID,
		Title:     title,
		URL:       url,
		CreatedAt: now,
	}

	if err := s.store.Insert(ctx, b); err != nil {
		return model.Bookmark{}, &model.MutationError{Op: "create", Err: err}
	}

	if err := s.feed.PublishCreated(ctx, b); err != nil {
		// The row is durable; only the notification was lost. Sessions catch
		// up on their next refresh.
		s.logger.Error("publish created event failed", "bookmark", b.ID, "error", err)
	}

	s.logger.Info("bookmark created", "bookmark", b.ID, "owner", b.OwnerID)
	return b, nil
}

// Delete removes the identity's bookmark. The issuing session's synchronizer
// is patched optimistically first; on store failure a corrective refresh
// restores consistency instead of rolling back record by record.
func (s *CommandService) Delete(ctx context.Context, sync *Synchronizer, identity model.Identity, id string) error {
	if identity.ID == "" {
		return &model.MutationError{Op: "delete", Err: model.ErrNotSignedIn}
	}

	if sync != nil {
		sync.ApplyDeleted(id)
	}

	if err := s.store.Delete(ctx, identity.ID, id); err != nil {
		if sync != nil {
			if refreshErr := sync.Refresh(ctx); refreshErr != nil && !errors.Is(refreshErr, model.ErrStaleResult) {
				s.logger.Error("corrective refresh failed", "owner", identity.ID, "error", refreshErr)
			}
		}
		return &model.MutationError{Op: "delete", Err: err}
	}

	if err := s.feed.PublishDeleted(ctx, identity.ID, id); err != nil {
		s.logger.Error("publish deleted event failed", "bookmark", id, "error", err)
	}

	s.logger.Info("bookmark deleted", "bookmark", id, "owner", identity.ID)
	return nil
}
