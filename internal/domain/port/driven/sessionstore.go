package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// SessionStore defines the driven port for server-side session persistence.
type SessionStore interface {
	Put(ctx context.Context, s model.Session) error
	// Get returns nil, nil if the session does not exist.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Delete is idempotent; deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes all sessions expiring before the given time and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
