package driven

import (
	"context"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// AuthProvider defines the driven port for the external OAuth provider.
type AuthProvider interface {
	// AuthCodeURL returns the provider's authorize URL carrying the given
	// anti-forgery state value.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the authenticated identity.
	Exchange(ctx context.Context, code string) (model.Identity, error)
}
