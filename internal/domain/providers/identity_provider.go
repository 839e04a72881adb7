package providers

import (
	"context"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// IdentityProvider resolves a session token to a user.
// An unknown or expired token yields (nil, nil).
type IdentityProvider interface {
	Lookup(ctx context.Context, token string) (*entities.User, error)
}
