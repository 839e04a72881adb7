package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// SessionAdapter resolves bearer tokens against the sessions table
type SessionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

// NewSessionAdapter creates a new session-backed identity provider
func NewSessionAdapter(client *postgres.Client) providers.IdentityProvider {
	return &SessionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    time.Now,
	}
}

// Lookup returns the session's user with favorites, or nil for an unknown or expired token
func (a *SessionAdapter) Lookup(ctx context.Context, token string) (*entities.User, error) {
	if token == "" {
		return nil, nil
	}

	query, args, err := a.db.From(goqu.T("sessions").As("s")).Prepared(true).
		Join(goqu.T("users").As("u"), goqu.On(goqu.Ex{"u.id": goqu.I("s.user_id")})).
		Select(goqu.I("u.id"), goqu.I("u.email"), goqu.I("u.role")).
		Where(
			goqu.Ex{"s.token": token},
			goqu.I("s.expires_at").Gt(a.now().UTC()),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, "sessions.lookup", time.Now())
	var user entities.User
	if err := a.client.SQLX().GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.NewInternalError("failed to look up session", err)
	}

	favorites, err := a.favorites(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Favorites = favorites
	return &user, nil
}

func (a *SessionAdapter) favorites(ctx context.Context, userID string) ([]entities.Favorite, error) {
	query, args, err := a.db.From("favorites").Prepared(true).
		Select("entity_type", "entity_id").
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var favorites []entities.Favorite
	if err := a.client.SQLX().SelectContext(ctx, &favorites, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to load favorites", err)
	}
	return favorites, nil
}
