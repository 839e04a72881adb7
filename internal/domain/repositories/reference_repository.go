package repositories

import (
	"context"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
)

// ReferenceRepository resolves categories and services by name and id
type ReferenceRepository interface {
	// FindIDsByName matches name case-insensitively. Exact matches win; when
	// there are none, substring matches are returned.
	FindIDsByName(ctx context.Context, kind entities.ReferenceKind, name string) ([]string, error)

	// GetNames returns display names keyed by id. Unknown ids are absent.
	GetNames(ctx context.Context, kind entities.ReferenceKind, ids []string) (map[string]string, error)
}
