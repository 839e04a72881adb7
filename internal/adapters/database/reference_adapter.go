package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// ReferenceAdapter implements the ReferenceRepository interface over the
// categories and services tables
type ReferenceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReferenceAdapter creates a new reference adapter
func NewReferenceAdapter(client *postgres.Client) repositories.ReferenceRepository {
	return &ReferenceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type referenceRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// scope returns the table and base conditions for a reference kind
func (a *ReferenceAdapter) scope(kind entities.ReferenceKind) (*goqu.SelectDataset, error) {
	categories := a.db.From("categories").Prepared(true)
	switch kind {
	case entities.ReferenceBusinessCategory:
		return categories.Where(goqu.Ex{"scope": "business"}, goqu.C("parent_id").IsNull()), nil
	case entities.ReferenceSaleCategory:
		return categories.Where(goqu.Ex{"scope": "sale"}, goqu.C("parent_id").IsNull()), nil
	case entities.ReferenceSaleSubcategory:
		return categories.Where(goqu.Ex{"scope": "sale"}, goqu.C("parent_id").IsNotNull()), nil
	case entities.ReferenceService:
		return a.db.From("services").Prepared(true), nil
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unknown reference kind %q", kind))
}

// FindIDsByName resolves a display name, preferring exact matches
func (a *ReferenceAdapter) FindIDsByName(ctx context.Context, kind entities.ReferenceKind, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []string{}, nil
	}

	exact, err := a.ids(ctx, kind, goqu.L("lower(name) = lower(?)", name))
	if err != nil || len(exact) > 0 {
		return exact, err
	}
	return a.ids(ctx, kind, goqu.L("name ILIKE ?", containsPattern(name)))
}

func (a *ReferenceAdapter) ids(ctx context.Context, kind entities.ReferenceKind, match exp.Expression) ([]string, error) {
	ds, err := a.scope(kind)
	if err != nil {
		return nil, err
	}

	query, args, err := ds.Select("id").Where(match).Order(goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, "reference.find_ids", time.Now())
	ids := []string{}
	if err := a.client.SQLX().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to resolve reference name", err)
	}
	return ids, nil
}

// GetNames returns display names keyed by id
func (a *ReferenceAdapter) GetNames(ctx context.Context, kind entities.ReferenceKind, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	ds, err := a.scope(kind)
	if err != nil {
		return nil, err
	}
	query, args, err := ds.Select("id", "name").Where(goqu.Ex{"id": ids}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, "reference.get_names", time.Now())
	var rows []referenceRow
	if err := a.client.SQLX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to get reference names", err)
	}
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}
