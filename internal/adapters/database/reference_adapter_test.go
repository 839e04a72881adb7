package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

func TestReferenceAdapter_ExactMatchWins(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewReferenceAdapter(client)

	mock.ExpectQuery(`SELECT "id" FROM "categories" WHERE .*"scope" = .*"parent_id" IS NULL.*lower\(name\) = lower\(`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-food"))

	ids, err := adapter.FindIDsByName(context.Background(), entities.ReferenceBusinessCategory, "Food")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-food"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAdapter_FallsBackToSubstring(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewReferenceAdapter(client)

	mock.ExpectQuery(`FROM "services" WHERE .*lower\(name\) = lower\(`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`FROM "services" WHERE .*name ILIKE`).
		WithArgs("%deliv%").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("svc-delivery").AddRow("svc-delivery-express"))

	ids, err := adapter.FindIDsByName(context.Background(), entities.ReferenceService, "deliv")
	require.NoError(t, err)
	assert.Equal(t, []string{"svc-delivery", "svc-delivery-express"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAdapter_SubcategoryScope(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewReferenceAdapter(client)

	mock.ExpectQuery(`FROM "categories" WHERE .*"parent_id" IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("bikes", "Bikes"))

	names, err := adapter.GetNames(context.Background(), entities.ReferenceSaleSubcategory, []string{"bikes", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"bikes": "Bikes"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAdapter_EmptyInputsSkipQueries(t *testing.T) {
	client, mock := newMockClient(t)
	adapter := NewReferenceAdapter(client)

	ids, err := adapter.FindIDsByName(context.Background(), entities.ReferenceService, "  ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	names, err := adapter.GetNames(context.Background(), entities.ReferenceService, nil)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceAdapter_UnknownKind(t *testing.T) {
	client, _ := newMockClient(t)
	adapter := NewReferenceAdapter(client)

	_, err := adapter.FindIDsByName(context.Background(), entities.ReferenceKind("brand"), "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
