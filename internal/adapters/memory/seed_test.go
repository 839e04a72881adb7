package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
)

func TestStores_SeedDemo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s := NewStores()
	s.SeedDemo(now)

	active, err := s.Businesses.Count(ctx, predicates.Business{})
	require.NoError(t, err)
	assert.Equal(t, 3, active, "inactive business excluded by default")

	names, err := s.References.GetNames(ctx, entities.ReferenceService, []string{"s1", "s4"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"s1": "Delivery", "s4": "Tyre Change"}, names)

	live, err := s.Promos.Find(ctx, predicates.PromoAd{Status: predicates.PromoStatusActive, Now: now}, repositories.FindOptions{})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "p1", live[0].ID)

	unpriced, err := s.Sales.GetByID(ctx, "sa3")
	require.NoError(t, err)
	assert.False(t, unpriced.HasPrice())
}
