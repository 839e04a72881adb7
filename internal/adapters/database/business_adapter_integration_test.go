//go:build integration

package database_test

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/adapters/database"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	"github.com/zatekoja/localdiscovery/pkg/config"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()

	port, _ := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "local_discovery_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	client, err := postgres.NewClient(cfg)
	require.NoError(t, err, "Failed to create postgres client")
	return client
}

func TestBusinessAdapter_NearIntegration(t *testing.T) {
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	ctx := context.Background()
	client := newTestPostgresClient(t)
	defer client.Close()
	require.NoError(t, client.Migrate(ctx))

	db := client.DB()
	cleanup := func() {
		_, err := db.Exec(`DELETE FROM businesses WHERE id LIKE 'it-%'`)
		require.NoError(t, err)
	}
	cleanup()
	defer cleanup()

	_, err := db.Exec(`
		INSERT INTO businesses (id, name, description, city, latitude, longitude, is_active)
		VALUES
			('it-near', 'Marina Bakery', 'fresh bread', 'Lagos', 6.4531, 3.3958, true),
			('it-far', 'Ikeja Bakery', 'bread and cakes', 'Lagos', 6.6018, 3.3515, true),
			('it-gone', 'Old Bakery', 'bread', 'Lagos', 6.4530, 3.3950, false),
			('it-nowhere', 'Bread Van', 'mobile bread seller', 'Lagos', NULL, NULL, true)
	`)
	require.NoError(t, err)

	repo := database.NewBusinessAdapter(client)
	pred := predicates.Business{Text: builders.Tokenize("bread")}

	nearby, err := repo.Near(ctx, pred, repositories.NearOptions{
		Origin: geo.NewPoint(6.4500, 3.3900),
		Limit:  10,
	})
	require.NoError(t, err)

	var got []string
	for _, n := range nearby {
		if strings.HasPrefix(n.Item.ID, "it-") {
			got = append(got, n.Item.ID)
		}
	}
	assert.Equal(t, []string{"it-near", "it-far", "it-nowhere"}, got, "inactive excluded, unlocated rows last")

	maxKm := 5.0
	bounded, err := repo.Near(ctx, pred, repositories.NearOptions{
		Origin:        geo.NewPoint(6.4500, 3.3900),
		MaxDistanceKm: &maxKm,
		Limit:         10,
	})
	require.NoError(t, err)
	for _, n := range bounded {
		assert.LessOrEqual(t, n.DistanceKm, maxKm)
	}
}
