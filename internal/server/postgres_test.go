package server

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Runs against a disposable database named by GREENMAP_TEST_DATABASE_URL.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("GREENMAP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("GREENMAP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, EnsureSchema(ctx, pool))
	require.NoError(t, EnsureSchema(ctx, pool), "schema creation is repeatable")
	_, err = pool.Exec(ctx, `TRUNCATE plants, lawns`)
	require.NoError(t, err)

	repo := NewPostgresRepository(pool)
	plant := types.Plant{
		ID: "p1", Kind: types.KindBush, Species: "Сирень", Age: 8, Height: 3.5, CrownDiameter: 2.1,
		Damages: "Сухие ветви", HealthStatus: types.HealthSatisfactory,
		Position: types.Position{Lat: 51.532, Lng: 46.037},
	}
	lawn := types.Lawn{
		ID: "l1", Area: 320, GrassType: "Овсяница красная", HealthStatus: types.HealthSatisfactory,
		Boundary: []types.Position{{Lat: 51.532, Lng: 46.0345}, {Lat: 51.532, Lng: 46.0355}, {Lat: 51.5315, Lng: 46.0355}},
	}
	require.NoError(t, repo.UpsertPlant(ctx, plant))
	require.NoError(t, repo.UpsertLawn(ctx, lawn))

	plant.HealthStatus = types.HealthHealthy
	require.NoError(t, repo.UpsertPlant(ctx, plant))

	plants, err := repo.ListPlants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Plant{plant}, plants)

	lawns, err := repo.ListLawns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Lawn{lawn}, lawns)

	require.NoError(t, repo.Delete(ctx, types.CollectionLawns, "l1"))
	require.NoError(t, repo.Delete(ctx, types.CollectionLawns, "l1"))
	lawns, err = repo.ListLawns(ctx)
	require.NoError(t, err)
	assert.Empty(t, lawns)
}
