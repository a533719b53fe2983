package persist

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/greenmap/internal/cache"
	"github.com/mesh-intelligence/greenmap/internal/remote"
	"github.com/mesh-intelligence/greenmap/internal/server"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

func sample() types.Snapshot {
	return types.Snapshot{
		Plants: []types.Plant{{
			ID: "1", Kind: types.KindTree, Species: "Клен ясенелистный", Age: 15, CrownDiameter: 4.5, Height: 12,
			Damages: "Небольшое повреждение коры", HealthStatus: types.HealthSatisfactory,
			Position: types.Position{Lat: 51.533562, Lng: 46.034266},
		}},
		Lawns: []types.Lawn{{
			ID: "lawn1", Area: 450, GrassType: "Мятлик луговой", HealthStatus: types.HealthHealthy,
			Boundary: []types.Position{{Lat: 51.534, Lng: 46.035}, {Lat: 51.534, Lng: 46.036}, {Lat: 51.533, Lng: 46.036}},
		}},
	}
}

func liveRemote(t *testing.T) (*remote.Client, *server.MemoryRepository) {
	t.Helper()
	repo := server.NewMemoryRepository()
	srv := httptest.NewServer(server.NewHandler(repo, nil).Routes())
	t.Cleanup(srv.Close)
	c, err := remote.New(srv.URL, time.Second)
	require.NoError(t, err)
	return c, repo
}

func deadRemote(t *testing.T) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := remote.New(url, time.Second)
	require.NoError(t, err)
	return c
}

func TestLoadUnreachableRemoteUsesCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewFile(t.TempDir())
	require.NoError(t, NewGateway(nil, c, nil).SaveAll(ctx, sample()))

	res := NewGateway(deadRemote(t), c, nil).Load(ctx)
	assert.Equal(t, types.SourceCache, res.Source)
	assert.ErrorIs(t, res.RemoteErr, types.ErrNetworkFailure)
	assert.NoError(t, res.CacheErr)
	assert.Equal(t, sample(), res.Snapshot)
}

func TestLoadNothingAvailableIsEmpty(t *testing.T) {
	res := NewGateway(deadRemote(t), cache.NewMemory(), nil).Load(context.Background())
	assert.Equal(t, types.SourceEmpty, res.Source)
	assert.NotNil(t, res.Snapshot.Plants)
	assert.NotNil(t, res.Snapshot.Lawns)
	assert.Zero(t, res.Snapshot.Len())
}

func TestLoadRemoteRefreshesCache(t *testing.T) {
	ctx := context.Background()
	rc, repo := liveRemote(t)
	require.NoError(t, server.Seed(ctx, repo, sample()))
	mem := cache.NewMemory()

	res := NewGateway(rc, mem, nil).Load(ctx)
	require.Equal(t, types.SourceRemote, res.Source)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, sample(), res.Snapshot)

	// The cache alone now yields the same snapshot.
	offline := NewGateway(nil, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceCache, offline.Source)
	assert.Equal(t, sample(), offline.Snapshot)
}

func TestSaveAllOfLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	rc, repo := liveRemote(t)
	require.NoError(t, server.Seed(ctx, repo, sample()))
	mem := cache.NewMemory()
	gw := NewGateway(rc, mem, nil)

	first := gw.Load(ctx)
	require.NoError(t, gw.SaveAll(ctx, first.Snapshot))
	cachedPlants, err := mem.Get(ctx, types.CacheKeyPlants)
	require.NoError(t, err)

	second := gw.Load(ctx)
	assert.Equal(t, first.Snapshot, second.Snapshot)
	require.NoError(t, gw.SaveAll(ctx, second.Snapshot))
	again, err := mem.Get(ctx, types.CacheKeyPlants)
	require.NoError(t, err)
	assert.Equal(t, cachedPlants, again)
}

func TestSaveAllOverwritesRemote(t *testing.T) {
	ctx := context.Background()
	rc, repo := liveRemote(t)
	require.NoError(t, server.Seed(ctx, repo, sample()))
	gw := NewGateway(rc, cache.NewMemory(), nil)

	require.NoError(t, gw.SaveAll(ctx, types.Snapshot{}))
	plants, err := repo.ListPlants(ctx)
	require.NoError(t, err)
	assert.Empty(t, plants)
	lawns, err := repo.ListLawns(ctx)
	require.NoError(t, err)
	assert.Empty(t, lawns)
}

func TestSaveAllWritesEmptyArrays(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	require.NoError(t, NewGateway(nil, mem, nil).SaveAll(ctx, types.Snapshot{}))
	for _, key := range []string{types.CacheKeyPlants, types.CacheKeyLawns} {
		got, err := mem.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(got))
	}
}

type failingCache struct{ cache.Memory }

func (*failingCache) Put(context.Context, map[string][]byte) error {
	return errors.New("disk full")
}

func (*failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestSaveAllReportsBothFailures(t *testing.T) {
	err := NewGateway(deadRemote(t), &failingCache{}, nil).SaveAll(context.Background(), sample())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
	assert.ErrorIs(t, err, types.ErrNetworkFailure)
	assert.True(t, types.IsPersistence(err))
}

func TestLoadCacheFailureFallsBackToEmpty(t *testing.T) {
	res := NewGateway(nil, &failingCache{}, nil).Load(context.Background())
	assert.Equal(t, types.SourceEmpty, res.Source)
	assert.ErrorIs(t, res.CacheErr, types.ErrStorageUnavailable)
	assert.NoError(t, res.RemoteErr)
}

func TestLoadCorruptCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	require.NoError(t, mem.Put(ctx, map[string][]byte{types.CacheKeyPlants: []byte("{not json")}))
	res := NewGateway(nil, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceEmpty, res.Source)
	assert.ErrorIs(t, res.CacheErr, types.ErrStorageUnavailable)
}

func TestLoadPartialCache(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	require.NoError(t, mem.Put(ctx, map[string][]byte{types.CacheKeyLawns: []byte(`[]`)}))
	res := NewGateway(nil, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceCache, res.Source)
	assert.NotNil(t, res.Snapshot.Plants)
}

func TestFailedRemoteSaveKeepsCacheAuthoritative(t *testing.T) {
	ctx := context.Background()
	rc, repo := liveRemote(t)
	require.NoError(t, server.Seed(ctx, repo, sample()))
	mem := cache.NewMemory()

	edited := sample()
	edited.Plants[0].Species = "Дуб черешчатый"
	err := NewGateway(deadRemote(t), mem, nil).SaveAll(ctx, edited)
	require.ErrorIs(t, err, types.ErrNetworkFailure)

	// The remote still holds the old inventory; the cached edit must win.
	gw := NewGateway(rc, mem, nil)
	res := gw.Load(ctx)
	assert.Equal(t, types.SourceCache, res.Source)
	assert.True(t, res.Unsynced)
	assert.NoError(t, res.RemoteErr)
	assert.Equal(t, edited, res.Snapshot)

	require.NoError(t, gw.SaveAll(ctx, res.Snapshot))
	plants, err := repo.ListPlants(ctx)
	require.NoError(t, err)
	require.Len(t, plants, 1)
	assert.Equal(t, "Дуб черешчатый", plants[0].Species)

	synced := gw.Load(ctx)
	assert.Equal(t, types.SourceRemote, synced.Source)
	assert.False(t, synced.Unsynced)
	assert.Equal(t, edited, synced.Snapshot)
}

func TestOfflineSaveDoesNotMarkUnsynced(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	require.NoError(t, NewGateway(nil, mem, nil).SaveAll(ctx, sample()))

	rc, repo := liveRemote(t)
	res := NewGateway(rc, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceRemote, res.Source)
	assert.False(t, res.Unsynced)
	assert.Zero(t, res.Snapshot.Len())
	plants, err := repo.ListPlants(ctx)
	require.NoError(t, err)
	assert.Empty(t, plants)
}

func TestUnsyncedMarkerWithoutSnapshotLoadsRemote(t *testing.T) {
	ctx := context.Background()
	rc, repo := liveRemote(t)
	require.NoError(t, server.Seed(ctx, repo, sample()))
	mem := cache.NewMemory()
	require.NoError(t, mem.Put(ctx, map[string][]byte{types.CacheKeyUnsynced: []byte("true")}))

	res := NewGateway(rc, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceRemote, res.Source)
	assert.False(t, res.Unsynced)
	assert.Equal(t, sample(), res.Snapshot)

	marker, err := mem.Get(ctx, types.CacheKeyUnsynced)
	require.NoError(t, err)
	assert.Equal(t, "false", string(marker))
}
