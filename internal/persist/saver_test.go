package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/greenmap/internal/cache"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// recordingGateway records saved snapshots. When gate is non-nil each save
// blocks until a value is received on it.
type recordingGateway struct {
	mu      sync.Mutex
	saved   []types.Snapshot
	started chan struct{}
	gate    chan struct{}
	err     error
}

func (g *recordingGateway) Load(context.Context) types.LoadResult { return types.LoadResult{} }

func (g *recordingGateway) SaveAll(ctx context.Context, snap types.Snapshot) error {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saved = append(g.saved, snap)
	return g.err
}

func (g *recordingGateway) snapshots() []types.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Snapshot(nil), g.saved...)
}

func withPlants(ids ...string) types.Snapshot {
	snap := types.Snapshot{Plants: []types.Plant{}, Lawns: []types.Lawn{}}
	for _, id := range ids {
		snap.Plants = append(snap.Plants, types.Plant{ID: id})
	}
	return snap
}

func flush(t *testing.T, s *Saver) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Flush(ctx)
}

func TestSaverLatestWins(t *testing.T) {
	gw := &recordingGateway{started: make(chan struct{}, 10), gate: make(chan struct{})}
	s := NewSaver(gw)

	require.NoError(t, s.Submit(withPlants("a")))
	<-gw.started // A is in flight
	require.NoError(t, s.Submit(withPlants("a", "b")))
	require.NoError(t, s.Submit(withPlants("a", "b", "c")))

	gw.gate <- struct{}{} // finish A
	<-gw.started          // coalesced save begins
	gw.gate <- struct{}{}
	require.NoError(t, flush(t, s))

	saved := gw.snapshots()
	require.Len(t, saved, 2, "intermediate submission skipped")
	assert.Equal(t, withPlants("a"), saved[0])
	assert.Equal(t, withPlants("a", "b", "c"), saved[1])
	assert.Equal(t, 2, s.Saves())
}

func TestSaverSaveAThenBLeavesB(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemory()
	s := NewSaver(NewGateway(nil, mem, nil))

	a := withPlants("a")
	b := withPlants("b")
	require.NoError(t, s.Submit(a))
	require.NoError(t, s.Submit(b))
	require.NoError(t, flush(t, s))

	res := NewGateway(nil, mem, nil).Load(ctx)
	assert.Equal(t, types.SourceCache, res.Source)
	require.Len(t, res.Snapshot.Plants, 1)
	assert.Equal(t, "b", res.Snapshot.Plants[0].ID)
}

func TestSaverReportsResults(t *testing.T) {
	boom := errors.New("boom")
	gw := &recordingGateway{err: boom}
	results := make(chan error, 4)
	s := NewSaver(gw, OnResult(func(err error) { results <- err }))

	require.NoError(t, s.Submit(withPlants("a")))
	assert.ErrorIs(t, flush(t, s), boom)
	assert.ErrorIs(t, s.LastError(), boom)
	assert.ErrorIs(t, <-results, boom)

	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()
	require.NoError(t, s.Submit(withPlants("a")))
	assert.NoError(t, flush(t, s))
	assert.NoError(t, <-results)
}

func TestSaverSubmitCopiesSnapshot(t *testing.T) {
	gw := &recordingGateway{}
	s := NewSaver(gw)
	snap := withPlants("a")
	require.NoError(t, s.Submit(snap))
	snap.Plants[0].ID = "mutated"
	require.NoError(t, flush(t, s))
	assert.Equal(t, "a", gw.snapshots()[0].Plants[0].ID)
}

func TestSaverFlushIdleReturnsImmediately(t *testing.T) {
	s := NewSaver(&recordingGateway{})
	assert.NoError(t, flush(t, s))
}

func TestSaverFlushHonoursContext(t *testing.T) {
	gw := &recordingGateway{gate: make(chan struct{})}
	s := NewSaver(gw)
	require.NoError(t, s.Submit(withPlants("a")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Flush(ctx), context.DeadlineExceeded)

	// Close with an expired context cancels the in-flight save.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer closeCancel()
	assert.ErrorIs(t, s.Close(closeCtx), context.DeadlineExceeded)
	assert.ErrorIs(t, flush(t, s), context.Canceled)
}

func TestSaverClose(t *testing.T) {
	gw := &recordingGateway{}
	s := NewSaver(gw)
	require.NoError(t, s.Submit(withPlants("a")))
	require.NoError(t, s.Close(context.Background()))
	assert.Len(t, gw.snapshots(), 1, "pending save completes before close returns")
	assert.ErrorIs(t, s.Submit(withPlants("b")), ErrSaverClosed)
}
