package store

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/greenmap/internal/geometry"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// newReadyStore returns an empty, hydrated store.
func newReadyStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	s.Hydrate(types.Snapshot{})
	return s
}

func point(t *testing.T, lat, lng float64) geometry.Point {
	t.Helper()
	p, err := geometry.ValidatePoint(types.Position{Lat: lat, Lng: lng})
	require.NoError(t, err)
	return p
}

func triangle(t *testing.T) geometry.Boundary {
	t.Helper()
	b, err := geometry.ValidatePolygon([]types.Position{
		{Lat: 51.534, Lng: 46.035},
		{Lat: 51.534, Lng: 46.036},
		{Lat: 51.533, Lng: 46.036},
	})
	require.NoError(t, err)
	return b
}

func oak() types.PlantAttributes {
	return types.PlantAttributes{Species: "Дуб", HealthStatus: types.HealthHealthy}
}

func TestMutationsBeforeHydrateFail(t *testing.T) {
	s := New()
	assert.False(t, s.Ready())

	_, err := s.CreatePlant(types.KindTree, oak(), point(t, 51.5, 46.0))
	assert.ErrorIs(t, err, types.ErrStoreNotReady)
	_, err = s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	assert.ErrorIs(t, err, types.ErrStoreNotReady)
	assert.ErrorIs(t, s.Delete(types.CollectionPlants, "x"), types.ErrStoreNotReady)

	s.Hydrate(types.Snapshot{})
	assert.True(t, s.Ready())
}

func TestCreatePlantGrowsListByOne(t *testing.T) {
	s := newReadyStore(t)
	for i := range 5 {
		before := len(s.Plants())
		id, err := s.CreatePlant(types.KindBush, oak(), point(t, 51.5, 46.0+float64(i)/1000))
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		after := s.Plants()
		require.Len(t, after, before+1)
		assert.Equal(t, id, after[len(after)-1].ID, "insertion order preserved")
	}
}

func TestCreatePlantStoresFields(t *testing.T) {
	s := newReadyStore(t)
	id, err := s.CreatePlant(types.KindTree, oak(), point(t, 51.5, 46.0))
	require.NoError(t, err)

	got, err := s.Plant(id)
	require.NoError(t, err)
	assert.Equal(t, types.KindTree, got.Kind)
	assert.Equal(t, "Дуб", got.Species)
	assert.Equal(t, types.Position{Lat: 51.5, Lng: 46.0}, got.Position)
}

func TestCreateRejectsUnvalidatedGeometry(t *testing.T) {
	s := newReadyStore(t)
	_, err := s.CreatePlant(types.KindTree, oak(), geometry.Point{})
	assert.ErrorIs(t, err, types.ErrInvalidGeometry)
	_, err = s.CreateLawn(types.DefaultLawnAttributes(), geometry.Boundary{})
	assert.ErrorIs(t, err, types.ErrInvalidGeometry)
	assert.Empty(t, s.Plants())
	assert.Empty(t, s.Lawns())
}

func TestCreateRejectsInvalidAttributes(t *testing.T) {
	s := newReadyStore(t)
	_, err := s.CreatePlant("cactus", oak(), point(t, 1, 1))
	assert.ErrorIs(t, err, types.ErrInvalidAttribute)

	attrs := oak()
	attrs.Height = -3
	_, err = s.CreatePlant(types.KindTree, attrs, point(t, 1, 1))
	assert.ErrorIs(t, err, types.ErrInvalidAttribute)

	_, err = s.CreateLawn(types.LawnAttributes{GrassType: "x", HealthStatus: "bad"}, triangle(t))
	assert.ErrorIs(t, err, types.ErrInvalidAttribute)
}

func TestIDsAreUniqueEvenWhenGeneratorRepeats(t *testing.T) {
	seq := []string{"a", "a", "", "b", "a", "c"}
	n := 0
	gen := func() string {
		id := seq[n%len(seq)]
		n++
		return id
	}
	s := newReadyStore(t, WithIDGenerator(gen))

	seen := map[string]bool{}
	for range 3 {
		id, err := s.CreatePlant(types.KindTree, oak(), point(t, 1, 1))
		require.NoError(t, err)
		assert.False(t, seen[id], "id %q reused", id)
		seen[id] = true
	}
}

func TestUpdatePlantMergesAndKeepsImmutableFields(t *testing.T) {
	s := newReadyStore(t)
	id, err := s.CreatePlant(types.KindTree, oak(), point(t, 51.5, 46.0))
	require.NoError(t, err)

	species := "Липа"
	age := 20.0
	status := types.HealthSatisfactory
	require.NoError(t, s.UpdatePlant(id, types.PlantPatch{Species: &species, Age: &age, HealthStatus: &status}))

	got, err := s.Plant(id)
	require.NoError(t, err)
	assert.Equal(t, "Липа", got.Species)
	assert.Equal(t, 20.0, got.Age)
	assert.Equal(t, types.HealthSatisfactory, got.HealthStatus)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, types.KindTree, got.Kind)
	assert.Equal(t, types.Position{Lat: 51.5, Lng: 46.0}, got.Position)
}

func TestUpdateValidationLeavesEntityUntouched(t *testing.T) {
	s := newReadyStore(t)
	id, err := s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	require.NoError(t, err)

	area := -10.0
	assert.ErrorIs(t, s.UpdateLawn(id, types.LawnPatch{Area: &area}), types.ErrInvalidAttribute)

	got, err := s.Lawn(id)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Area)
}

func TestNonFiniteNumbersNeverReachTheStore(t *testing.T) {
	s := newReadyStore(t)
	plantID, err := s.CreatePlant(types.KindTree, oak(), point(t, 51.5, 46.0))
	require.NoError(t, err)
	lawnID, err := s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	require.NoError(t, err)

	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		assert.ErrorIs(t, s.UpdatePlant(plantID, types.PlantPatch{Age: &v}), types.ErrInvalidAttribute)
		assert.ErrorIs(t, s.UpdatePlant(plantID, types.PlantPatch{Height: &v}), types.ErrInvalidAttribute)
		assert.ErrorIs(t, s.UpdatePlant(plantID, types.PlantPatch{CrownDiameter: &v}), types.ErrInvalidAttribute)
		assert.ErrorIs(t, s.UpdateLawn(lawnID, types.LawnPatch{Area: &v}), types.ErrInvalidAttribute)

		attrs := oak()
		attrs.Age = v
		_, err := s.CreatePlant(types.KindTree, attrs, point(t, 51.5, 46.0))
		assert.ErrorIs(t, err, types.ErrInvalidAttribute)
	}

	err = s.Import(types.Snapshot{Plants: []types.Plant{{
		ID: "inf", Kind: types.KindTree, Height: math.Inf(1),
		HealthStatus: types.HealthHealthy, Position: types.Position{Lat: 51, Lng: 46},
	}}})
	assert.ErrorIs(t, err, types.ErrInvalidAttribute)

	// Whatever is left must still encode for the cache and the remote.
	_, err = json.Marshal(s.Snapshot())
	require.NoError(t, err)
	assert.Len(t, s.Plants(), 1)
}

func TestUpdateLawnAreaIsIndependentOfGeometry(t *testing.T) {
	s := newReadyStore(t)
	id, err := s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	require.NoError(t, err)

	area := 1_000_000.0
	require.NoError(t, s.UpdateLawn(id, types.LawnPatch{Area: &area}))
	got, err := s.Lawn(id)
	require.NoError(t, err)
	assert.Equal(t, area, got.Area)
	assert.Len(t, got.Boundary, 3)
}

func TestUpdateMissingFailsNotFound(t *testing.T) {
	s := newReadyStore(t)
	assert.ErrorIs(t, s.UpdatePlant("nope", types.PlantPatch{}), types.ErrNotFound)
	assert.ErrorIs(t, s.UpdateLawn("nope", types.LawnPatch{}), types.ErrNotFound)
}

func TestDeleteTwiceFailsNotFound(t *testing.T) {
	s := newReadyStore(t)
	keep, err := s.CreatePlant(types.KindTree, oak(), point(t, 1, 1))
	require.NoError(t, err)
	id, err := s.CreatePlant(types.KindTree, oak(), point(t, 2, 2))
	require.NoError(t, err)
	tail, err := s.CreatePlant(types.KindBush, oak(), point(t, 3, 3))
	require.NoError(t, err)

	require.NoError(t, s.Delete(types.CollectionPlants, id))
	for _, p := range s.Plants() {
		assert.NotEqual(t, id, p.ID)
	}
	assert.ErrorIs(t, s.Delete(types.CollectionPlants, id), types.ErrNotFound)

	// Index of entities after the removed one stays correct.
	got, err := s.Plant(tail)
	require.NoError(t, err)
	assert.Equal(t, tail, got.ID)
	got, err = s.Plant(keep)
	require.NoError(t, err)
	assert.Equal(t, keep, got.ID)
}

func TestDeleteIsScopedToCollection(t *testing.T) {
	s := newReadyStore(t)
	id, err := s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Delete(types.CollectionPlants, id), types.ErrNotFound)
	assert.ErrorIs(t, s.Delete("trees", id), types.ErrInvalidCollection)
	require.NoError(t, s.Delete(types.CollectionLawns, id))
}

func TestListReturnsSnapshot(t *testing.T) {
	s := newReadyStore(t)
	_, err := s.CreateLawn(types.DefaultLawnAttributes(), triangle(t))
	require.NoError(t, err)

	lawns := s.Lawns()
	lawns[0].GrassType = "changed"
	lawns[0].Boundary[0] = types.Position{}

	again := s.Lawns()
	assert.Equal(t, types.DefaultGrassType, again[0].GrassType)
	assert.Equal(t, types.Position{Lat: 51.534, Lng: 46.035}, again[0].Boundary[0])

	snap := s.Snapshot()
	_, err = s.CreatePlant(types.KindTree, oak(), point(t, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, snap.Plants, "snapshot does not follow later mutations")
}

func TestSubscribersNotifiedSynchronously(t *testing.T) {
	s := New()
	var a, b []types.Change
	unsubA := s.Subscribe(func(c types.Change) { a = append(a, c) })
	s.Subscribe(func(c types.Change) {
		// Listeners may read the store; the mutation is already visible.
		if c.Kind == types.ChangeCreated {
			_, err := s.Plant(c.ID)
			assert.NoError(t, err)
		}
		b = append(b, c)
	})

	s.Hydrate(types.Snapshot{})
	id, err := s.CreatePlant(types.KindTree, oak(), point(t, 1, 1))
	require.NoError(t, err)
	require.NoError(t, s.UpdatePlant(id, types.PlantPatch{}))
	unsubA()
	unsubA()
	require.NoError(t, s.Delete(types.CollectionPlants, id))

	assert.Equal(t, []types.Change{
		{Kind: types.ChangeReloaded},
		{Kind: types.ChangeCreated, Collection: types.CollectionPlants, ID: id},
		{Kind: types.ChangeUpdated, Collection: types.CollectionPlants, ID: id},
	}, a)
	require.Len(t, b, 4)
	assert.Equal(t, types.Change{Kind: types.ChangeDeleted, Collection: types.CollectionPlants, ID: id}, b[3])
}

func TestFailedMutationDoesNotNotify(t *testing.T) {
	s := newReadyStore(t)
	calls := 0
	s.Subscribe(func(types.Change) { calls++ })

	_, _ = s.CreatePlant(types.KindTree, oak(), geometry.Point{})
	_ = s.Delete(types.CollectionLawns, "missing")
	_ = s.UpdatePlant("missing", types.PlantPatch{})
	assert.Zero(t, calls)
}

func TestHydrateSkipsInvalidRecords(t *testing.T) {
	s := New()
	skipped := s.Hydrate(types.Snapshot{
		Plants: []types.Plant{
			{ID: "1", Kind: types.KindTree, HealthStatus: types.HealthHealthy, Position: types.Position{Lat: 51, Lng: 46}},
			{ID: "1", Kind: types.KindTree, HealthStatus: types.HealthHealthy, Position: types.Position{Lat: 51, Lng: 46}},
			{ID: "2", Kind: types.KindTree, HealthStatus: types.HealthHealthy, Position: types.Position{Lat: 500, Lng: 46}},
			{ID: "", Kind: types.KindBush, HealthStatus: types.HealthHealthy},
		},
		Lawns: []types.Lawn{
			{ID: "lawn1", HealthStatus: types.HealthHealthy, Boundary: []types.Position{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 2}}},
		},
	})
	assert.Equal(t, 4, skipped)
	require.Len(t, s.Plants(), 1)
	assert.Empty(t, s.Lawns())
}

func TestImport(t *testing.T) {
	s := newReadyStore(t)
	snap := types.Snapshot{
		Plants: []types.Plant{{ID: "1", Kind: types.KindTree, HealthStatus: types.HealthHealthy, Position: types.Position{Lat: 51, Lng: 46}}},
		Lawns: []types.Lawn{{ID: "lawn1", HealthStatus: types.HealthHealthy, Boundary: []types.Position{
			{Lat: 1, Lng: 1}, {Lat: 1, Lng: 2}, {Lat: 2, Lng: 2},
		}}},
	}
	var changes []types.Change
	s.Subscribe(func(c types.Change) { changes = append(changes, c) })

	require.NoError(t, s.Import(snap))
	assert.Len(t, changes, 2)
	assert.ErrorIs(t, s.Import(snap), types.ErrDuplicateID)
	assert.Len(t, s.Plants(), 1, "failed import inserts nothing")

	bad := types.Snapshot{Lawns: []types.Lawn{{ID: "x", HealthStatus: types.HealthHealthy}}}
	assert.ErrorIs(t, s.Import(bad), types.ErrTooFewPoints)
}

func TestSummarize(t *testing.T) {
	s := newReadyStore(t)
	statuses := []types.HealthStatus{types.HealthHealthy, types.HealthHealthy, types.HealthUnsatisfactory}
	for i, st := range statuses {
		attrs := oak()
		attrs.HealthStatus = st
		_, err := s.CreatePlant(types.KindTree, attrs, point(t, 1, float64(i)))
		require.NoError(t, err)
	}
	lawnAttrs := types.DefaultLawnAttributes()
	lawnAttrs.HealthStatus = types.HealthSatisfactory
	_, err := s.CreateLawn(lawnAttrs, triangle(t))
	require.NoError(t, err)

	sum := s.Summarize()
	assert.Equal(t, 4, sum.Total())
	assert.Equal(t, 3, sum.Plants.Total)
	assert.Equal(t, 2, sum.Count(types.HealthHealthy))
	assert.Equal(t, 1, sum.Count(types.HealthSatisfactory))
	require.Len(t, sum.Lawns.ByHealth, 3)
	assert.Equal(t, types.HealthHealthy, sum.Lawns.ByHealth[0].Status, "severity order")
	assert.Equal(t, 0, sum.Lawns.ByHealth[0].Count)
	assert.Equal(t, "#22c55e", sum.Lawns.ByHealth[0].Color)
	assert.Equal(t, "#ef4444", sum.Lawns.ByHealth[2].Color)
}

func ExampleStore_Subscribe() {
	s := New()
	s.Subscribe(func(c types.Change) { fmt.Println(c.Kind, c.ID != "") })
	s.Hydrate(types.Snapshot{})
	at, _ := geometry.ValidatePoint(types.Position{Lat: 51.5, Lng: 46.0})
	_, _ = s.CreatePlant(types.KindTree, types.DefaultPlantAttributes(types.KindTree), at)
	// Output:
	// reloaded false
	// created true
}
