// Package store holds the authoritative in-memory plant and lawn
// collections. Every mutation goes through Store methods, which enforce id
// uniqueness and notify subscribers synchronously once the change is
// applied in memory.
package store

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/greenmap/internal/geometry"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Listener receives change notifications. It runs on the mutating
// goroutine after the store lock is released, so it may read the store.
type Listener func(types.Change)

type subscription struct {
	id int
	fn Listener
}

// Store is the entity store. The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	ready  bool
	plants []types.Plant
	lawns  []types.Lawn
	// id -> index into plants/lawns
	plantIdx map[string]int
	lawnIdx  map[string]int

	subMu  sync.Mutex
	subs   []subscription
	nextID int

	newID  func() string
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for skipped records on Hydrate.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID v7 generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New creates an empty store that rejects mutations until Hydrate.
func New(opts ...Option) *Store {
	s := &Store{
		plantIdx: make(map[string]int),
		lawnIdx:  make(map[string]int),
		newID:    newUUID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newUUID generates a UUID v7 string.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Ready reports whether Hydrate has run.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Hydrate replaces the store content with snap and marks the store ready.
// Records that break an invariant (duplicate id, empty id, invalid
// geometry, invalid attributes) are skipped and logged. Returns the number
// of skipped records.
func (s *Store) Hydrate(snap types.Snapshot) int {
	s.mu.Lock()
	s.plants = nil
	s.lawns = nil
	s.plantIdx = make(map[string]int, len(snap.Plants))
	s.lawnIdx = make(map[string]int, len(snap.Lawns))
	skipped := 0
	for _, p := range snap.Plants {
		if err := s.insertPlantLocked(p); err != nil {
			s.logger.Warn("skipping plant", "id", p.ID, "err", err)
			skipped++
		}
	}
	for _, l := range snap.Lawns {
		if err := s.insertLawnLocked(l); err != nil {
			s.logger.Warn("skipping lawn", "id", l.ID, "err", err)
			skipped++
		}
	}
	s.ready = true
	s.mu.Unlock()

	s.notify(types.Change{Kind: types.ChangeReloaded})
	return skipped
}

// Import adds entities that already carry ids, such as seed data. All
// records are checked before any is inserted; a duplicate id fails the
// whole import with ErrDuplicateID.
func (s *Store) Import(snap types.Snapshot) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return types.ErrStoreNotReady
	}
	seenPlants := make(map[string]bool, len(snap.Plants))
	for _, p := range snap.Plants {
		if err := checkPlant(p); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("plant %q: %w", p.ID, err)
		}
		if _, dup := s.plantIdx[p.ID]; dup || seenPlants[p.ID] {
			s.mu.Unlock()
			return fmt.Errorf("plant %q: %w", p.ID, types.ErrDuplicateID)
		}
		seenPlants[p.ID] = true
	}
	seenLawns := make(map[string]bool, len(snap.Lawns))
	for _, l := range snap.Lawns {
		if err := checkLawn(l); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("lawn %q: %w", l.ID, err)
		}
		if _, dup := s.lawnIdx[l.ID]; dup || seenLawns[l.ID] {
			s.mu.Unlock()
			return fmt.Errorf("lawn %q: %w", l.ID, types.ErrDuplicateID)
		}
		seenLawns[l.ID] = true
	}

	changes := make([]types.Change, 0, snap.Len())
	for _, p := range snap.Plants {
		_ = s.insertPlantLocked(p)
		changes = append(changes, types.Change{Kind: types.ChangeCreated, Collection: types.CollectionPlants, ID: p.ID})
	}
	for _, l := range snap.Lawns {
		_ = s.insertLawnLocked(l)
		changes = append(changes, types.Change{Kind: types.ChangeCreated, Collection: types.CollectionLawns, ID: l.ID})
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.notify(c)
	}
	return nil
}

// CreatePlant inserts a new plant at a validated point and returns its id.
func (s *Store) CreatePlant(kind types.PlantKind, attrs types.PlantAttributes, at geometry.Point) (string, error) {
	if !at.Valid() {
		return "", types.ErrInvalidGeometry
	}
	if !kind.Valid() {
		return "", fmt.Errorf("%w: kind %q", types.ErrInvalidAttribute, kind)
	}
	if err := attrs.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return "", types.ErrStoreNotReady
	}
	id := s.freshIDLocked(s.plantIdx)
	_ = s.insertPlantLocked(types.NewPlant(id, kind, attrs, at.Position()))
	s.mu.Unlock()

	s.notify(types.Change{Kind: types.ChangeCreated, Collection: types.CollectionPlants, ID: id})
	return id, nil
}

// CreateLawn inserts a new lawn with a validated boundary and returns its id.
func (s *Store) CreateLawn(attrs types.LawnAttributes, boundary geometry.Boundary) (string, error) {
	if !boundary.Valid() {
		return "", types.ErrInvalidGeometry
	}
	if err := attrs.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return "", types.ErrStoreNotReady
	}
	id := s.freshIDLocked(s.lawnIdx)
	_ = s.insertLawnLocked(types.NewLawn(id, attrs, boundary.Vertices()))
	s.mu.Unlock()

	s.notify(types.Change{Kind: types.ChangeCreated, Collection: types.CollectionLawns, ID: id})
	return id, nil
}

// UpdatePlant merges patch into the plant with the given id.
func (s *Store) UpdatePlant(id string, patch types.PlantPatch) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return types.ErrStoreNotReady
	}
	i, ok := s.plantIdx[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("plant %q: %w", id, types.ErrNotFound)
	}
	cur := s.plants[i]
	attrs := patch.Apply(cur.Attributes())
	if err := attrs.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.plants[i] = types.NewPlant(cur.ID, cur.Kind, attrs, cur.Position)
	s.mu.Unlock()

	s.notify(types.Change{Kind: types.ChangeUpdated, Collection: types.CollectionPlants, ID: id})
	return nil
}

// UpdateLawn merges patch into the lawn with the given id.
func (s *Store) UpdateLawn(id string, patch types.LawnPatch) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return types.ErrStoreNotReady
	}
	i, ok := s.lawnIdx[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("lawn %q: %w", id, types.ErrNotFound)
	}
	cur := s.lawns[i]
	attrs := patch.Apply(cur.Attributes())
	if err := attrs.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lawns[i] = types.NewLawn(cur.ID, attrs, cur.Boundary)
	s.mu.Unlock()

	s.notify(types.Change{Kind: types.ChangeUpdated, Collection: types.CollectionLawns, ID: id})
	return nil
}

// Delete removes an entity. Deleting an absent id fails with ErrNotFound,
// including the second delete of the same id.
func (s *Store) Delete(c types.Collection, id string) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return types.ErrStoreNotReady
	}
	var err error
	switch c {
	case types.CollectionPlants:
		s.plants, err = removeAt(s.plants, s.plantIdx, id, func(p types.Plant) string { return p.ID })
	case types.CollectionLawns:
		s.lawns, err = removeAt(s.lawns, s.lawnIdx, id, func(l types.Lawn) string { return l.ID })
	default:
		err = fmt.Errorf("%w: %q", types.ErrInvalidCollection, c)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s %q: %w", c.Singular(), id, err)
	}

	s.notify(types.Change{Kind: types.ChangeDeleted, Collection: c, ID: id})
	return nil
}

// Plant returns a copy of the plant with the given id.
func (s *Store) Plant(id string) (types.Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.plantIdx[id]
	if !ok {
		return types.Plant{}, fmt.Errorf("plant %q: %w", id, types.ErrNotFound)
	}
	return s.plants[i], nil
}

// Lawn returns a copy of the lawn with the given id.
func (s *Store) Lawn(id string) (types.Lawn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.lawnIdx[id]
	if !ok {
		return types.Lawn{}, fmt.Errorf("lawn %q: %w", id, types.ErrNotFound)
	}
	return s.lawns[i].Clone(), nil
}

// Plants returns a copy of the plants in insertion order.
func (s *Store) Plants() []types.Plant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Plant(nil), s.plants...)
}

// Lawns returns a copy of the lawns in insertion order.
func (s *Store) Lawns() []types.Lawn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Lawn, len(s.lawns))
	for i, l := range s.lawns {
		out[i] = l.Clone()
	}
	return out
}

// Snapshot returns a consistent copy of both collections.
func (s *Store) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := types.Snapshot{
		Plants: append([]types.Plant{}, s.plants...),
		Lawns:  make([]types.Lawn, len(s.lawns)),
	}
	for i, l := range s.lawns {
		snap.Lawns[i] = l.Clone()
	}
	return snap
}

// Subscribe registers fn for change notifications. Listeners are called in
// registration order. The returned function unsubscribes; calling it more
// than once is harmless.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
		})
	}
}

func (s *Store) notify(c types.Change) {
	s.subMu.Lock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.Unlock()
	for _, sub := range subs {
		sub.fn(c)
	}
}

// freshIDLocked draws ids until one is unused in idx.
func (s *Store) freshIDLocked(idx map[string]int) string {
	for {
		id := s.newID()
		if _, taken := idx[id]; !taken && id != "" {
			return id
		}
	}
}

func (s *Store) insertPlantLocked(p types.Plant) error {
	if err := checkPlant(p); err != nil {
		return err
	}
	if _, dup := s.plantIdx[p.ID]; dup {
		return types.ErrDuplicateID
	}
	s.plantIdx[p.ID] = len(s.plants)
	s.plants = append(s.plants, p)
	return nil
}

func (s *Store) insertLawnLocked(l types.Lawn) error {
	if err := checkLawn(l); err != nil {
		return err
	}
	if _, dup := s.lawnIdx[l.ID]; dup {
		return types.ErrDuplicateID
	}
	s.lawnIdx[l.ID] = len(s.lawns)
	s.lawns = append(s.lawns, l.Clone())
	return nil
}

func checkPlant(p types.Plant) error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", types.ErrInvalidAttribute)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", types.ErrInvalidAttribute, p.Kind)
	}
	if _, err := geometry.ValidatePoint(p.Position); err != nil {
		return err
	}
	return p.Attributes().Validate()
}

func checkLawn(l types.Lawn) error {
	if l.ID == "" {
		return fmt.Errorf("%w: empty id", types.ErrInvalidAttribute)
	}
	if _, err := geometry.ValidatePolygon(l.Boundary); err != nil {
		return err
	}
	return l.Attributes().Validate()
}

// removeAt deletes the element with the given id and re-indexes the tail.
func removeAt[T any](items []T, idx map[string]int, id string, key func(T) string) ([]T, error) {
	i, ok := idx[id]
	if !ok {
		return items, types.ErrNotFound
	}
	items = slices.Delete(items, i, i+1)
	delete(idx, id)
	for j := i; j < len(items); j++ {
		idx[key(items[j])] = j
	}
	return items, nil
}
