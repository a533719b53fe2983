package server

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/mesh-intelligence/greenmap/internal/geometry"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Repository is the durable store behind the HTTP endpoint. Lists are
// ordered newest first. Upserts keep the original creation time of an
// existing id. Delete of a missing id is not an error.
type Repository interface {
	ListPlants(ctx context.Context) ([]types.Plant, error)
	ListLawns(ctx context.Context) ([]types.Lawn, error)
	UpsertPlant(ctx context.Context, p types.Plant) error
	UpsertLawn(ctx context.Context, l types.Lawn) error
	Delete(ctx context.Context, c types.Collection, id string) error
}

// validatePlant checks a plant received over the wire.
func validatePlant(p types.Plant) error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", types.ErrInvalidAttribute)
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: type %q", types.ErrInvalidAttribute, p.Kind)
	}
	if _, err := geometry.ValidatePoint(p.Position); err != nil {
		return err
	}
	return p.Attributes().Validate()
}

// validateLawn checks a lawn received over the wire.
func validateLawn(l types.Lawn) error {
	if l.ID == "" {
		return fmt.Errorf("%w: empty id", types.ErrInvalidAttribute)
	}
	if _, err := geometry.ValidatePolygon(l.Boundary); err != nil {
		return err
	}
	return l.Attributes().Validate()
}

// MemoryRepository is a Repository held in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	plants []types.Plant // creation order
	lawns  []types.Lawn
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// ListPlants implements Repository.
func (m *MemoryRepository) ListPlants(context.Context) ([]types.Plant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.plants)
	slices.Reverse(out)
	if out == nil {
		out = []types.Plant{}
	}
	return out, nil
}

// ListLawns implements Repository.
func (m *MemoryRepository) ListLawns(context.Context) ([]types.Lawn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Lawn, 0, len(m.lawns))
	for i := len(m.lawns) - 1; i >= 0; i-- {
		out = append(out, m.lawns[i].Clone())
	}
	return out, nil
}

// UpsertPlant implements Repository.
func (m *MemoryRepository) UpsertPlant(_ context.Context, p types.Plant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.IndexFunc(m.plants, func(x types.Plant) bool { return x.ID == p.ID }); i >= 0 {
		m.plants[i] = p
		return nil
	}
	m.plants = append(m.plants, p)
	return nil
}

// UpsertLawn implements Repository.
func (m *MemoryRepository) UpsertLawn(_ context.Context, l types.Lawn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l = l.Clone()
	if i := slices.IndexFunc(m.lawns, func(x types.Lawn) bool { return x.ID == l.ID }); i >= 0 {
		m.lawns[i] = l
		return nil
	}
	m.lawns = append(m.lawns, l)
	return nil
}

// Delete implements Repository.
func (m *MemoryRepository) Delete(_ context.Context, c types.Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch c {
	case types.CollectionPlants:
		m.plants = slices.DeleteFunc(m.plants, func(x types.Plant) bool { return x.ID == id })
	case types.CollectionLawns:
		m.lawns = slices.DeleteFunc(m.lawns, func(x types.Lawn) bool { return x.ID == id })
	default:
		return fmt.Errorf("%w: %q", types.ErrInvalidCollection, c)
	}
	return nil
}

// Seed upserts every entity in snap into repo.
func Seed(ctx context.Context, repo Repository, snap types.Snapshot) error {
	for _, p := range snap.Plants {
		if err := repo.UpsertPlant(ctx, p); err != nil {
			return fmt.Errorf("seeding plant %s: %w", p.ID, err)
		}
	}
	for _, l := range snap.Lawns {
		if err := repo.UpsertLawn(ctx, l); err != nil {
			return fmt.Errorf("seeding lawn %s: %w", l.ID, err)
		}
	}
	return nil
}
