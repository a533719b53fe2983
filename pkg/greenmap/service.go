// Package greenmap is the annotation service: it owns the entity store, the
// creation-mode controller and the persistence pipeline, and serializes
// every operator event.
//
// Open loads the inventory (remote, then cache, then empty) before returning,
// so the store is never mutable before the load resolves. Every successful
// mutation afterwards schedules a whole-inventory save on a background
// saver; save failures never roll back memory and are reported through
// Options.OnSaveResult and LastSaveError.
package greenmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/greenmap/internal/cache"
	"github.com/mesh-intelligence/greenmap/internal/creation"
	"github.com/mesh-intelligence/greenmap/internal/geocode"
	"github.com/mesh-intelligence/greenmap/internal/geometry"
	"github.com/mesh-intelligence/greenmap/internal/persist"
	"github.com/mesh-intelligence/greenmap/internal/remote"
	"github.com/mesh-intelligence/greenmap/internal/store"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// ErrGeocoderDisabled is returned by Address when no geocoder is configured.
var ErrGeocoderDisabled = errors.New("reverse geocoding is not configured")

// Options wires a Service. Every field is optional: without Remote the
// service runs offline, without Cache it keeps nothing locally.
type Options struct {
	Remote       persist.Remote
	Cache        cache.Cache
	Geocoder     geocode.Reverser
	Logger       *slog.Logger
	IDGenerator  func() string
	OnSaveResult func(error)
}

// Service is the composition root. Its methods are safe for concurrent use;
// operator events are applied one at a time.
type Service struct {
	mu sync.Mutex // serializes operator events

	store    *store.Store
	ctrl     *creation.Controller
	saver    *persist.Saver
	cache    cache.Cache
	geocoder geocode.Reverser
	logger   *slog.Logger
	loaded   types.LoadResult
	unsub    func()
}

// Open loads the inventory and returns a ready service.
func Open(ctx context.Context, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gw := persist.NewGateway(opts.Remote, opts.Cache, logger)
	res := gw.Load(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := store.New(store.WithLogger(logger), store.WithIDGenerator(opts.IDGenerator))
	if skipped := st.Hydrate(res.Snapshot); skipped > 0 {
		logger.Warn("skipped invalid records on load", "count", skipped)
	}
	logger.Info("inventory loaded",
		"source", string(res.Source),
		"plants", len(res.Snapshot.Plants),
		"lawns", len(res.Snapshot.Lawns))

	saverOpts := []persist.SaverOption{persist.WithSaverLogger(logger)}
	if opts.OnSaveResult != nil {
		saverOpts = append(saverOpts, persist.OnResult(opts.OnSaveResult))
	}
	s := &Service{
		store:    st,
		ctrl:     creation.New(st),
		saver:    persist.NewSaver(gw, saverOpts...),
		cache:    opts.Cache,
		geocoder: opts.Geocoder,
		logger:   logger,
		loaded:   res,
	}
	s.unsub = st.Subscribe(func(c types.Change) {
		if c.Kind == types.ChangeReloaded {
			return
		}
		if err := s.saver.Submit(st.Snapshot()); err != nil {
			logger.Debug("save not scheduled", "err", err)
		}
	})
	if res.Unsynced {
		// Push edits a previous run kept only in the cache.
		if err := s.saver.Submit(st.Snapshot()); err != nil {
			logger.Warn("unsynced inventory not scheduled for save", "err", err)
		}
	}
	return s, nil
}

// OpenConfig builds the remote client, cache and geocoder described by cfg
// and opens the service.
func OpenConfig(ctx context.Context, cfg types.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts := Options{Logger: logger}

	if cfg.Remote.URL != "" {
		rc, err := remote.New(cfg.Remote.URL, cfg.Remote.GetTimeout())
		if err != nil {
			return nil, err
		}
		opts.Remote = rc
	}

	n, err := geocode.NewNominatim(cfg.Geocoder)
	if err != nil {
		return nil, err
	}
	if n != nil {
		opts.Geocoder = n
	}

	c, err := cache.Open(cfg.Cache, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	opts.Cache = c

	s, err := Open(ctx, opts)
	if err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

// LoadResult reports where the inventory was loaded from.
func (s *Service) LoadResult() types.LoadResult {
	return s.loaded
}

// BeginPoint starts placing a plant of kind; the next map click creates it.
func (s *Service) BeginPoint(kind types.PlantKind, attrs types.PlantAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.BeginPoint(kind, attrs)
}

// BeginPolygon starts drawing a lawn boundary.
func (s *Service) BeginPolygon(attrs types.LawnAttributes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.BeginPolygon(attrs)
}

// MapClick feeds a map click to the active creation mode.
func (s *Service) MapClick(pos types.Position) (creation.ClickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.MapClick(pos)
}

// CompletePolygon closes the boundary under construction and creates the lawn.
func (s *Service) CompletePolygon() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Complete()
}

// Cancel abandons the active creation mode.
func (s *Service) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl.Cancel()
}

// Mode returns the creation-mode state.
func (s *Service) Mode() creation.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.State()
}

// QuickAddPlant creates a plant at pos without going through a creation
// mode, using default attributes for kind when attrs is nil.
func (s *Service) QuickAddPlant(kind types.PlantKind, pos types.Position, attrs *types.PlantAttributes) (string, error) {
	a := types.DefaultPlantAttributes(kind)
	if attrs != nil {
		a = *attrs
	}
	at, err := geometry.ValidatePoint(pos)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CreatePlant(kind, a, at)
}

// UpdatePlant merges patch into a plant.
func (s *Service) UpdatePlant(id string, patch types.PlantPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdatePlant(id, patch)
}

// UpdateLawn merges patch into a lawn.
func (s *Service) UpdateLawn(id string, patch types.LawnPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.UpdateLawn(id, patch)
}

// DeletePlant removes a plant.
func (s *Service) DeletePlant(id string) error {
	return s.Delete(types.CollectionPlants, id)
}

// DeleteLawn removes a lawn.
func (s *Service) DeleteLawn(id string) error {
	return s.Delete(types.CollectionLawns, id)
}

// Delete removes an entity from collection c.
func (s *Service) Delete(c types.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(c, id)
}

// Import adds entities that carry their own ids, such as seed data.
func (s *Service) Import(snap types.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Import(snap)
}

// Plant returns one plant.
func (s *Service) Plant(id string) (types.Plant, error) { return s.store.Plant(id) }

// Lawn returns one lawn.
func (s *Service) Lawn(id string) (types.Lawn, error) { return s.store.Lawn(id) }

// Plants returns all plants in insertion order.
func (s *Service) Plants() []types.Plant { return s.store.Plants() }

// Lawns returns all lawns in insertion order.
func (s *Service) Lawns() []types.Lawn { return s.store.Lawns() }

// Snapshot returns both collections.
func (s *Service) Snapshot() types.Snapshot { return s.store.Snapshot() }

// Summary returns per-health counts.
func (s *Service) Summary() store.Summary { return s.store.Summarize() }

// stampedCache is implemented by caches that record when each key was written.
type stampedCache interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, error)
}

// CacheUpdatedAt reports when the cached inventory was last written. ok is
// false when the backend keeps no timestamps or holds no inventory yet.
func (s *Service) CacheUpdatedAt(ctx context.Context) (t time.Time, ok bool) {
	c, ok := s.cache.(stampedCache)
	if !ok {
		return time.Time{}, false
	}
	t, err := c.UpdatedAt(ctx, types.CacheKeyPlants)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Debug("cache timestamp unavailable", "err", err)
		}
		return time.Time{}, false
	}
	return t, true
}

// Subscribe registers a store change listener. Listeners run while the
// operator event is being applied and must not call back into operator
// methods such as BeginPoint or UpdatePlant.
func (s *Service) Subscribe(fn store.Listener) func() { return s.store.Subscribe(fn) }

// Retry schedules a save of the current inventory, for use after a failed
// save or an offline load.
func (s *Service) Retry() error {
	return s.saver.Submit(s.store.Snapshot())
}

// Flush waits for pending saves and returns the last save result.
func (s *Service) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// LastSaveError returns the result of the last completed save.
func (s *Service) LastSaveError() error {
	return s.saver.LastError()
}

// Address reverse-geocodes pos.
func (s *Service) Address(ctx context.Context, pos types.Position) (*geocode.Address, error) {
	if s.geocoder == nil {
		return nil, ErrGeocoderDisabled
	}
	if _, err := geometry.ValidatePoint(pos); err != nil {
		return nil, err
	}
	return s.geocoder.Reverse(ctx, pos)
}

// Close flushes pending saves and releases the cache. ctx bounds the wait.
func (s *Service) Close(ctx context.Context) error {
	s.unsub()
	err := s.saver.Close(ctx)
	if s.cache != nil {
		if cerr := s.cache.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
