// Package persist mirrors the entity store to the remote endpoint and the
// local cache.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mesh-intelligence/greenmap/internal/cache"
	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// Remote is the part of the remote client the gateway uses.
type Remote interface {
	Fetch(ctx context.Context) (types.Snapshot, error)
	Replace(ctx context.Context, snap types.Snapshot) error
}

// Gateway implements types.Gateway over an optional Remote and a Cache.
type Gateway struct {
	remote Remote
	cache  cache.Cache
	logger *slog.Logger
}

var _ types.Gateway = (*Gateway)(nil)

// NewGateway returns a gateway. A nil remote runs offline against the cache
// alone; a nil logger uses slog.Default.
func NewGateway(remote Remote, c cache.Cache, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{remote: remote, cache: c, logger: logger}
}

// Load tries the remote, then the cache, then returns empty collections.
// A successful remote load is written back to the cache. A cache marked
// unsynced by a failed remote save wins over the remote, so edits that only
// reached the cache are not overwritten before they are pushed.
func (g *Gateway) Load(ctx context.Context) types.LoadResult {
	var res types.LoadResult

	if g.remote != nil && g.unsynced(ctx) {
		snap, found, err := g.readCache(ctx)
		switch {
		case err != nil:
			res.CacheErr = err
			g.logger.Warn("unsynced cache unreadable, loading remote", "err", err)
		case found:
			g.logger.Info("local edits not on the remote yet, loading cache")
			res.Snapshot = snap
			res.Source = types.SourceCache
			res.Unsynced = true
			return res
		}
	}

	if g.remote != nil {
		snap, err := g.remote.Fetch(ctx)
		if err == nil {
			res.Snapshot = normalize(snap)
			res.Source = types.SourceRemote
			if err := g.writeCache(ctx, res.Snapshot, false); err != nil {
				res.CacheErr = err
				g.logger.Warn("cache refresh failed", "err", err)
			}
			return res
		}
		res.RemoteErr = types.NewPersistenceError("load remote", types.ErrNetworkFailure, err)
		g.logger.Warn("remote load failed, falling back to cache", "err", err)
	}

	snap, found, err := g.readCache(ctx)
	switch {
	case err != nil:
		res.CacheErr = err
		g.logger.Warn("cache load failed", "err", err)
	case found:
		res.Snapshot = snap
		res.Source = types.SourceCache
		return res
	}

	res.Snapshot = normalize(types.Snapshot{})
	res.Source = types.SourceEmpty
	return res
}

// SaveAll rewrites the cache and then brings the remote to exactly snap.
// The remote is attempted even when the cache write fails; the returned
// error joins both failures.
func (g *Gateway) SaveAll(ctx context.Context, snap types.Snapshot) error {
	snap = normalize(snap)
	// The snapshot is marked unsynced until the remote accepts it, so a
	// failed or interrupted remote save is retried on the next load.
	cacheErr := g.writeCache(ctx, snap, g.remote != nil)

	var remoteErr error
	if g.remote != nil {
		if err := g.remote.Replace(ctx, snap); err != nil {
			remoteErr = types.NewPersistenceError("save remote", types.ErrNetworkFailure, err)
		} else if cacheErr == nil {
			if err := g.putUnsynced(ctx, false); err != nil {
				g.logger.Warn("clearing unsynced marker failed", "err", err)
			}
		}
	}
	return errors.Join(cacheErr, remoteErr)
}

func (g *Gateway) writeCache(ctx context.Context, snap types.Snapshot, unsynced bool) error {
	if g.cache == nil {
		return nil
	}
	marker, err := json.Marshal(unsynced)
	if err != nil {
		return types.NewPersistenceError("save cache", types.ErrStorageUnavailable, err)
	}
	plants, err := json.Marshal(snap.Plants)
	if err != nil {
		return types.NewPersistenceError("save cache", types.ErrStorageUnavailable, err)
	}
	lawns, err := json.Marshal(snap.Lawns)
	if err != nil {
		return types.NewPersistenceError("save cache", types.ErrStorageUnavailable, err)
	}
	err = g.cache.Put(ctx, map[string][]byte{
		types.CacheKeyPlants:   plants,
		types.CacheKeyLawns:    lawns,
		types.CacheKeyUnsynced: marker,
	})
	if err != nil {
		return types.NewPersistenceError("save cache", types.ErrStorageUnavailable, err)
	}
	return nil
}

func (g *Gateway) putUnsynced(ctx context.Context, unsynced bool) error {
	if g.cache == nil {
		return nil
	}
	marker, err := json.Marshal(unsynced)
	if err != nil {
		return err
	}
	return g.cache.Put(ctx, map[string][]byte{types.CacheKeyUnsynced: marker})
}

// unsynced reports whether the cache holds edits the remote never accepted.
// An unreadable marker counts as synced.
func (g *Gateway) unsynced(ctx context.Context) bool {
	if g.cache == nil {
		return false
	}
	var pending bool
	found, err := g.readKey(ctx, types.CacheKeyUnsynced, &pending)
	if err != nil {
		g.logger.Warn("unsynced marker unreadable", "err", err)
		return false
	}
	return found && pending
}

// readCache reports found == false when neither key was ever written.
func (g *Gateway) readCache(ctx context.Context) (types.Snapshot, bool, error) {
	if g.cache == nil {
		return types.Snapshot{}, false, nil
	}
	var snap types.Snapshot
	plantsFound, err := g.readKey(ctx, types.CacheKeyPlants, &snap.Plants)
	if err != nil {
		return types.Snapshot{}, false, err
	}
	lawnsFound, err := g.readKey(ctx, types.CacheKeyLawns, &snap.Lawns)
	if err != nil {
		return types.Snapshot{}, false, err
	}
	return normalize(snap), plantsFound || lawnsFound, nil
}

func (g *Gateway) readKey(ctx context.Context, key string, dest any) (bool, error) {
	data, err := g.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, types.NewPersistenceError("load cache", types.ErrStorageUnavailable, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, types.NewPersistenceError("load cache "+key, types.ErrStorageUnavailable, err)
	}
	return true, nil
}

// normalize replaces nil collections with empty ones so they encode as [].
func normalize(snap types.Snapshot) types.Snapshot {
	if snap.Plants == nil {
		snap.Plants = []types.Plant{}
	}
	if snap.Lawns == nil {
		snap.Lawns = []types.Lawn{}
	}
	return snap
}
