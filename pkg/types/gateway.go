package types

import (
	"context"
	"fmt"
)

// Collection names an entity collection.
type Collection string

// Collections. The plural form is the table and GET type name; the singular
// form is used by POST and DELETE.
const (
	CollectionPlants Collection = "plants"
	CollectionLawns  Collection = "lawns"
)

// Cache keys under which each collection is stored as a JSON array.
const (
	CacheKeyPlants = "saratov-plants"
	CacheKeyLawns  = "saratov-lawns"
)

// CacheKeyUnsynced marks a cached snapshot that has not reached the remote
// yet. Its value is the JSON boolean true or false.
const CacheKeyUnsynced = "greenmap-unsynced"

// Singular returns "plant" or "lawn".
func (c Collection) Singular() string {
	switch c {
	case CollectionPlants:
		return "plant"
	case CollectionLawns:
		return "lawn"
	default:
		return string(c)
	}
}

// ParseCollection accepts the singular or plural name.
func ParseCollection(name string) (Collection, error) {
	switch name {
	case "plant", "plants":
		return CollectionPlants, nil
	case "lawn", "lawns":
		return CollectionLawns, nil
	default:
		return "", fmt.Errorf("%w: %q (valid: plant, lawn)", ErrInvalidCollection, name)
	}
}

// Snapshot is a point-in-time copy of both collections.
type Snapshot struct {
	Plants []Plant `json:"plants"`
	Lawns  []Lawn  `json:"lawns"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Plants: append([]Plant(nil), s.Plants...),
		Lawns:  make([]Lawn, len(s.Lawns)),
	}
	for i, l := range s.Lawns {
		out.Lawns[i] = l.Clone()
	}
	return out
}

// Len returns the total number of entities.
func (s Snapshot) Len() int {
	return len(s.Plants) + len(s.Lawns)
}

// ChangeKind tells subscribers what happened to the store.
type ChangeKind string

// Change kinds.
const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeReloaded ChangeKind = "reloaded"
)

// Change is delivered to store subscribers after every successful mutation.
// ID is empty for ChangeReloaded.
type Change struct {
	Kind       ChangeKind
	Collection Collection
	ID         string
}

// LoadSource records where a loaded snapshot came from.
type LoadSource string

// Load sources.
const (
	SourceRemote LoadSource = "remote"
	SourceCache  LoadSource = "cache"
	SourceEmpty  LoadSource = "empty"
)

// LoadResult is the outcome of Gateway.Load. Load never fails: RemoteErr and
// CacheErr record what went wrong on the way to Source. Unsynced reports a
// cached snapshot with local edits the remote has not accepted yet; it must
// be saved again before the remote copy is trusted.
type LoadResult struct {
	Snapshot  Snapshot
	Source    LoadSource
	Unsynced  bool
	RemoteErr error
	CacheErr  error
}

// Gateway mirrors the entity store to durable storage.
type Gateway interface {
	// Load fetches the persisted collections, falling back to the local
	// cache and then to empty collections.
	Load(ctx context.Context) LoadResult

	// SaveAll overwrites the backing stores with snap. Failures are
	// *PersistenceError values.
	SaveAll(ctx context.Context, snap Snapshot) error
}
