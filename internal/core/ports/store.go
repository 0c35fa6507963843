package ports

import "go.trai.ch/ebb/internal/core/domain"

// CacheStore persists derived series per (tier, parameter set, entity).
// Put must be atomic: a reader never observes a partially written entry.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Get retrieves the cache entry for an entity.
	// Returns nil, nil if not found. Unreadable entries return an error
	// wrapping domain.ErrCacheCorrupt.
	Get(tier, params, entity string) (*domain.CacheEntry, error)

	// Put stores the entry atomically and updates the per-tier entity index.
	Put(tier, params string, entry domain.CacheEntry) error

	// List returns the entity codes indexed under (tier, params).
	List(tier, params string) ([]string, error)

	// Invalidate removes the entry for an entity. Missing entries are not an error.
	Invalidate(tier, params, entity string) error

	// InvalidateSpanning removes, across all tiers and parameter sets, every
	// entry for the entity whose series span includes date. It returns the
	// number of entries removed.
	InvalidateSpanning(entity string, date domain.Date) (int, error)
}

// MetaStore persists the per (tier, parameter set) aggregate record.
// It is written exactly once per batch run, after all workers finish.
type MetaStore interface {
	// GetMeta returns the stored aggregate, or nil, nil if none exists.
	GetMeta(tier, params string) (*domain.MetaRecord, error)

	// PutMeta stores the aggregate atomically.
	PutMeta(meta domain.MetaRecord) error
}
