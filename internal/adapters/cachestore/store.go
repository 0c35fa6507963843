// Package cachestore implements the derived-series cache over plain JSON
// files, one entry per (tier, parameter set, entity).
package cachestore

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
)

var (
	_ ports.CacheStore = (*Store)(nil)
	_ ports.MetaStore  = (*Store)(nil)
)

const (
	indexFile = "index.json"
	metaFile  = "meta.json"
	dirPerm   = 0o750
)

// Store is a filesystem-backed cache store. Entry writes go through a temp
// file and a rename, so a concurrent reader always sees either the old or
// the new complete entry.
type Store struct {
	dir string
	mu  sync.Mutex // guards index rewrites
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

func (s *Store) paramsDir(tier, params string) string {
	return filepath.Join(s.dir, tier, params)
}

func (s *Store) entryPath(tier, params, entity string) string {
	return filepath.Join(s.paramsDir(tier, params), entity+".json")
}

// Get retrieves the cache entry for an entity. Returns nil, nil on a miss;
// an unreadable entry returns an error wrapping domain.ErrCacheCorrupt.
func (s *Store) Get(tier, params, entity string) (*domain.CacheEntry, error) {
	path := s.entryPath(tier, params, entity)
	data, err := os.ReadFile(path) //nolint:gosec // Path is rooted at the configured cache dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, err.Error()), "path", path)
	}

	var entry domain.CacheEntry
	if len(data) == 0 || json.Unmarshal(data, &entry) != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrCacheCorrupt, "undecodable cache entry"), "path", path)
	}
	return &entry, nil
}

// Put stores the entry atomically and adds the entity to the per-tier index.
func (s *Store) Put(tier, params string, entry domain.CacheEntry) error {
	dir := s.paramsDir(tier, params)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", dir)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache entry")
	}
	if err := writeAtomic(dir, s.entryPath(tier, params, entry.Entity), data); err != nil {
		return err
	}

	return s.updateIndex(tier, params, func(entities []string) []string {
		if slices.Contains(entities, entry.Entity) {
			return entities
		}
		entities = append(entities, entry.Entity)
		slices.Sort(entities)
		return entities
	})
}

// List returns the entity codes indexed under (tier, params).
func (s *Store) List(tier, params string) ([]string, error) {
	idx, err := s.readIndex(tier, params)
	if err != nil {
		return nil, err
	}
	return idx.Entities, nil
}

// Invalidate removes the entry for an entity. Missing entries are not an error.
func (s *Store) Invalidate(tier, params, entity string) error {
	if err := os.Remove(s.entryPath(tier, params, entity)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove cache entry"), "entity", entity)
	}
	return s.updateIndex(tier, params, func(entities []string) []string {
		return slices.DeleteFunc(entities, func(e string) bool { return e == entity })
	})
}

// InvalidateSpanning removes, across all tiers and parameter sets, every
// entry for the entity whose series span includes date. Entries that cannot
// be decoded are removed as well; they are already unusable.
func (s *Store) InvalidateSpanning(entity string, date domain.Date) (int, error) {
	tiers, err := subdirs(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, tier := range tiers {
		paramSets, err := subdirs(filepath.Join(s.dir, tier))
		if err != nil {
			return removed, err
		}
		for _, params := range paramSets {
			entry, err := s.Get(tier, params, entity)
			if err == nil && (entry == nil || !entry.Spans(date)) {
				continue
			}
			if err := s.Invalidate(tier, params, entity); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

// GetMeta returns the stored aggregate, or nil, nil if none exists.
func (s *Store) GetMeta(tier, params string) (*domain.MetaRecord, error) {
	path := filepath.Join(s.paramsDir(tier, params), metaFile)
	data, err := os.ReadFile(path) //nolint:gosec // Path is rooted at the configured cache dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read meta record"), "path", path)
	}

	var meta domain.MetaRecord
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal meta record"), "path", path)
	}
	return &meta, nil
}

// PutMeta stores the aggregate atomically. The scheduler calls this exactly
// once per run, after all workers have finished.
func (s *Store) PutMeta(meta domain.MetaRecord) error {
	dir := s.paramsDir(meta.Tier, meta.ParameterSet)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", dir)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal meta record")
	}
	return writeAtomic(dir, filepath.Join(dir, metaFile), data)
}

// PutReport persists one reconciliation report document under the cache
// root and returns its path.
func (s *Store) PutReport(report domain.ReconciliationReport) (string, error) {
	dir := filepath.Join(s.dir, "reconciliation")
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create report directory"), "dir", dir)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", zerr.Wrap(err, "failed to marshal reconciliation report")
	}
	path := filepath.Join(dir, report.RunID+".json")
	if err := writeAtomic(dir, path, data); err != nil {
		return "", err
	}
	return path, nil
}

type index struct {
	Entities []string `json:"entities"`
}

func (s *Store) readIndex(tier, params string) (index, error) {
	path := filepath.Join(s.paramsDir(tier, params), indexFile)
	data, err := os.ReadFile(path) //nolint:gosec // Path is rooted at the configured cache dir
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return index{}, nil
		}
		return index{}, zerr.With(zerr.Wrap(err, "failed to read cache index"), "path", path)
	}

	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return index{}, zerr.With(zerr.Wrap(err, "failed to unmarshal cache index"), "path", path)
	}
	return idx, nil
}

func (s *Store) updateIndex(tier, params string, mutate func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.readIndex(tier, params)
	if err != nil {
		return err
	}
	idx.Entities = mutate(idx.Entities)

	dir := s.paramsDir(tier, params)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", dir)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal cache index")
	}
	return writeAtomic(dir, filepath.Join(dir, indexFile), data)
}

// writeAtomic writes data to a temp file in dir and renames it over path.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(writeErr, "failed to write cache file"), "path", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, "failed to swap cache file"), "path", path)
	}
	return nil
}

func subdirs(dir string) ([]string, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read cache directory"), "dir", dir)
	}
	var names []string
	for _, d := range dirents {
		if d.IsDir() {
			names = append(names, d.Name())
		}
	}
	return names, nil
}
