package cachestore_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/ebb/internal/adapters/cachestore"
	"go.trai.ch/ebb/internal/core/domain"
)

func entry(entity string, dates ...domain.Date) domain.CacheEntry {
	series := make([]domain.DerivedRecord, 0, len(dates))
	for _, d := range dates {
		series = append(series, domain.DerivedRecord{
			Entity: entity,
			Date:   d,
			Fields: map[string]float64{"rsi_14": 55.5},
		})
	}
	e := domain.CacheEntry{
		Entity:       entity,
		ParameterSet: "default",
		Series:       series,
		WrittenAt:    time.Now().UTC(),
	}
	if len(dates) > 0 {
		e.Fingerprint = domain.Fingerprint{Hash: 42, LatestDate: dates[len(dates)-1]}
	}
	return e
}

func TestPutGet_RoundTrip(t *testing.T) {
	s := cachestore.New(t.TempDir())
	want := entry("cspx", "2024-01-01", "2024-01-02")
	require.NoError(t, s.Put("daily", "default", want))

	got, err := s.Get("daily", "default", "cspx")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want.Entity, got.Entity)
	require.Equal(t, want.Fingerprint.Hash, got.Fingerprint.Hash)
	require.Equal(t, domain.Date("2024-01-02"), got.LatestDate())
	require.Len(t, got.Series, 2)
	require.Equal(t, 55.5, got.Series[0].Fields["rsi_14"])
}

func TestGet_MissIsNilNil(t *testing.T) {
	s := cachestore.New(t.TempDir())
	got, err := s.Get("daily", "default", "nope")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestGet_CorruptEntry(t *testing.T) {
	dir := t.TempDir()
	s := cachestore.New(dir)
	require.NoError(t, s.Put("daily", "default", entry("cspx", "2024-01-01")))

	path := filepath.Join(dir, "daily", "default", "cspx.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := s.Get("daily", "default", "cspx")
	require.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestList_TracksPutsAndInvalidates(t *testing.T) {
	s := cachestore.New(t.TempDir())
	require.NoError(t, s.Put("daily", "default", entry("vwce", "2024-01-01")))
	require.NoError(t, s.Put("daily", "default", entry("agg", "2024-01-01")))
	// Re-putting the same entity does not duplicate the index.
	require.NoError(t, s.Put("daily", "default", entry("agg", "2024-01-02")))

	entities, err := s.List("daily", "default")
	require.NoError(t, err)
	require.Equal(t, []string{"agg", "vwce"}, entities)

	require.NoError(t, s.Invalidate("daily", "default", "agg"))
	entities, err = s.List("daily", "default")
	require.NoError(t, err)
	require.Equal(t, []string{"vwce"}, entities)

	got, err := s.Get("daily", "default", "agg")
	require.NoError(t, err)
	require.Nil(t, got)

	// Invalidating a missing entity is not an error.
	require.NoError(t, s.Invalidate("daily", "default", "agg"))
}

func TestInvalidateSpanning(t *testing.T) {
	dir := t.TempDir()
	s := cachestore.New(dir)
	require.NoError(t, s.Put("daily", "default", entry("cspx", "2024-01-01", "2024-01-10")))
	require.NoError(t, s.Put("daily", "fast", entry("cspx", "2024-01-05", "2024-01-10")))
	require.NoError(t, s.Put("weekly", "default", entry("cspx", "2023-01-01", "2023-06-01")))
	require.NoError(t, s.Put("daily", "default", entry("vwce", "2024-01-01", "2024-01-10")))

	// 2024-01-07 falls inside both daily spans but not the weekly one.
	removed, err := s.InvalidateSpanning("cspx", "2024-01-07")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	got, err := s.Get("daily", "default", "cspx")
	require.NoError(t, err)
	require.Nil(t, got)
	got, err = s.Get("weekly", "default", "cspx")
	require.NoError(t, err)
	require.NotNil(t, got)
	// Other entities are untouched.
	got, err = s.Get("daily", "default", "vwce")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestInvalidateSpanning_RemovesCorruptEntries(t *testing.T) {
	dir := t.TempDir()
	s := cachestore.New(dir)
	require.NoError(t, s.Put("daily", "default", entry("cspx", "2024-01-01", "2024-01-10")))
	path := filepath.Join(dir, "daily", "default", "cspx.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	removed, err := s.InvalidateSpanning("cspx", "2030-01-01")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoFileExists(t, path)
}

func TestMeta_RoundTrip(t *testing.T) {
	s := cachestore.New(t.TempDir())

	got, err := s.GetMeta("daily", "default")
	require.NoError(t, err)
	require.Nil(t, got)

	meta := domain.MetaRecord{
		Tier:         "daily",
		ParameterSet: "default",
		EntityCount:  3,
		LastUpdate:   time.Now().UTC(),
		Counts:       domain.Counts{ValidNoop: 2, Incremental: 1},
	}
	require.NoError(t, s.PutMeta(meta))

	got, err = s.GetMeta("daily", "default")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 3, got.EntityCount)
	require.Equal(t, 2, got.Counts.ValidNoop)
}

func TestPutReport(t *testing.T) {
	s := cachestore.New(t.TempDir())
	report := domain.ReconciliationReport{
		RunID:   "run-1",
		SourceA: "daily",
		SourceB: "mirror",
		Divergences: []domain.Divergence{
			{Entity: "cspx", Date: "2024-01-12", Field: "close", A: 112, B: 112.56},
		},
		CreatedAt: time.Now().UTC(),
	}
	path, err := s.PutReport(report)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "run-1.json", filepath.Base(path))
}

func TestPut_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := cachestore.New(dir)
	require.NoError(t, s.Put("daily", "default", entry("cspx", "2024-01-01")))

	dirents, err := os.ReadDir(filepath.Join(dir, "daily", "default"))
	require.NoError(t, err)
	names := make([]string, 0, len(dirents))
	for _, d := range dirents {
		names = append(names, d.Name())
	}
	require.ElementsMatch(t, []string{"cspx.json", "index.json"}, names)
}
