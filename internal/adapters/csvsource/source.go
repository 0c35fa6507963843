// Package csvsource implements the source reader over per-entity CSV files.
//
// Each entity is stored as <dir>/<entity>.csv with a header row whose first
// column is the date and whose remaining columns are numeric fields. Rows on
// disk may be in any order; the reader always hands out ascending series.
package csvsource

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceStore = (*Store)(nil)

// Store reads and repairs per-entity CSV series under a base directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: filepath.Clean(dir)}
}

// Dir returns the base directory the store reads from.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(entity string) string {
	return filepath.Join(s.dir, entity+".csv")
}

// Read returns the entity's raw records in ascending date order.
func (s *Store) Read(entity string) ([]domain.RawRecord, error) {
	f, err := os.Open(s.path(entity)) //nolint:gosec // Path is rooted at the configured source dir
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrSourceUnavailable, err.Error()), "entity", entity)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	_, records, err := parseSeries(f, entity)
	if err != nil {
		return nil, zerr.With(err, "entity", entity)
	}
	return records, nil
}

// Fingerprint hashes the entity's file content and records its size, mtime
// and latest covered date. The file is read exactly once: bytes are teed
// into the hasher while the CSV is parsed.
func (s *Store) Fingerprint(entity string) (domain.Fingerprint, error) {
	path := s.path(entity)
	f, err := os.Open(path) //nolint:gosec // Path is rooted at the configured source dir
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(domain.ErrSourceUnavailable, err.Error()), "entity", entity)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	info, err := f.Stat()
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, "failed to stat source file"), "path", path)
	}

	hasher := xxhash.New()
	_, records, err := parseSeries(io.TeeReader(f, hasher), entity)
	if err != nil {
		return domain.Fingerprint{}, zerr.With(err, "entity", entity)
	}
	// Drain anything the CSV reader buffered past the last row so the hash
	// covers the whole file.
	if _, err := io.Copy(hasher, f); err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, "failed to hash source file"), "path", path)
	}

	fp := domain.Fingerprint{
		Hash:    hasher.Sum64(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if len(records) > 0 {
		fp.LatestDate = records[len(records)-1].Date
	}
	return fp, nil
}

// Entities lists the entity codes present in the source directory.
func (s *Store) Entities() ([]string, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "source directory unreadable"), "dir", s.dir)
	}

	var entities []string
	for _, d := range dirents {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		entities = append(entities, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(entities)
	return entities, nil
}

// WriteRow replaces (or inserts) the entity's row for row.Date and rewrites
// the file atomically. Only reconciliation repair uses this path.
func (s *Store) WriteRow(entity string, row domain.RawRecord) error {
	path := s.path(entity)
	f, err := os.Open(path) //nolint:gosec // Path is rooted at the configured source dir
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrSourceUnavailable, err.Error()), "entity", entity)
	}

	header, records, err := parseSeries(f, entity)
	_ = f.Close()
	if err != nil {
		return zerr.With(err, "entity", entity)
	}

	replaced := false
	for i := range records {
		if records[i].Date == row.Date {
			records[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, row)
		sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	}

	return s.writeSeries(path, header, records)
}

func (s *Store) writeSeries(path string, header []string, records []domain.RawRecord) error {
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp file")
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	writeErr := w.Write(header)
	for _, rec := range records {
		if writeErr != nil {
			break
		}
		line := make([]string, len(header))
		line[0] = rec.Date.String()
		for i, field := range header[1:] {
			line[i+1] = strconv.FormatFloat(rec.Fields[field], 'f', -1, 64)
		}
		writeErr = w.Write(line)
	}
	w.Flush()
	if writeErr == nil {
		writeErr = w.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(writeErr, "failed to write source file"), "path", path)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return zerr.With(zerr.Wrap(err, "failed to swap source file"), "path", path)
	}
	return nil
}

// parseSeries decodes a CSV series, sorts it ascending and rejects
// duplicate dates.
func parseSeries(r io.Reader, entity string) ([]string, []domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, "empty source file")
	}
	if err != nil {
		return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, err.Error())
	}
	if len(header) < 2 {
		return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, "source header too short")
	}

	var records []domain.RawRecord
	for {
		line, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, err.Error())
		}
		if len(line) != len(header) {
			return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, "row width does not match header")
		}

		date, err := domain.ParseDate(line[0])
		if err != nil {
			return nil, nil, zerr.Wrap(domain.ErrSourceUnavailable, err.Error())
		}

		fields := make(map[string]float64, len(header)-1)
		for i, name := range header[1:] {
			v, err := strconv.ParseFloat(line[i+1], 64)
			if err != nil {
				return nil, nil, zerr.With(zerr.Wrap(domain.ErrSourceUnavailable, "non-numeric field"), "field", name)
			}
			fields[name] = v
		}
		records = append(records, domain.RawRecord{Entity: entity, Date: date, Fields: fields})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Date.Before(records[j].Date) })
	for i := 1; i < len(records); i++ {
		if records[i].Date == records[i-1].Date {
			return nil, nil, zerr.With(zerr.Wrap(domain.ErrSourceUnavailable, "duplicate date"), "date", records[i].Date.String())
		}
	}
	return header, records, nil
}
