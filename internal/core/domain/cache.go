package domain

import "time"

// Fingerprint identifies the content of a source series at a point in time.
// Hash is the primary identity; Size and ModTime are carried for diagnostics.
// LatestDate is the last date the source covered when the fingerprint was
// taken and drives the "cache already covers the source" validity shortcut.
type Fingerprint struct {
	Hash       uint64    `json:"hash"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	LatestDate Date      `json:"latest_date"`
}

// Equal reports whether two fingerprints identify the same content.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.Hash == o.Hash
}

// CacheEntry is the persisted derived series for one
// (entity, tier, parameter set) triple.
type CacheEntry struct {
	Entity       string          `json:"entity"`
	ParameterSet string          `json:"parameter_set"`
	Fingerprint  Fingerprint     `json:"fingerprint"`
	Series       []DerivedRecord `json:"series"`
	WrittenAt    time.Time       `json:"written_at"`
}

// LatestDate returns the last date covered by the cached series.
func (e *CacheEntry) LatestDate() Date {
	if len(e.Series) == 0 {
		return ""
	}
	return e.Series[len(e.Series)-1].Date
}

// EarliestDate returns the first date covered by the cached series.
func (e *CacheEntry) EarliestDate() Date {
	if len(e.Series) == 0 {
		return ""
	}
	return e.Series[0].Date
}

// Spans reports whether d falls inside the cached series span.
func (e *CacheEntry) Spans(d Date) bool {
	if len(e.Series) == 0 {
		return false
	}
	return DateRange{Start: e.EarliestDate(), End: e.LatestDate()}.Contains(d)
}

// MetaRecord is the per (tier, parameter set) aggregate written once at the
// end of a batch run.
type MetaRecord struct {
	Tier         string    `json:"tier"`
	ParameterSet string    `json:"parameter_set"`
	EntityCount  int       `json:"entity_count"`
	LastUpdate   time.Time `json:"last_update"`
	Counts       Counts    `json:"counts"`
}
