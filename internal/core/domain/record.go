// Package domain contains the core data model for the incremental
// series cache: raw and derived records, fingerprints, cache entries
// and the per-run reports.
package domain

// RawRecord is one row of an entity's source time series (OHLCV-like).
// Rows are append-only upstream; the engine never mutates them.
type RawRecord struct {
	Entity string             `json:"entity"`
	Date   Date               `json:"date"`
	Fields map[string]float64 `json:"fields"`
}

// DerivedRecord is one row of an indicator engine's output series.
// Its date always exists in the raw series it was computed from.
type DerivedRecord struct {
	Entity string             `json:"entity"`
	Date   Date               `json:"date"`
	Fields map[string]float64 `json:"fields"`
}

// RawRange returns the inclusive date span of an ascending raw series.
func RawRange(records []RawRecord) DateRange {
	if len(records) == 0 {
		return DateRange{}
	}
	return DateRange{Start: records[0].Date, End: records[len(records)-1].Date}
}
