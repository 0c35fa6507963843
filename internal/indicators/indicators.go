// Package indicators provides the built-in indicator engine families.
//
// Every engine is a pure function over an ascending raw window. An engine's
// WarmupDepth tells the updater how many trailing rows it needs before its
// recursive state has converged; window-bounded engines (Williams %R, volume
// MA) report their window size, recursively smoothed engines (RSI) report a
// convergence-scaled depth, and cumulative engines (OBV) report an
// effectively infinite depth so the updater always recomputes them in full.
package indicators

import (
	"math"
	"sort"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
)

// Params carries the per-family tuning knobs from a parameter set.
type Params struct {
	Periods []int
}

// Factory builds an engine from its parameters.
type Factory func(p Params) (ports.IndicatorEngine, error)

var families = map[string]Factory{
	"rsi":      newRSI,
	"williams": newWilliams,
	"obv":      newOBV,
	"vma":      newVMA,
	"pvfit":    newPVFit,
}

// New builds the engine for the named family. An unknown family is a
// configuration error.
func New(family string, p Params) (ports.IndicatorEngine, error) {
	factory, ok := families[family]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfig, "unknown indicator family"), "family", family)
	}
	return factory(p)
}

// Families lists the registered family names.
func Families() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const fieldPrecision = 8

// round trims a value to the engine's output precision, matching the
// precision the series are persisted with.
func round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	shift := math.Pow(10, fieldPrecision)
	return math.Round(v*shift) / shift
}

// fieldSeries extracts one named field from the raw window.
func fieldSeries(records []domain.RawRecord, name string) ([]float64, error) {
	out := make([]float64, len(records))
	for i, rec := range records {
		v, ok := rec.Fields[name]
		if !ok {
			return nil, zerr.With(zerr.New("missing source field"), "field", name)
		}
		out[i] = v
	}
	return out, nil
}

func maxPeriod(periods []int) int {
	m := 0
	for _, p := range periods {
		if p > m {
			m = p
		}
	}
	return m
}

func validPeriods(periods, fallback []int) []int {
	if len(periods) == 0 {
		return fallback
	}
	return periods
}
