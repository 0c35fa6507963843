package ports

import "go.trai.ch/ebb/internal/core/domain"

// IndicatorEngine derives indicator rows from a raw series.
// Compute must be pure and deterministic: the same input window always
// yields the same output, with no state carried between calls.
//
//go:generate go run go.uber.org/mock/mockgen -source=engine.go -destination=mocks/mock_engine.go -package=mocks
type IndicatorEngine interface {
	// Name identifies the indicator family (e.g. "rsi").
	Name() string

	// WarmupDepth is the number of trailing raw rows the engine needs before
	// its output is considered numerically converged. Engines whose values
	// depend on the entire history report a depth larger than any plausible
	// series, which forces the full recompute path.
	WarmupDepth() int

	// Compute derives indicator rows from the raw window. The returned
	// series is ascending and its dates are a subset of the input dates.
	Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error)
}
