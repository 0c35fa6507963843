// Package updater implements the per-entity incremental update state machine.
//
// For each entity the updater decides between four terminal paths:
//
//	valid_noop   cache fingerprint matches, or the cache already covers the
//	             source's latest date; nothing is written.
//	incremental  the source grew past the cache and enough raw history exists
//	             to recompute a converged tail; the tail is spliced onto the
//	             cached series.
//	full         no cache, unreadable cache, a parameter-set mismatch, or too
//	             little history for a converged splice; the whole series is
//	             recomputed.
//	failed       the source or the engine failed; the previous cache entry is
//	             left untouched and the failure is surfaced, never retried
//	             within the run.
package updater

import (
	"context"
	"math"
	"sort"
	"time"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
)

// Updater performs minimal recomputation for one (tier, parameter set) pair.
type Updater struct {
	source ports.SourceReader
	store  ports.CacheStore
	engine ports.IndicatorEngine
	logger ports.Logger

	tier             string
	params           string
	warmupMultiplier float64
}

// New creates an Updater bound to a tier and parameter set.
func New(
	source ports.SourceReader,
	store ports.CacheStore,
	engine ports.IndicatorEngine,
	logger ports.Logger,
	tier, params string,
	warmupMultiplier float64,
) *Updater {
	return &Updater{
		source:           source,
		store:            store,
		engine:           engine,
		logger:           logger,
		tier:             tier,
		params:           params,
		warmupMultiplier: warmupMultiplier,
	}
}

// window is the splice window size: the engine's warmup depth scaled by the
// configured multiplier.
func (u *Updater) window() int {
	return int(math.Ceil(u.warmupMultiplier * float64(u.engine.WarmupDepth())))
}

// Update runs the state machine for one entity and returns the path taken.
// On a failed outcome the returned error describes the cause and the prior
// cache entry is preserved.
func (u *Updater) Update(ctx context.Context, entity string) (domain.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.OutcomeSkipped, err
	}

	fp, err := u.source.Fingerprint(entity)
	if err != nil {
		return domain.OutcomeFailed, zerr.With(err, "entity", entity)
	}

	cached, err := u.store.Get(u.tier, u.params, entity)
	if err != nil {
		// Unreadable cache is a miss, not a failure.
		u.logger.Warn("cache entry unreadable, forcing full recompute: " + entity)
		cached = nil
	}
	if cached != nil && cached.ParameterSet != u.params {
		cached = nil
	}

	if cached != nil && (cached.Fingerprint.Equal(fp) || !cached.LatestDate().Before(fp.LatestDate)) {
		return domain.OutcomeValidNoop, nil
	}

	raw, err := u.source.Read(entity)
	if err != nil {
		return domain.OutcomeFailed, zerr.With(err, "entity", entity)
	}

	series, outcome, err := u.recompute(cached, raw)
	if err != nil {
		return domain.OutcomeFailed, zerr.With(err, "entity", entity)
	}

	entry := domain.CacheEntry{
		Entity:       entity,
		ParameterSet: u.params,
		Fingerprint:  fp,
		Series:       series,
		WrittenAt:    time.Now(),
	}
	if err := u.store.Put(u.tier, u.params, entry); err != nil {
		return domain.OutcomeFailed, zerr.With(err, "entity", entity)
	}
	return outcome, nil
}

func (u *Updater) recompute(cached *domain.CacheEntry, raw []domain.RawRecord) ([]domain.DerivedRecord, domain.Outcome, error) {
	if cached != nil {
		series, ok, err := u.splice(cached, raw)
		if err != nil {
			return nil, domain.OutcomeFailed, err
		}
		if ok {
			return series, domain.OutcomeIncremental, nil
		}
	}

	derived, err := u.engine.Compute(raw)
	if err != nil {
		return nil, domain.OutcomeFailed, zerr.Wrap(domain.ErrComputeFailed, err.Error())
	}
	return derived, domain.OutcomeFull, nil
}

// splice recomputes the tail of the series over a bounded raw window and
// merges it onto the cached series. It reports ok=false when the entity
// must fall back to a full recompute: the raw history before the cutoff is
// shorter than the window, or the cache no longer lines up with the source.
//
// Only recomputed rows with the full multiplier-scaled window behind them
// are kept: rows with a bare warmup depth of history still carry a residual
// from the truncated start (recursively smoothed engines decay it but never
// zero it) and must not replace cached values that were computed with full
// history behind them.
func (u *Updater) splice(cached *domain.CacheEntry, raw []domain.RawRecord) ([]domain.DerivedRecord, bool, error) {
	depth := u.engine.WarmupDepth()
	w := u.window()
	latest := cached.LatestDate()
	if latest.IsZero() || depth <= 0 {
		return nil, false, nil
	}

	// Last raw row still covered by the cache.
	idx := sort.Search(len(raw), func(i int) bool { return raw[i].Date.After(latest) }) - 1
	if idx < 0 {
		return nil, false, nil
	}

	start := idx - w + 1
	if start < 0 {
		// Not enough history before the cutoff for the tail to converge.
		return nil, false, nil
	}
	window := raw[start:]
	if len(window) <= w {
		return nil, false, nil
	}

	tail, err := u.engine.Compute(window)
	if err != nil {
		return nil, false, zerr.Wrap(domain.ErrComputeFailed, err.Error())
	}

	convergedAfter := window[w-1].Date
	kept := tail[:0:0]
	for _, rec := range tail {
		if rec.Date.After(convergedAfter) {
			kept = append(kept, rec)
		}
	}
	if len(kept) == 0 {
		return nil, false, nil
	}
	return mergeSeries(cached.Series, kept), true, nil
}

// mergeSeries combines the cached series with the recomputed tail,
// deduplicated by date with the recomputed value winning, ascending.
func mergeSeries(cached, recomputed []domain.DerivedRecord) []domain.DerivedRecord {
	byDate := make(map[domain.Date]domain.DerivedRecord, len(cached)+len(recomputed))
	for _, rec := range cached {
		byDate[rec.Date] = rec
	}
	for _, rec := range recomputed {
		byDate[rec.Date] = rec
	}

	merged := make([]domain.DerivedRecord, 0, len(byDate))
	for _, rec := range byDate {
		merged = append(merged, rec)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	return merged
}
