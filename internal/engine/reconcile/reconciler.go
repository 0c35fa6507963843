// Package reconcile compares two independently maintained copies of the
// same raw series over their date overlap and optionally repairs the
// non-authoritative copy.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
)

// epsilon floors the denominator of the relative comparison so that
// near-zero values do not blow up the ratio.
const epsilon = 1e-12

// FieldPresence marks a divergence where one source has a row for a date
// and the other does not. A and B carry 1 for the side that has the row
// and 0 for the side that is missing it.
const FieldPresence = "presence"

// Reconciler compares source a against source b with a relative tolerance.
type Reconciler struct {
	a, b       ports.SourceStore
	tagA, tagB string
	cache      ports.CacheStore
	logger     ports.Logger
	tolerance  float64
}

// New creates a Reconciler over the two tagged sources.
func New(a, b ports.SourceStore, tagA, tagB string, cache ports.CacheStore, logger ports.Logger, tolerance float64) *Reconciler {
	return &Reconciler{
		a:         a,
		b:         b,
		tagA:      tagA,
		tagB:      tagB,
		cache:     cache,
		logger:    logger,
		tolerance: tolerance,
	}
}

// Reconcile compares every entity's rows over the per-entity overlap range
// and collects field-level divergences. Entities present in only one source
// are skipped, as are entities where one source's range subsumes the
// other's. Divergences are ordered by entity, then date, then field, so the
// result is independent of iteration order.
//
// Per-entity read failures are logged and skipped; only run-level problems
// return an error.
func (r *Reconciler) Reconcile(ctx context.Context, entities []string) (*domain.ReconciliationReport, error) {
	report := &domain.ReconciliationReport{
		RunID:     uuid.NewString(),
		SourceA:   r.tagA,
		SourceB:   r.tagB,
		Tolerance: r.tolerance,
		CreatedAt: time.Now(),
	}

	if len(entities) == 0 {
		var err error
		entities, err = r.sharedEntities()
		if err != nil {
			return nil, err
		}
	} else {
		entities = append([]string(nil), entities...)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, "reconciliation interrupted")
		}

		seriesA, err := r.a.Read(entity)
		if err != nil {
			r.logger.Error(zerr.Wrap(err, fmt.Sprintf("skipping %s: source %s unreadable", entity, r.tagA)))
			continue
		}
		seriesB, err := r.b.Read(entity)
		if err != nil {
			r.logger.Error(zerr.Wrap(err, fmt.Sprintf("skipping %s: source %s unreadable", entity, r.tagB)))
			continue
		}

		rangeA, rangeB := domain.RawRange(seriesA), domain.RawRange(seriesB)
		overlap := domain.DateRange{
			Start: domain.MaxDate(rangeA.Start, rangeB.Start),
			End:   domain.MinDate(rangeA.End, rangeB.End),
		}
		if overlap.IsEmpty() || subsumes(rangeA, rangeB) || subsumes(rangeB, rangeA) {
			continue
		}

		report.Overlap = domain.DateRange{
			Start: domain.MinDate(report.Overlap.Start, overlap.Start),
			End:   domain.MaxDate(report.Overlap.End, overlap.End),
		}
		report.Divergences = append(report.Divergences,
			r.compareEntity(entity, overlap, seriesA, seriesB)...)
	}

	r.logger.Info(fmt.Sprintf("reconcile %s a=%s b=%s divergences=%d",
		report.RunID, r.tagA, r.tagB, len(report.Divergences)))
	return report, nil
}

func (r *Reconciler) compareEntity(entity string, overlap domain.DateRange, seriesA, seriesB []domain.RawRecord) []domain.Divergence {
	byDateA := indexByDate(seriesA, overlap)
	byDateB := indexByDate(seriesB, overlap)

	dates := make([]domain.Date, 0, len(byDateA))
	for d := range byDateA {
		dates = append(dates, d)
	}
	for d := range byDateB {
		if _, ok := byDateA[d]; !ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var out []domain.Divergence
	for _, date := range dates {
		rowA, okA := byDateA[date]
		rowB, okB := byDateB[date]
		if !okA || !okB {
			div := domain.Divergence{Entity: entity, Date: date, Field: FieldPresence}
			if okA {
				div.A = 1
			}
			if okB {
				div.B = 1
			}
			out = append(out, div)
			continue
		}
		for _, field := range sortedFields(rowA.Fields) {
			a := rowA.Fields[field]
			b, ok := rowB.Fields[field]
			if !ok {
				continue
			}
			if !within(a, b, r.tolerance) {
				out = append(out, domain.Divergence{
					Entity: entity, Date: date, Field: field, A: a, B: b,
				})
			}
		}
	}
	return out
}

// Repair overwrites, for every flagged date, the non-authoritative source's
// row with the authoritative source's row, then drops any cache entry whose
// span includes that date so the next batch run recomputes it. Each write is
// retried once before being recorded as a failure.
//
// Repair only copies rows the authoritative source has; it never deletes. A
// flagged date missing from the authoritative side is recorded as a failure
// and the extra row stays in place for an operator to rule on, since
// discarding data one source reported is not this tool's call to make.
func (r *Reconciler) Repair(ctx context.Context, report *domain.ReconciliationReport, authoritative string) (*domain.RepairResult, error) {
	var auth, target ports.SourceStore
	switch authoritative {
	case r.tagA:
		auth, target = r.a, r.b
	case r.tagB:
		auth, target = r.b, r.a
	default:
		return nil, zerr.With(
			zerr.Wrap(domain.ErrConfig, "authoritative source is not part of this reconciliation"),
			"source", authoritative,
		)
	}

	result := &domain.RepairResult{}
	authRows := map[string]map[domain.Date]domain.RawRecord{}

	for _, flagged := range report.FlaggedDates() {
		if err := ctx.Err(); err != nil {
			return result, zerr.Wrap(err, "repair interrupted")
		}

		rows, ok := authRows[flagged.Entity]
		if !ok {
			series, err := auth.Read(flagged.Entity)
			if err != nil {
				result.Failures = append(result.Failures, domain.RepairFailure{
					Entity: flagged.Entity,
					Date:   flagged.Date,
					Reason: fmt.Sprintf("authoritative source unreadable: %v", err),
				})
				continue
			}
			rows = indexByDate(series, domain.RawRange(series))
			authRows[flagged.Entity] = rows
		}

		row, ok := rows[flagged.Date]
		if !ok {
			result.Failures = append(result.Failures, domain.RepairFailure{
				Entity: flagged.Entity,
				Date:   flagged.Date,
				Reason: "authoritative source has no row for this date",
			})
			continue
		}

		if err := writeWithRetry(target, flagged.Entity, row); err != nil {
			result.Failures = append(result.Failures, domain.RepairFailure{
				Entity: flagged.Entity,
				Date:   flagged.Date,
				Reason: err.Error(),
			})
			continue
		}
		result.Repaired++

		n, err := r.cache.InvalidateSpanning(flagged.Entity, flagged.Date)
		if err != nil {
			result.Failures = append(result.Failures, domain.RepairFailure{
				Entity: flagged.Entity,
				Date:   flagged.Date,
				Reason: fmt.Sprintf("row repaired but cache invalidation failed: %v", err),
			})
			continue
		}
		result.Invalidated += n
	}

	r.logger.Info(fmt.Sprintf("repair %s authoritative=%s repaired=%d invalidated=%d failed=%d",
		report.RunID, authoritative, result.Repaired, result.Invalidated, len(result.Failures)))
	return result, nil
}

func writeWithRetry(target ports.SourceStore, entity string, row domain.RawRecord) error {
	err := target.WriteRow(entity, row)
	if err == nil {
		return nil
	}
	if err = target.WriteRow(entity, row); err == nil {
		return nil
	}
	return zerr.Wrap(domain.ErrRepairFailed, err.Error())
}

func (r *Reconciler) sharedEntities() ([]string, error) {
	inA, err := r.a.Entities()
	if err != nil {
		return nil, zerr.Wrap(err, fmt.Sprintf("failed to list entities of source %s", r.tagA))
	}
	inB, err := r.b.Entities()
	if err != nil {
		return nil, zerr.Wrap(err, fmt.Sprintf("failed to list entities of source %s", r.tagB))
	}
	setB := make(map[string]bool, len(inB))
	for _, e := range inB {
		setB[e] = true
	}
	var shared []string
	for _, e := range inA {
		if setB[e] {
			shared = append(shared, e)
		}
	}
	return shared, nil
}

// subsumes reports whether outer strictly contains inner. A source that
// fully covers the other is trusted to be the more complete copy, so the
// pair is not worth cross-checking.
func subsumes(outer, inner domain.DateRange) bool {
	return outer.Start.Before(inner.Start) && inner.End.Before(outer.End)
}

func within(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
	return math.Abs(a-b)/denom <= tolerance
}

func sortedFields(fields map[string]float64) []string {
	out := make([]string, 0, len(fields))
	for name := range fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func indexByDate(series []domain.RawRecord, overlap domain.DateRange) map[domain.Date]domain.RawRecord {
	out := make(map[domain.Date]domain.RawRecord)
	for _, row := range series {
		if overlap.Contains(row.Date) {
			out[row.Date] = row
		}
	}
	return out
}
