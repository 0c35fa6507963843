// Package scheduler distributes per-entity updates over a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// EntityUpdater performs one entity's incremental update.
//
//go:generate go run go.uber.org/mock/mockgen -source=scheduler.go -destination=mocks/mock_updater.go -package=mocks
type EntityUpdater interface {
	Update(ctx context.Context, entity string) (domain.Outcome, error)
}

// Scheduler runs an EntityUpdater over many entities. Entities are fully
// independent, so workers share nothing but the report, and the meta record
// is written once by the scheduling goroutine after the pool drains.
type Scheduler struct {
	updater EntityUpdater
	meta    ports.MetaStore
	logger  ports.Logger
	workers int
	timeout time.Duration
}

// New creates a Scheduler. workers must be at least 1. A zero timeout
// disables the run-level deadline.
func New(updater EntityUpdater, meta ports.MetaStore, logger ports.Logger, workers int, timeout time.Duration) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		updater: updater,
		meta:    meta,
		logger:  logger,
		workers: workers,
		timeout: timeout,
	}
}

// Run updates every entity and aggregates the outcomes into a BatchReport
// and the persisted MetaRecord. Per-entity failures are recorded, never
// propagated; the returned error is non-nil only for run-level problems
// such as a failed meta write.
//
// When the run deadline passes, entities already executing are allowed to
// finish (cache writes are atomic, so this is safe) and entities not yet
// started are reported as skipped, eligible for retry on the next run.
func (s *Scheduler) Run(ctx context.Context, tier, params string, entities []string) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		RunID:        uuid.NewString(),
		Tier:         tier,
		ParameterSet: params,
		Started:      time.Now(),
	}

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var mu sync.Mutex
	record := func(res domain.EntityResult) {
		mu.Lock()
		defer mu.Unlock()
		report.Results = append(report.Results, res)
		report.Counts.Add(res.Outcome)
	}

	g := new(errgroup.Group)
	g.SetLimit(s.workers)
	for _, entity := range entities {
		g.Go(func() error {
			if runCtx.Err() != nil {
				record(domain.EntityResult{Entity: entity, Outcome: domain.OutcomeSkipped})
				return nil
			}
			// Detach the entity from the run deadline: once started, an
			// update runs to completion.
			outcome, err := s.updater.Update(context.WithoutCancel(runCtx), entity)
			res := domain.EntityResult{Entity: entity, Outcome: outcome}
			if err != nil {
				res.Error = err.Error()
				s.logger.Error(err)
			}
			record(res)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Entity < report.Results[j].Entity
	})
	report.Finished = time.Now()

	s.logger.Info(fmt.Sprintf(
		"batch %s tier=%s params=%s valid_noop=%d incremental=%d full=%d failed=%d skipped=%d",
		report.RunID, tier, params,
		report.Counts.ValidNoop, report.Counts.Incremental, report.Counts.Full,
		report.Counts.Failed, report.Counts.Skipped,
	))

	meta := domain.MetaRecord{
		Tier:         tier,
		ParameterSet: params,
		EntityCount:  len(entities),
		LastUpdate:   report.Finished,
		Counts:       report.Counts,
	}
	if err := s.meta.PutMeta(meta); err != nil {
		return report, zerr.Wrap(err, "failed to write meta record")
	}
	return report, nil
}
