package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/ebb/internal/core/domain"
	portmocks "go.trai.ch/ebb/internal/core/ports/mocks"
	"go.trai.ch/ebb/internal/engine/scheduler"
	"go.trai.ch/ebb/internal/engine/scheduler/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func TestScheduler_Run_AggregatesOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upd := mocks.NewMockEntityUpdater(ctrl)
	upd.EXPECT().Update(gomock.Any(), "cspx").Return(domain.OutcomeValidNoop, nil)
	upd.EXPECT().Update(gomock.Any(), "vwce").Return(domain.OutcomeIncremental, nil)
	upd.EXPECT().Update(gomock.Any(), "agg").Return(domain.OutcomeFull, nil)
	upd.EXPECT().Update(gomock.Any(), "eimi").
		Return(domain.OutcomeFailed, zerr.New("compute failed for eimi"))

	meta := portmocks.NewMockMetaStore(ctrl)
	var written domain.MetaRecord
	meta.EXPECT().PutMeta(gomock.Any()).DoAndReturn(func(m domain.MetaRecord) error {
		written = m
		return nil
	}).Times(1)

	logger := portmocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).Times(1)

	s := scheduler.New(upd, meta, logger, 2, 0)
	report, err := s.Run(context.Background(), "daily", "default", []string{"cspx", "vwce", "agg", "eimi"})
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.True(t, report.HasFailures())

	// Results come back in entity order regardless of completion order.
	require.Len(t, report.Results, 4)
	require.Equal(t, "agg", report.Results[0].Entity)
	require.Equal(t, "cspx", report.Results[1].Entity)
	require.Equal(t, "eimi", report.Results[2].Entity)
	require.Equal(t, "vwce", report.Results[3].Entity)
	require.NotEmpty(t, report.Results[2].Error)

	require.Equal(t, 1, report.Counts.ValidNoop)
	require.Equal(t, 1, report.Counts.Incremental)
	require.Equal(t, 1, report.Counts.Full)
	require.Equal(t, 1, report.Counts.Failed)
	require.Equal(t, 0, report.Counts.Skipped)

	require.Equal(t, "daily", written.Tier)
	require.Equal(t, "default", written.ParameterSet)
	require.Equal(t, 4, written.EntityCount)
	require.Equal(t, report.Counts, written.Counts)
}

func TestScheduler_Run_BoundedWorkers(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		var mu sync.Mutex
		running, peak := 0, 0

		upd := mocks.NewMockEntityUpdater(ctrl)
		upd.EXPECT().Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string) (domain.Outcome, error) {
				mu.Lock()
				running++
				if running > peak {
					peak = running
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return domain.OutcomeValidNoop, nil
			}).Times(6)

		meta := portmocks.NewMockMetaStore(ctrl)
		meta.EXPECT().PutMeta(gomock.Any()).Return(nil)

		logger := portmocks.NewMockLogger(ctrl)
		logger.EXPECT().Info(gomock.Any()).AnyTimes()

		s := scheduler.New(upd, meta, logger, 2, 0)
		report, err := s.Run(context.Background(), "daily", "default",
			[]string{"a", "b", "c", "d", "e", "f"})
		require.NoError(t, err)
		require.Equal(t, 6, report.Counts.ValidNoop)
		require.Equal(t, 2, peak)
	})
}

func TestScheduler_Run_DeadlineSkipsUnstarted(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		upd := mocks.NewMockEntityUpdater(ctrl)
		// The first entity outlives the run deadline but still completes.
		upd.EXPECT().Update(gomock.Any(), "a").
			DoAndReturn(func(_ context.Context, _ string) (domain.Outcome, error) {
				time.Sleep(2 * time.Second)
				return domain.OutcomeIncremental, nil
			})

		meta := portmocks.NewMockMetaStore(ctrl)
		meta.EXPECT().PutMeta(gomock.Any()).Return(nil)

		logger := portmocks.NewMockLogger(ctrl)
		logger.EXPECT().Info(gomock.Any()).AnyTimes()

		s := scheduler.New(upd, meta, logger, 1, time.Second)
		report, err := s.Run(context.Background(), "daily", "default", []string{"a", "b"})
		require.NoError(t, err)

		require.Len(t, report.Results, 2)
		require.Equal(t, domain.OutcomeIncremental, report.Results[0].Outcome)
		require.Equal(t, domain.OutcomeSkipped, report.Results[1].Outcome)
		require.Equal(t, 1, report.Counts.Skipped)
	})
}

func TestScheduler_Run_MetaWriteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	upd := mocks.NewMockEntityUpdater(ctrl)
	upd.EXPECT().Update(gomock.Any(), "a").Return(domain.OutcomeValidNoop, nil)

	meta := portmocks.NewMockMetaStore(ctrl)
	meta.EXPECT().PutMeta(gomock.Any()).Return(zerr.New("disk full"))

	logger := portmocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	s := scheduler.New(upd, meta, logger, 1, 0)
	report, err := s.Run(context.Background(), "daily", "default", []string{"a"})
	require.Error(t, err)
	require.NotNil(t, report)
	require.Equal(t, 1, report.Counts.ValidNoop)
}
