package reconcile_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/ebb/internal/adapters/csvsource"
	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports/mocks"
	"go.trai.ch/ebb/internal/engine/reconcile"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func writeCSV(t *testing.T, dir, entity string, rows [][3]string) {
	t.Helper()
	content := "date,close,volume\n"
	for _, row := range rows {
		content += fmt.Sprintf("%s,%s,%s\n", row[0], row[1], row[2])
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, entity+".csv"), []byte(content), 0o644))
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Debug(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return logger
}

// Source A runs 2024-01-05..2024-01-15, source B 2024-01-08..2024-01-20,
// and B's close on 2024-01-12 is off by 0.5%. With tolerance 0.001 exactly
// that one field must be flagged; after repairing from A the divergence is
// gone and every cache entry spanning the date is dropped.
func TestReconciler_DivergenceAndRepair(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dirA, dirB := t.TempDir(), t.TempDir()
	var rowsA, rowsB [][3]string
	for day := 5; day <= 15; day++ {
		rowsA = append(rowsA, [3]string{
			fmt.Sprintf("2024-01-%02d", day), fmt.Sprintf("%d", 100+day), "1000",
		})
	}
	for day := 8; day <= 20; day++ {
		closing := fmt.Sprintf("%d", 100+day)
		if day == 12 {
			closing = "112.56" // 112 + 0.5%
		}
		rowsB = append(rowsB, [3]string{fmt.Sprintf("2024-01-%02d", day), closing, "1000"})
	}
	writeCSV(t, dirA, "e1", rowsA)
	writeCSV(t, dirB, "e1", rowsB)

	storeA, storeB := csvsource.New(dirA), csvsource.New(dirB)
	cache := mocks.NewMockCacheStore(ctrl)
	r := reconcile.New(storeA, storeB, "primary", "mirror", cache, quietLogger(ctrl), 0.001)

	report, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "primary", report.SourceA)
	require.Equal(t, domain.DateRange{Start: "2024-01-08", End: "2024-01-15"}, report.Overlap)
	require.Len(t, report.Divergences, 1)
	div := report.Divergences[0]
	require.Equal(t, "e1", div.Entity)
	require.Equal(t, domain.Date("2024-01-12"), div.Date)
	require.Equal(t, "close", div.Field)
	require.InDelta(t, 112.0, div.A, 1e-9)
	require.InDelta(t, 112.56, div.B, 1e-9)

	cache.EXPECT().InvalidateSpanning("e1", domain.Date("2024-01-12")).Return(2, nil)

	result, err := r.Repair(context.Background(), report, "primary")
	require.NoError(t, err)
	require.Equal(t, 1, result.Repaired)
	require.Equal(t, 2, result.Invalidated)
	require.Empty(t, result.Failures)

	// The mirror now carries the authoritative row verbatim.
	seriesB, err := storeB.Read("e1")
	require.NoError(t, err)
	for _, row := range seriesB {
		if row.Date == "2024-01-12" {
			require.InDelta(t, 112.0, row.Fields["close"], 1e-9)
		}
	}

	clean, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, clean.Divergences)
}

func TestReconciler_SubsumedRangeSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dirA, dirB := t.TempDir(), t.TempDir()
	writeCSV(t, dirA, "e1", [][3]string{
		{"2024-01-01", "10", "1"},
		{"2024-01-02", "20", "1"},
		{"2024-01-03", "30", "1"},
		{"2024-01-04", "40", "1"},
	})
	// Strictly inside A's range, with wildly different values.
	writeCSV(t, dirB, "e1", [][3]string{
		{"2024-01-02", "99", "1"},
		{"2024-01-03", "99", "1"},
	})

	r := reconcile.New(csvsource.New(dirA), csvsource.New(dirB), "a", "b",
		mocks.NewMockCacheStore(ctrl), quietLogger(ctrl), 0.001)

	report, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, report.Divergences)
	require.True(t, report.Overlap.IsEmpty())
}

func TestReconciler_MissingRowIsPresenceDivergence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dirA, dirB := t.TempDir(), t.TempDir()
	writeCSV(t, dirA, "e1", [][3]string{
		{"2024-01-01", "10", "1"},
		{"2024-01-02", "20", "1"},
		{"2024-01-03", "30", "1"},
	})
	writeCSV(t, dirB, "e1", [][3]string{
		{"2023-12-29", "9", "1"},
		{"2024-01-01", "10", "1"},
		{"2024-01-03", "30", "1"}, // 2024-01-02 missing
	})

	r := reconcile.New(csvsource.New(dirA), csvsource.New(dirB), "a", "b",
		mocks.NewMockCacheStore(ctrl), quietLogger(ctrl), 0.001)

	report, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, report.Divergences, 1)
	div := report.Divergences[0]
	require.Equal(t, reconcile.FieldPresence, div.Field)
	require.Equal(t, domain.Date("2024-01-02"), div.Date)
	require.Equal(t, 1.0, div.A)
	require.Equal(t, 0.0, div.B)
}

func TestReconciler_EntitiesOnlyInOneSourceIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dirA, dirB := t.TempDir(), t.TempDir()
	writeCSV(t, dirA, "only_a", [][3]string{{"2024-01-01", "10", "1"}})
	writeCSV(t, dirB, "only_b", [][3]string{{"2024-01-01", "10", "1"}})

	r := reconcile.New(csvsource.New(dirA), csvsource.New(dirB), "a", "b",
		mocks.NewMockCacheStore(ctrl), quietLogger(ctrl), 0.001)

	report, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, report.Divergences)
}

func TestReconciler_CallerEntitySliceNotReordered(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dirA, dirB := t.TempDir(), t.TempDir()
	for _, entity := range []string{"e1", "e2"} {
		rows := [][3]string{{"2024-01-01", "10", "1"}, {"2024-01-02", "20", "1"}}
		writeCSV(t, dirA, entity, rows)
		writeCSV(t, dirB, entity, rows)
	}

	r := reconcile.New(csvsource.New(dirA), csvsource.New(dirB), "a", "b",
		mocks.NewMockCacheStore(ctrl), quietLogger(ctrl), 0.001)

	entities := []string{"e2", "e1"}
	report, err := r.Reconcile(context.Background(), entities)
	require.NoError(t, err)
	require.Empty(t, report.Divergences)
	require.Equal(t, []string{"e2", "e1"}, entities)
}

// Repair copies rows, never deletes: a flagged date the authoritative
// source does not have is reported as a failure and the extra row in the
// other source is left alone.
func TestRepair_RowMissingFromAuthoritativeIsFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auth := mocks.NewMockSourceStore(ctrl)
	auth.EXPECT().Read("e1").Return([]domain.RawRecord{
		{Entity: "e1", Date: "2024-01-01", Fields: map[string]float64{"close": 10}},
	}, nil)

	target := mocks.NewMockSourceStore(ctrl) // no WriteRow expected

	cache := mocks.NewMockCacheStore(ctrl)
	r := reconcile.New(auth, target, "a", "b", cache, quietLogger(ctrl), 0.001)

	report := &domain.ReconciliationReport{
		SourceA: "a",
		SourceB: "b",
		Divergences: []domain.Divergence{
			{Entity: "e1", Date: "2024-01-02", Field: reconcile.FieldPresence, A: 0, B: 1},
		},
	}
	result, err := r.Repair(context.Background(), report, "a")
	require.NoError(t, err)
	require.Equal(t, 0, result.Repaired)
	require.Len(t, result.Failures, 1)
	require.Contains(t, result.Failures[0].Reason, "no row for this date")
}

func TestRepair_WriteRetriedOnceThenReported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	auth := mocks.NewMockSourceStore(ctrl)
	auth.EXPECT().Read("e1").Return([]domain.RawRecord{
		{Entity: "e1", Date: "2024-01-02", Fields: map[string]float64{"close": 20}},
	}, nil)

	target := mocks.NewMockSourceStore(ctrl)
	target.EXPECT().WriteRow("e1", gomock.Any()).
		Return(zerr.New("read-only filesystem")).Times(2)

	cache := mocks.NewMockCacheStore(ctrl)
	r := reconcile.New(auth, target, "a", "b", cache, quietLogger(ctrl), 0.001)

	report := &domain.ReconciliationReport{
		SourceA: "a",
		SourceB: "b",
		Divergences: []domain.Divergence{
			{Entity: "e1", Date: "2024-01-02", Field: "close", A: 20, B: 21},
		},
	}
	result, err := r.Repair(context.Background(), report, "a")
	require.NoError(t, err)
	require.Equal(t, 0, result.Repaired)
	require.Len(t, result.Failures, 1)
	require.Contains(t, result.Failures[0].Reason, "read-only filesystem")
}

func TestRepair_UnknownAuthoritativeIsConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := reconcile.New(mocks.NewMockSourceStore(ctrl), mocks.NewMockSourceStore(ctrl),
		"a", "b", mocks.NewMockCacheStore(ctrl), quietLogger(ctrl), 0.001)

	_, err := r.Repair(context.Background(), &domain.ReconciliationReport{}, "nope")
	require.ErrorIs(t, err, domain.ErrConfig)
}
