package indicators

import (
	"fmt"
	"math"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
)

var defaultPVFitPeriods = []int{10, 20, 30}

const (
	pvStrengthWindow   = 5
	pvDivergenceWindow = 10
)

// PVFit measures how well price moves are confirmed by volume. It derives
// rolling price/volume change correlations (pv_corr_<p>), the cumulative
// volume-price trend (vpt) with its one-step momentum, a price-to-volume
// momentum ratio (pv_strength), and the divergence between price trend and
// vpt trend (pv_divergence). The vpt accumulator runs from the first row of
// the series, so like OBV the family reports an effectively infinite warmup
// depth and is always recomputed in full.
type PVFit struct {
	periods []int
}

func newPVFit(p Params) (ports.IndicatorEngine, error) {
	return &PVFit{periods: validPeriods(p.Periods, defaultPVFitPeriods)}, nil
}

func (f *PVFit) Name() string { return "pvfit" }

func (f *PVFit) WarmupDepth() int { return math.MaxInt32 }

// Compute derives the price-volume columns. Emission starts once the
// slowest correlation window (and the divergence window) has a full set of
// one-step changes behind it.
func (f *PVFit) Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error) {
	closes, err := fieldSeries(records, "close")
	if err != nil {
		return nil, err
	}
	volumes, err := fieldSeries(records, "volume")
	if err != nil {
		return nil, err
	}

	slowest := maxPeriod(f.periods)
	if slowest < pvDivergenceWindow {
		slowest = pvDivergenceWindow
	}
	if len(records) <= slowest {
		return nil, nil
	}

	// One-step relative changes; index 0 has no prior row and stays zero.
	priceChg := make([]float64, len(records))
	volumeChg := make([]float64, len(records))
	vpt := make([]float64, len(records))
	for i := 1; i < len(records); i++ {
		priceChg[i] = relChange(closes[i], closes[i-1])
		volumeChg[i] = relChange(volumes[i], volumes[i-1])
		vpt[i] = vpt[i-1] + volumes[i]*priceChg[i]
	}

	out := make([]domain.DerivedRecord, 0, len(records)-slowest)
	for i := slowest; i < len(records); i++ {
		fields := make(map[string]float64, len(f.periods)+4)
		for _, p := range f.periods {
			fields[fmt.Sprintf("pv_corr_%d", p)] = round(correlation(
				priceChg[i-p+1:i+1], volumeChg[i-p+1:i+1]))
		}
		fields["vpt"] = round(vpt[i])
		fields["vpt_momentum"] = round(vpt[i] - vpt[i-1])
		fields["pv_strength"] = round(
			math.Abs(relChange(closes[i], closes[i-pvStrengthWindow])) /
				(math.Abs(relChange(volumes[i], volumes[i-pvStrengthWindow])) + 1e-8))
		fields["pv_divergence"] = round(math.Abs(
			relChange(closes[i], closes[i-pvDivergenceWindow])-
				relChange(vpt[i], vpt[i-pvDivergenceWindow])) * 100)
		out = append(out, domain.DerivedRecord{
			Entity: records[i].Entity,
			Date:   records[i].Date,
			Fields: fields,
		})
	}
	return out, nil
}

func relChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev
}

// correlation is the Pearson coefficient of two equal-length samples. A
// flat sample has no defined correlation and yields zero.
func correlation(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
