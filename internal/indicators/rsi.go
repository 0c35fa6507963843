package indicators

import (
	"fmt"
	"math"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
)

// rsiConvergenceFactor scales a period into a warmup depth. A truncated
// Wilder recursion decays its carried state by (p-1)/p per row, so after
// 14*p rows the unseen-history residual on the smoothed averages is down
// to e^-14 ~ 8e-7. The RSI transfer function can still amplify that past
// 1e-6, so a spliced value needs the full multiplier-scaled window behind
// it before it may replace one computed from complete history.
const rsiConvergenceFactor = 14

var defaultRSIPeriods = []int{6, 12, 24}

// RSI computes Wilder-smoothed relative strength over one or more periods.
type RSI struct {
	periods []int
}

func newRSI(p Params) (ports.IndicatorEngine, error) {
	return &RSI{periods: validPeriods(p.Periods, defaultRSIPeriods)}, nil
}

func (r *RSI) Name() string { return "rsi" }

func (r *RSI) WarmupDepth() int {
	return maxPeriod(r.periods) * rsiConvergenceFactor
}

// Compute derives rsi_<p> columns from the close series. Rows before the
// slowest period has seeded carry no derived value and are omitted, so the
// output is a suffix of the input dates.
func (r *RSI) Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error) {
	closes, err := fieldSeries(records, "close")
	if err != nil {
		return nil, err
	}

	slowest := maxPeriod(r.periods)
	if len(records) <= slowest {
		return nil, nil
	}

	byPeriod := make(map[int][]float64, len(r.periods))
	for _, p := range r.periods {
		byPeriod[p] = wilderRSI(closes, p)
	}

	out := make([]domain.DerivedRecord, 0, len(records)-slowest)
	for i := slowest; i < len(records); i++ {
		fields := make(map[string]float64, len(r.periods))
		for _, p := range r.periods {
			fields[fmt.Sprintf("rsi_%d", p)] = round(byPeriod[p][i])
		}
		out = append(out, domain.DerivedRecord{
			Entity: records[i].Entity,
			Date:   records[i].Date,
			Fields: fields,
		})
	}
	return out, nil
}

// wilderRSI returns the RSI series for one period, NaN before index p.
func wilderRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= period {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	decay := float64(period-1) / float64(period)
	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = avgGain*decay + gain/float64(period)
		avgLoss = avgLoss*decay + loss/float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}
