package indicators

import (
	"fmt"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
)

var defaultWilliamsPeriods = []int{9, 14, 21}

// WilliamsR computes Williams %R over one or more rolling windows.
// Values depend only on the trailing window, so the warmup depth equals the
// slowest period and incremental splices are exact.
type WilliamsR struct {
	periods []int
}

func newWilliams(p Params) (ports.IndicatorEngine, error) {
	return &WilliamsR{periods: validPeriods(p.Periods, defaultWilliamsPeriods)}, nil
}

func (w *WilliamsR) Name() string { return "williams" }

func (w *WilliamsR) WarmupDepth() int { return maxPeriod(w.periods) }

// Compute derives wr_<p> columns: %R = ((Hn - C) / (Hn - Ln)) * -100.
func (w *WilliamsR) Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error) {
	highs, err := fieldSeries(records, "high")
	if err != nil {
		return nil, err
	}
	lows, err := fieldSeries(records, "low")
	if err != nil {
		return nil, err
	}
	closes, err := fieldSeries(records, "close")
	if err != nil {
		return nil, err
	}

	slowest := maxPeriod(w.periods)
	if len(records) < slowest {
		return nil, nil
	}

	out := make([]domain.DerivedRecord, 0, len(records)-slowest+1)
	for i := slowest - 1; i < len(records); i++ {
		fields := make(map[string]float64, len(w.periods))
		for _, p := range w.periods {
			hh, ll := highs[i], lows[i]
			for j := i - p + 1; j < i; j++ {
				if highs[j] > hh {
					hh = highs[j]
				}
				if lows[j] < ll {
					ll = lows[j]
				}
			}
			wr := 0.0
			if hh != ll {
				wr = (hh - closes[i]) / (hh - ll) * -100
			}
			fields[fmt.Sprintf("wr_%d", p)] = round(wr)
		}
		out = append(out, domain.DerivedRecord{
			Entity: records[i].Entity,
			Date:   records[i].Date,
			Fields: fields,
		})
	}
	return out, nil
}
