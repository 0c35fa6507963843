package indicators

import (
	"math"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
)

const obvMAPeriod = 10

// OBV computes on-balance volume, a running sum of signed volume from the
// first row of the series, plus a smoothed obv_ma once enough values exist.
// Because each value depends on the entire history, no finite splice window
// converges: WarmupDepth reports an effectively infinite depth and the
// updater always takes the full recompute path.
type OBV struct{}

func newOBV(Params) (ports.IndicatorEngine, error) {
	return &OBV{}, nil
}

func (o *OBV) Name() string { return "obv" }

func (o *OBV) WarmupDepth() int { return math.MaxInt32 }

// Compute derives the obv column. The first row has no prior close to sign
// against and is omitted.
func (o *OBV) Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error) {
	closes, err := fieldSeries(records, "close")
	if err != nil {
		return nil, err
	}
	volumes, err := fieldSeries(records, "volume")
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}

	obvs := make([]float64, len(records))
	for i := 1; i < len(records); i++ {
		obvs[i] = obvs[i-1]
		switch {
		case closes[i] > closes[i-1]:
			obvs[i] += volumes[i]
		case closes[i] < closes[i-1]:
			obvs[i] -= volumes[i]
		}
	}

	out := make([]domain.DerivedRecord, 0, len(records)-1)
	for i := 1; i < len(records); i++ {
		fields := map[string]float64{"obv": round(obvs[i])}
		if i >= obvMAPeriod {
			sum := 0.0
			for j := i - obvMAPeriod + 1; j <= i; j++ {
				sum += obvs[j]
			}
			fields["obv_ma"] = round(sum / obvMAPeriod)
		}
		out = append(out, domain.DerivedRecord{
			Entity: records[i].Entity,
			Date:   records[i].Date,
			Fields: fields,
		})
	}
	return out, nil
}
