package indicators

import (
	"fmt"

	"go.trai.ch/ebb/internal/core/domain"
	"go.trai.ch/ebb/internal/core/ports"
)

var defaultVMAPeriods = []int{5, 10, 20}

// VMA computes simple moving averages of volume.
type VMA struct {
	periods []int
}

func newVMA(p Params) (ports.IndicatorEngine, error) {
	return &VMA{periods: validPeriods(p.Periods, defaultVMAPeriods)}, nil
}

func (v *VMA) Name() string { return "vma" }

func (v *VMA) WarmupDepth() int { return maxPeriod(v.periods) }

// Compute derives vma_<p> columns from the volume series.
func (v *VMA) Compute(records []domain.RawRecord) ([]domain.DerivedRecord, error) {
	volumes, err := fieldSeries(records, "volume")
	if err != nil {
		return nil, err
	}

	slowest := maxPeriod(v.periods)
	if len(records) < slowest {
		return nil, nil
	}

	out := make([]domain.DerivedRecord, 0, len(records)-slowest+1)
	for i := slowest - 1; i < len(records); i++ {
		fields := make(map[string]float64, len(v.periods))
		for _, p := range v.periods {
			sum := 0.0
			for j := i - p + 1; j <= i; j++ {
				sum += volumes[j]
			}
			fields[fmt.Sprintf("vma_%d", p)] = round(sum / float64(p))
		}
		out = append(out, domain.DerivedRecord{
			Entity: records[i].Entity,
			Date:   records[i].Date,
			Fields: fields,
		})
	}
	return out, nil
}
