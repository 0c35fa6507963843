package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so "30s"-style values parse from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// DefaultFileName is the configuration file ebb looks for when --config
// is not given.
const DefaultFileName = "ebb.yaml"

// Config is the ebb.yaml schema. Defaults come from creasty/defaults tags,
// constraints from go-playground/validator tags.
type Config struct {
	// Tiers enumerates the valid tier names. Running against a tier not
	// listed here is a fatal configuration error.
	Tiers []string `yaml:"tiers" validate:"required,min=1,dive,required"`

	// SourceDir is the primary raw-series directory used by run-batch.
	SourceDir string `yaml:"source_dir" validate:"required"`

	// CacheDir is the root of the derived-series cache.
	CacheDir string `yaml:"cache_dir" validate:"required"`

	// Sources maps reconciliation tags (e.g. "daily", "weekly") to raw-series
	// directories.
	Sources map[string]string `yaml:"sources" validate:"omitempty,dive,required"`

	// ParameterSets maps a parameter-set name to the indicator family and
	// periods it computes.
	ParameterSets map[string]ParamSet `yaml:"parameter_sets" validate:"required,min=1,dive"`

	// WarmupMultiplier scales each engine's warmup depth into the splice
	// window.
	WarmupMultiplier float64 `yaml:"warmup_multiplier" default:"2.5" validate:"gte=1"`

	// Tolerance is the relative tolerance used by reconciliation.
	Tolerance float64 `yaml:"tolerance" default:"0.001" validate:"gt=0,lt=1"`

	// WorkerCount bounds the batch worker pool. Zero means one worker per CPU.
	WorkerCount int `yaml:"worker_count" validate:"gte=0"`

	// RunTimeout is the run-level deadline for a batch. Zero disables it.
	RunTimeout Duration `yaml:"run_timeout"`

	// AutoRepair lets reconcile write authoritative rows over divergent ones
	// without the --repair flag.
	AutoRepair bool `yaml:"auto_repair" default:"false"`

	Log LogConfig `yaml:"log"`
}

// ParamSet names an indicator family and its periods.
type ParamSet struct {
	Family  string `yaml:"family" validate:"required"`
	Periods []int  `yaml:"periods" validate:"omitempty,dive,gt=0"`
}

// LogConfig configures the zerolog adapter.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}
