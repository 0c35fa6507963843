package domain

import "time"

// Outcome classifies how a single entity fared in a batch run.
type Outcome string

const (
	// OutcomeValidNoop means the cache entry was still valid and untouched.
	OutcomeValidNoop Outcome = "valid_noop"
	// OutcomeIncremental means a spliced tail recompute was performed.
	OutcomeIncremental Outcome = "incremental"
	// OutcomeFull means the series was recomputed from scratch.
	OutcomeFull Outcome = "full"
	// OutcomeFailed means the entity's update failed and the old entry was preserved.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped means the entity was never started before the run deadline.
	OutcomeSkipped Outcome = "skipped"
)

// Counts aggregates entity outcomes for one run.
type Counts struct {
	ValidNoop   int `json:"valid_noop"`
	Incremental int `json:"incremental"`
	Full        int `json:"full"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
}

// Add increments the counter matching o.
func (c *Counts) Add(o Outcome) {
	switch o {
	case OutcomeValidNoop:
		c.ValidNoop++
	case OutcomeIncremental:
		c.Incremental++
	case OutcomeFull:
		c.Full++
	case OutcomeFailed:
		c.Failed++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// EntityResult is the per-entity outcome of a batch run.
type EntityResult struct {
	Entity  string  `json:"entity"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// BatchReport is the structured result of one scheduler run.
type BatchReport struct {
	RunID        string         `json:"run_id"`
	Tier         string         `json:"tier"`
	ParameterSet string         `json:"parameter_set"`
	Started      time.Time      `json:"started"`
	Finished     time.Time      `json:"finished"`
	Results      []EntityResult `json:"results"`
	Counts       Counts         `json:"counts"`
}

// HasFailures reports whether any entity failed during the run.
func (r *BatchReport) HasFailures() bool {
	return r.Counts.Failed > 0
}

// Divergence is a single field-level mismatch between two sources.
type Divergence struct {
	Entity string  `json:"entity"`
	Date   Date    `json:"date"`
	Field  string  `json:"field"`
	A      float64 `json:"a"`
	B      float64 `json:"b"`
}

// RepairFailure records a repair write that failed after its one retry.
type RepairFailure struct {
	Entity string `json:"entity"`
	Date   Date   `json:"date"`
	Reason string `json:"reason"`
}

// ReconciliationReport is the result of comparing two sources over their
// overlapping date range.
type ReconciliationReport struct {
	RunID       string       `json:"run_id"`
	SourceA     string       `json:"source_a"`
	SourceB     string       `json:"source_b"`
	Overlap     DateRange    `json:"overlap"`
	Tolerance   float64      `json:"tolerance"`
	Divergences []Divergence `json:"divergences"`
	CreatedAt   time.Time    `json:"created_at"`
}

// FlaggedDates returns the distinct (entity, date) pairs with at least one
// divergence, in report order.
func (r *ReconciliationReport) FlaggedDates() []Divergence {
	seen := make(map[string]bool, len(r.Divergences))
	var flagged []Divergence
	for _, d := range r.Divergences {
		key := d.Entity + "|" + d.Date.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		flagged = append(flagged, d)
	}
	return flagged
}

// RepairResult summarizes a repair pass over a reconciliation report.
type RepairResult struct {
	Repaired    int             `json:"repaired"`
	Invalidated int             `json:"invalidated"`
	Failures    []RepairFailure `json:"failures"`
}
