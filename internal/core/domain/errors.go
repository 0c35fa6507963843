package domain

import "go.trai.ch/zerr"

var (
	// ErrSourceUnavailable is returned when an entity's raw data is missing or unreadable.
	ErrSourceUnavailable = zerr.New("source unavailable")

	// ErrCacheCorrupt is returned when a cache entry exists but cannot be decoded.
	// Callers treat it as a cache miss and take the full recompute path.
	ErrCacheCorrupt = zerr.New("cache corrupt")

	// ErrComputeFailed is returned when an indicator engine fails; the prior
	// cache entry is preserved untouched.
	ErrComputeFailed = zerr.New("indicator compute failed")

	// ErrRepairFailed is returned when a reconciliation repair write fails
	// after its single retry.
	ErrRepairFailed = zerr.New("repair failed")

	// ErrConfig is returned for configuration problems (unknown tier or
	// parameter set, missing directories). It aborts the whole run.
	ErrConfig = zerr.New("invalid configuration")

	// ErrBatchIncomplete is returned by the CLI layer when a batch finished
	// with failed or skipped entities. The report still holds every outcome.
	ErrBatchIncomplete = zerr.New("batch finished with failures")

	// ErrDivergence is returned by the CLI layer when reconciliation found
	// divergences that were not (fully) repaired.
	ErrDivergence = zerr.New("sources diverge")
)
