// Package worker provides background job processing for CropSight.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the analytics refresh job.
type RefreshConfig struct {
	// StaleAfter is the age at which a farm's analytics are considered
	// stale and eligible for refresh. Default: 7 days.
	StaleAfter time.Duration

	// BatchLimit caps the number of farms refreshed per run. Farms are
	// picked oldest-analysis first, never-analyzed farms first of all.
	// Default: 50
	BatchLimit int

	// Concurrency is the number of concurrent analyses.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for analyzing a single farm.
	// Default: 60 seconds
	Timeout time.Duration

	// LookbackDays is the satellite scene search window passed to each
	// analysis. Default: 10
	LookbackDays int
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		StaleAfter:   7 * 24 * time.Hour,
		BatchLimit:   50,
		Concurrency:  3,
		Timeout:      60 * time.Second,
		LookbackDays: 10,
	}
}

// withDefaults fills in zero fields.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.StaleAfter <= 0 {
		c.StaleAfter = def.StaleAfter
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = def.BatchLimit
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = def.LookbackDays
	}
	return c
}
