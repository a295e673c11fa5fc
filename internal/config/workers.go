package config

import "runtime"

// Worker count resolution chain (highest priority first):
//  1. CLI flag (--workers)
//  2. Environment variable (NDRADEX_WORKERS)
//  3. YAML config file
//  4. Adaptive hardware estimation (this file), when set to 0
//  5. Static default (DefaultWorkers)

// ApplyAdaptiveWorkers fills in an estimated worker count when the
// configured value is 0, preserving any explicit user choice.
func ApplyAdaptiveWorkers(cfg Config) Config {
	if cfg.Workers == 0 {
		cfg.Workers = EstimateWorkers()
	}
	return cfg
}

// EstimateWorkers provides a heuristic pool size without benchmarking. Each
// worker drives one solver subprocess, so the estimate tracks the core count
// but leaves headroom for the dispatcher and the presentation layer.
func EstimateWorkers() int {
	numCPU := runtime.NumCPU()

	switch {
	case numCPU <= 2:
		return DefaultWorkers
	case numCPU <= 8:
		return numCPU - 1
	default:
		return 8 // Solver runs are short; beyond 8 workers fork/exec dominates.
	}
}
