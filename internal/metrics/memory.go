package metrics

import "runtime"

// MemorySnapshot holds a point-in-time memory reading of the orchestrator
// process (not the solver subprocesses, which the OS accounts separately).
type MemorySnapshot struct {
	HeapAlloc uint64 // bytes in use by the orchestrator
	Sys       uint64 // total bytes obtained from the OS
	NumGC     uint32 // number of completed GC cycles
}

// MemoryCollector reads runtime memory statistics for display in the
// dashboard.
type MemoryCollector struct{}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{}
}

// Snapshot reads current memory statistics.
func (mc *MemoryCollector) Snapshot() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc: m.HeapAlloc,
		Sys:       m.Sys,
		NumGC:     m.NumGC,
	}
}
