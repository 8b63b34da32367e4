package monitoring

import (
	"runtime"
	"time"
)

// MemoryStats is a point-in-time snapshot of runtime memory usage. Period
// networks and agreement tables live entirely in memory, so the /metrics
// endpoint exposes these alongside request counters.
type MemoryStats struct {
	AllocBytes     uint64    `json:"alloc_bytes"`
	SysBytes       uint64    `json:"sys_bytes"`
	HeapAllocBytes uint64    `json:"heap_alloc_bytes"`
	HeapObjects    uint64    `json:"heap_objects"`
	NumGC          uint32    `json:"num_gc"`
	GCCPUFraction  float64   `json:"gc_cpu_fraction"`
	NumGoroutine   int       `json:"num_goroutine"`
	CollectedAt    time.Time `json:"collected_at"`
}

// ReadMemoryStats captures the current runtime memory statistics
func ReadMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryStats{
		AllocBytes:     m.Alloc,
		SysBytes:       m.Sys,
		HeapAllocBytes: m.HeapAlloc,
		HeapObjects:    m.HeapObjects,
		NumGC:          m.NumGC,
		GCCPUFraction:  m.GCCPUFraction,
		NumGoroutine:   runtime.NumGoroutine(),
		CollectedAt:    time.Now(),
	}
}
