// Package util reports process runtime statistics for the status route and
// the debug memory monitor.
package util

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// MemStats represents memory statistics
type MemStats struct {
	Alloc      uint64 `json:"alloc"`      // Currently allocated memory in bytes
	TotalAlloc uint64 `json:"totalAlloc"` // Total allocated memory in bytes
	Sys        uint64 `json:"sys"`        // Total memory obtained from OS in bytes
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapInuse  uint64 `json:"heapInuse"`
	HeapIdle   uint64 `json:"heapIdle"`
}

// GetMemStats returns current memory statistics
func GetMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemStats{
		Alloc:      m.Alloc,
		TotalAlloc: m.TotalAlloc,
		Sys:        m.Sys,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapInuse:  m.HeapInuse,
		HeapIdle:   m.HeapIdle,
	}
}

// FormatMemStats returns a one-line human readable summary
func FormatMemStats(stats MemStats) string {
	return fmt.Sprintf("alloc=%s total=%s sys=%s heap_inuse=%s heap_idle=%s goroutines=%d gc=%d",
		humanize.IBytes(stats.Alloc),
		humanize.IBytes(stats.TotalAlloc),
		humanize.IBytes(stats.Sys),
		humanize.IBytes(stats.HeapInuse),
		humanize.IBytes(stats.HeapIdle),
		stats.Goroutines,
		stats.NumGC,
	)
}

// StartMemoryMonitor logs memory stats at debug level every interval until ctx is done.
func StartMemoryMonitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Debug(FormatMemStats(GetMemStats()), "component", "RUNTIME")
			}
		}
	}()
}
