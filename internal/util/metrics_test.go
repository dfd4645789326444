package util

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFormatMemStats(t *testing.T) {
	got := FormatMemStats(MemStats{
		Alloc:      512,
		TotalAlloc: 3 * 1024 * 1024,
		Sys:        2048,
		HeapInuse:  1024,
		Goroutines: 7,
		NumGC:      2,
	})

	for _, want := range []string{"alloc=512 B", "total=3.0 MiB", "sys=2.0 KiB", "heap_inuse=1.0 KiB", "goroutines=7", "gc=2"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatMemStats() = %q, missing %q", got, want)
		}
	}
}

func TestGetMemStats(t *testing.T) {
	stats := GetMemStats()
	if stats.Sys == 0 || stats.Goroutines == 0 {
		t.Errorf("GetMemStats() = %+v, want non-zero sys and goroutines", stats)
	}
}

type syncBuffer struct {
	mu  chan struct{}
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu <- struct{}{}
	defer func() { <-b.mu }()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu <- struct{}{}
	defer func() { <-b.mu }()
	return b.buf.String()
}

func TestStartMemoryMonitor(t *testing.T) {
	out := &syncBuffer{mu: make(chan struct{}, 1)}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithCancel(context.Background())
	StartMemoryMonitor(ctx, 10*time.Millisecond, logger)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(out.String(), "component=RUNTIME") {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	if !strings.Contains(out.String(), "goroutines=") {
		t.Errorf("monitor output = %q, want a memory line", out.String())
	}
}
