package logger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MultiHandler fans every record out to all of its handlers
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a new handler that writes to multiple handlers.
// Nil handlers are ignored.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	h := &MultiHandler{}
	for _, handler := range handlers {
		if handler != nil {
			h.handlers = append(h.handlers, handler)
		}
	}
	return h
}

// Enabled implements slog.Handler
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler. Each handler only sees records at or above its own level.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

// WithGroup implements slog.Handler
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}

// FileHandlerConfig configures the file handler
type FileHandlerConfig struct {
	FilePath   string        // Path to log file
	Level      slog.Level    // Minimum log level
	AddSource  bool          // Add source file information
	MaxSize    int64         // Max file size in bytes (0 = no rotation)
	MaxBackups int           // Number of rotated log files to keep (default: 5)
	BufferSize int           // Buffer size in bytes (0 = default 8KB)
	FlushEvery time.Duration // How often to flush buffer (0 = default 3s)
}

// bufferedWriter wraps a file with buffered writes and periodic flushing
type bufferedWriter struct {
	file   *os.File
	writer *bufio.Writer
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func newBufferedWriter(file *os.File, bufferSize int, flushInterval time.Duration) *bufferedWriter {
	if bufferSize <= 0 {
		bufferSize = 8192
	}
	if flushInterval <= 0 {
		flushInterval = 3 * time.Second
	}

	bw := &bufferedWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufferSize),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}

	bw.wg.Add(1)
	go bw.periodicFlush()

	return bw
}

func (bw *bufferedWriter) periodicFlush() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ticker.C:
			_ = bw.Flush()
		case <-bw.done:
			return
		}
	}
}

func (bw *bufferedWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return 0, os.ErrClosed
	}
	return bw.writer.Write(p)
}

func (bw *bufferedWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return nil
	}
	if err := bw.writer.Flush(); err != nil {
		return err
	}
	return bw.file.Sync()
}

func (bw *bufferedWriter) Close() error {
	bw.ticker.Stop()
	close(bw.done)
	bw.wg.Wait()

	flushErr := bw.Flush()

	bw.mu.Lock()
	bw.closed = true
	bw.mu.Unlock()

	return errors.Join(flushErr, bw.file.Close())
}

// rotateIfNeeded rotates the file when it reached maxSize.
// Rotation strategy: app.log -> app.log.1 -> app.log.2 -> ... (keeps last maxBackups rotations)
func rotateIfNeeded(filePath string, maxSize int64, maxBackups int) error {
	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	if info.Size() < maxSize {
		return nil
	}

	if maxBackups <= 0 {
		maxBackups = 5
	}

	// the oldest backup falls off the end
	_ = os.Remove(fmt.Sprintf("%s.%d", filePath, maxBackups))
	for i := maxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", filePath, i)
		if _, err := os.Stat(oldPath); err == nil {
			_ = os.Rename(oldPath, fmt.Sprintf("%s.%d", filePath, i+1))
		}
	}

	if err := os.Rename(filePath, filePath+".1"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	return nil
}

// NewFileHandler creates a JSON slog handler writing to config.FilePath.
// The returned Closer flushes and closes the file.
func NewFileHandler(config FileHandlerConfig) (slog.Handler, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if config.MaxSize > 0 {
		if err := rotateIfNeeded(config.FilePath, config.MaxSize, config.MaxBackups); err != nil {
			return nil, nil, err
		}
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	writer := newBufferedWriter(file, config.BufferSize, config.FlushEvery)

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	})

	return handler, writer, nil
}

// Logger wraps slog.Logger and owns the log file
type Logger struct {
	*slog.Logger
	fileCloser io.Closer
}

// NewLogger creates a logger that writes to both the primary handler
// (PocketBase's logger in the app) and a file.
func NewLogger(primary slog.Handler, fileConfig FileHandlerConfig) (*Logger, error) {
	fileHandler, fileCloser, err := NewFileHandler(fileConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create file handler: %w", err)
	}

	return &Logger{
		Logger:     slog.New(NewMultiHandler(primary, fileHandler)),
		fileCloser: fileCloser,
	}, nil
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	if l.fileCloser != nil {
		return l.fileCloser.Close()
	}
	return nil
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values give info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
