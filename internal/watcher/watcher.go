// Package watcher imports replay files dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/loader"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultSettleDelay is how long a file must stay unchanged before it is read,
	// so half-written files are not imported.
	DefaultSettleDelay = 500 * time.Millisecond

	queueSize = 256
)

// PayloadImporter stores a parsed payload for a user.
// *importer.Importer implements it.
type PayloadImporter interface {
	ImportPayload(ctx context.Context, userID string, payload battlelog.RawMatchPayload) (*battlelog.MatchFacts, bool, error)
}

// Options configures a Watcher
type Options struct {
	SettleDelay time.Duration
	// OnImported is called after every successful import; used by tests and the CLI.
	OnImported func(path string, facts *battlelog.MatchFacts, created bool)
}

// Watcher monitors a directory and imports replay files on behalf of one user
type Watcher struct {
	watcher     *fsnotify.Watcher
	importer    PayloadImporter
	userID      string
	logger      *slog.Logger
	settleDelay time.Duration
	onImported  func(path string, facts *battlelog.MatchFacts, created bool)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// files are processed one at a time by a single worker
	queue chan string

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// New creates a watcher importing files for userID
func New(importer PayloadImporter, userID string, logger *slog.Logger, opts Options) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		watcher:     fsWatcher,
		importer:    importer,
		userID:      userID,
		logger:      logger,
		settleDelay: opts.SettleDelay,
		onImported:  opts.OnImported,
		ctx:         ctx,
		cancel:      cancel,
		queue:       make(chan string, queueSize),
		pending:     make(map[string]*time.Timer),
	}, nil
}

// AddDir watches dir and queues the replay files already in it
func (w *Watcher) AddDir(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("watch directory %s does not exist: %w", absDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", absDir)
	}

	if err := w.watcher.Add(absDir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", absDir, err)
	}
	w.logger.Info("Watching directory", "component", "WATCHER", "path", absDir)

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", absDir, err)
	}
	var backlog []string
	for _, entry := range entries {
		if !entry.IsDir() && loader.Supported(entry.Name()) {
			backlog = append(backlog, filepath.Join(absDir, entry.Name()))
		}
	}

	// the backlog can be larger than the queue; feed it as the worker frees slots
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for _, path := range backlog {
			if !w.enqueue(path) {
				return
			}
		}
	}()

	return nil
}

// Start begins watching for file changes
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.watchLoop()
	go w.worker()
}

// Stop stops the watcher and waits for the worker to finish the current file
func (w *Watcher) Stop() {
	w.cancel()

	w.pendingMu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.pendingMu.Unlock()

	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", "component", "WATCHER", "error", err)
		}
	}
}

func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !loader.Supported(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule (re)starts the settle timer for path; the file is queued once it stops changing
func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.settleDelay)
		return
	}

	w.pending[path] = time.AfterFunc(w.settleDelay, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()

		w.enqueue(path)
	})
}

// enqueue waits for a free queue slot. It reports false once the watcher is stopped.
// Callers run on their own goroutine (settle timers, the backlog feeder), never the event loop.
func (w *Watcher) enqueue(path string) bool {
	if w.ctx.Err() != nil {
		return false
	}
	select {
	case w.queue <- path:
		return true
	case <-w.ctx.Done():
		return false
	}
}

func (w *Watcher) worker() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case path := <-w.queue:
			if err := w.ProcessFile(path); err != nil {
				w.logger.Warn("Failed to import file", "component", "WATCHER", "path", path, "error", err)
			}
		}
	}
}

// ProcessFile loads one replay file and imports it.
func (w *Watcher) ProcessFile(path string) error {
	payload, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	facts, created, err := w.importer.ImportPayload(w.ctx, w.userID, payload)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	w.logger.Info("Imported replay file",
		"component", "WATCHER",
		"path", path,
		"url", facts.URL,
		"created", created)

	if w.onImported != nil {
		w.onImported(path, facts, created)
	}
	return nil
}
