package watcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"showdown-tracker/internal/battlelog"
)

const transcript = `|player|p1|Alice|
|player|p2|Bob|
|poke|p1|Great Tusk|
|poke|p2|Gholdengo|
|turn|1
|win|Alice
`

// recordingImporter keeps every payload it is handed
type recordingImporter struct {
	mu       sync.Mutex
	payloads []battlelog.RawMatchPayload
	users    []string
}

func (r *recordingImporter) ImportPayload(ctx context.Context, userID string, payload battlelog.RawMatchPayload) (*battlelog.MatchFacts, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	r.users = append(r.users, userID)
	facts := battlelog.Parse(payload)
	return &facts, true, nil
}

func (r *recordingImporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newTestWatcher(t *testing.T, imp PayloadImporter, imported chan<- string) *Watcher {
	t.Helper()

	w, err := New(imp, "user123", slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		SettleDelay: 20 * time.Millisecond,
		OnImported: func(path string, facts *battlelog.MatchFacts, created bool) {
			imported <- filepath.Base(path)
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitFor(t *testing.T, imported <-chan string, want string) {
	t.Helper()
	select {
	case got := <-imported:
		if got != want {
			t.Fatalf("imported %s, want %s", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s to be imported", want)
	}
}

func TestWatcher_ImportsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "old.log"), []byte(transcript), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip me"), 0644); err != nil {
		t.Fatal(err)
	}

	imp := &recordingImporter{}
	imported := make(chan string, 10)
	w := newTestWatcher(t, imp, imported)

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}
	w.Start()

	waitFor(t, imported, "old.log")

	if imp.users[0] != "user123" {
		t.Errorf("imported for user %s, want user123", imp.users[0])
	}
	if got := imp.payloads[0].Players; len(got) != 2 || got[0] != "Alice" {
		t.Errorf("Players = %v", got)
	}
}

func TestWatcher_ImportsBacklogLargerThanQueue(t *testing.T) {
	dir := t.TempDir()
	total := queueSize + 44
	for i := 0; i < total; i++ {
		name := filepath.Join(dir, fmt.Sprintf("battle-%03d.log", i))
		if err := os.WriteFile(name, []byte(transcript), 0644); err != nil {
			t.Fatal(err)
		}
	}

	imp := &recordingImporter{}
	imported := make(chan string, total)
	w := newTestWatcher(t, imp, imported)

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}
	w.Start()

	seen := make(map[string]bool, total)
	timeout := time.After(10 * time.Second)
	for len(seen) < total {
		select {
		case name := <-imported:
			seen[name] = true
		case <-timeout:
			t.Fatalf("imported %d of %d existing files", len(seen), total)
		}
	}
	if imp.count() != total {
		t.Errorf("importer saw %d payloads, want %d", imp.count(), total)
	}
}

func TestWatcher_ImportsNewFiles(t *testing.T) {
	dir := t.TempDir()

	imp := &recordingImporter{}
	imported := make(chan string, 10)
	w := newTestWatcher(t, imp, imported)

	if err := w.AddDir(dir); err != nil {
		t.Fatalf("AddDir() error = %v", err)
	}
	w.Start()

	payload := `{"url":"https://replay.example.com/new-1","players":["Alice","Bob"],"log":"|turn|4\n|win|Bob"}`
	if err := os.WriteFile(filepath.Join(dir, "new.json"), []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, imported, "new.json")

	imp.mu.Lock()
	got := imp.payloads[len(imp.payloads)-1]
	imp.mu.Unlock()
	if got.URL != "https://replay.example.com/new-1" {
		t.Errorf("URL = %s", got.URL)
	}
}

func TestWatcher_AddDirErrors(t *testing.T) {
	imported := make(chan string, 1)
	w := newTestWatcher(t, &recordingImporter{}, imported)

	if err := w.AddDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing directory should fail")
	}

	file := filepath.Join(t.TempDir(), "a.log")
	if err := os.WriteFile(file, []byte(transcript), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.AddDir(file); err == nil {
		t.Error("a file is not a directory")
	}
}

func TestProcessFile_BadFile(t *testing.T) {
	imp := &recordingImporter{}
	w := newTestWatcher(t, imp, make(chan string, 1))

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"log": {}}`), 0644); err != nil {
		t.Fatal(err)
	}

	if err := w.ProcessFile(bad); err == nil {
		t.Error("ProcessFile() should fail for an invalid log field")
	}
	if imp.count() != 0 {
		t.Error("nothing should be imported from a bad file")
	}
}
