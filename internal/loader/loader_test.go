package loader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"showdown-tracker/internal/battlelog"
)

const transcript = `|j|☆Alice
|player|p1|Alice|102|1500
|player|p2|Bob|265|1480
|tier|[Gen 9] OU
|poke|p1|Great Tusk|
|poke|p2|Gholdengo|
|switch|p1a: Great Tusk|Great Tusk|100/100
|turn|1
|win|Bob
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadFile_Transcript(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "battle.log", transcript)

	payload, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if !strings.HasPrefix(payload.URL, "file://") || !strings.HasSuffix(payload.URL, "/battle.log") {
		t.Errorf("URL = %s, want a file:// url", payload.URL)
	}
	if !reflect.DeepEqual(payload.Players, []string{"Alice", "Bob"}) {
		t.Errorf("Players = %v", payload.Players)
	}
	if payload.Format != "[Gen 9] OU" {
		t.Errorf("Format = %q", payload.Format)
	}

	facts := battlelog.Parse(payload)
	if facts.WinnerName == nil || *facts.WinnerName != "Bob" {
		t.Errorf("WinnerName = %v, want Bob", facts.WinnerName)
	}
}

func TestLoadFile_ReplayDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "replay.json", `{
		"id": "gen9ou-2000000000",
		"formatid": "gen9ou",
		"players": ["Alice", "Bob"],
		"rating": 1510,
		"uploadtime": 1700000000,
		"log": "|turn|1\n|win|Alice"
	}`)

	payload, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if payload.URL != ReplayBaseURL+"gen9ou-2000000000" {
		t.Errorf("URL = %s", payload.URL)
	}
	if payload.Format != "gen9ou" {
		t.Errorf("Format = %s", payload.Format)
	}
	if payload.Rating == nil || *payload.Rating != 1510 {
		t.Errorf("Rating = %v", payload.Rating)
	}
	if payload.BattleDate != "Nov 14, 2023" {
		t.Errorf("BattleDate = %s", payload.BattleDate)
	}
}

func TestLoadFile_PayloadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "payload.json", `{
		"url": "https://replay.example.com/x-1",
		"players": [],
		"log": ["|player|p1|Alice|", "|player|p2|Bob|", "|turn|3"]
	}`)

	payload, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if payload.URL != "https://replay.example.com/x-1" {
		t.Errorf("URL = %s", payload.URL)
	}
	if !reflect.DeepEqual(payload.Players, []string{"Alice", "Bob"}) {
		t.Errorf("Players from header = %v", payload.Players)
	}
	if payload.Rating != nil {
		t.Errorf("Rating = %v, want nil", *payload.Rating)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(writeFile(t, dir, "notes.md", "# hi")); !errors.Is(err, ErrUnsupportedFile) {
		t.Errorf("markdown file error = %v, want ErrUnsupportedFile", err)
	}
	if _, err := LoadFile(writeFile(t, dir, "bad.json", `{"log": 42}`)); !errors.Is(err, battlelog.ErrInvalidLog) {
		t.Errorf("bad log error = %v, want ErrInvalidLog", err)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.log")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.log", transcript)
	writeFile(t, dir, "b.txt", transcript)
	writeFile(t, dir, "readme.md", "ignored")
	writeFile(t, dir, "broken.json", "{")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatal(err)
	}

	payloads, err := LoadDir(dir)
	if err == nil {
		t.Error("broken.json should be reported")
	}
	if len(payloads) != 2 {
		t.Errorf("LoadDir() loaded %d payloads, want 2", len(payloads))
	}
}
