// Package loader reads replay files from disk and turns them into payloads
// ready for battlelog.Parse.
package loader

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"showdown-tracker/internal/battlelog"

	"github.com/goccy/go-json"
)

// ReplayBaseURL prefixes the replay id found in downloaded replay JSON files.
const ReplayBaseURL = "https://replay.pokemonshowdown.com/"

// ErrUnsupportedFile is returned for files that are neither replay JSON nor raw logs.
var ErrUnsupportedFile = errors.New("unsupported replay file")

// replayFile accepts both a stored RawMatchPayload and the JSON document the
// replay server serves next to each replay.
type replayFile struct {
	URL        string           `json:"url"`
	ID         string           `json:"id"`
	Players    []string         `json:"players"`
	Format     string           `json:"format"`
	FormatID   string           `json:"formatid"`
	Rating     *int             `json:"rating"`
	BattleDate string           `json:"battleDate"`
	UploadTime int64            `json:"uploadtime"`
	Log        battlelog.RawLog `json:"log"`
}

// Supported reports whether path has an extension LoadFile understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".log", ".txt":
		return true
	}
	return false
}

// LoadFile reads a replay file. .json files hold a payload or a downloaded
// replay document; .log and .txt files hold a raw transcript whose players and
// format come from its |player| and |tier| lines.
func LoadFile(path string) (battlelog.RawMatchPayload, error) {
	if !Supported(path) {
		return battlelog.RawMatchPayload{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return battlelog.RawMatchPayload{}, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return battlelog.RawMatchPayload{}, fmt.Errorf("failed to read replay file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(absPath), ".json") {
		return decodeJSON(data, absPath)
	}
	return decodeTranscript(string(data), absPath), nil
}

func decodeJSON(data []byte, absPath string) (battlelog.RawMatchPayload, error) {
	var file replayFile
	if err := json.Unmarshal(data, &file); err != nil {
		return battlelog.RawMatchPayload{}, fmt.Errorf("failed to decode %s: %w", absPath, err)
	}

	payload := battlelog.RawMatchPayload{
		URL:        file.URL,
		Players:    file.Players,
		Format:     file.Format,
		BattleDate: file.BattleDate,
		Log:        file.Log,
	}

	if payload.URL == "" && file.ID != "" {
		payload.URL = ReplayBaseURL + file.ID
	}
	if payload.URL == "" {
		payload.URL = FileURL(absPath)
	}
	if payload.Format == "" {
		payload.Format = file.FormatID
	}
	if file.Rating != nil && *file.Rating > 0 {
		payload.Rating = file.Rating
	}
	if payload.BattleDate == "" && file.UploadTime > 0 {
		payload.BattleDate = time.Unix(file.UploadTime, 0).UTC().Format("Jan 2, 2006")
	}

	fillFromHeader(&payload)
	return payload, nil
}

func decodeTranscript(text, absPath string) battlelog.RawMatchPayload {
	payload := battlelog.RawMatchPayload{
		URL: FileURL(absPath),
		Log: battlelog.LogText(text),
	}
	fillFromHeader(&payload)
	return payload
}

// fillFromHeader takes players and format from the transcript when the file did not name them.
func fillFromHeader(payload *battlelog.RawMatchPayload) {
	if len(payload.Players) > 0 && payload.Format != "" {
		return
	}

	header := battlelog.ReadHeader(payload.Log.Lines())
	if len(payload.Players) == 0 {
		payload.Players = header.Players
	}
	if payload.Format == "" {
		payload.Format = header.Format
	}
}

// FileURL is the file:// URL used as the identity of a replay imported from disk.
func FileURL(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}

// LoadDir loads every supported file directly inside dir. Files that fail to
// load are reported in the returned error; the rest are still returned.
func LoadDir(dir string) ([]battlelog.RawMatchPayload, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var (
		payloads []battlelog.RawMatchPayload
		errs     []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !Supported(entry.Name()) {
			continue
		}
		payload, err := LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		payloads = append(payloads, payload)
	}

	return payloads, errors.Join(errs...)
}
