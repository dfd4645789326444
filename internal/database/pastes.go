package database

import (
	"context"
	"fmt"
	"time"

	"showdown-tracker/internal/fetch"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// StoredPaste is a pastes record
type StoredPaste struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Notes   string    `json:"notes"`
	Species []string  `json:"species"`
	Raw     string    `json:"raw"`
	Created time.Time `json:"created"`
}

// SavePaste stores a fetched paste for the user, replacing an earlier copy of the same URL.
func SavePaste(ctx context.Context, pbApp core.App, userID string, paste *fetch.Paste) (*StoredPaste, error) {
	record, err := findOne(ctx, pbApp, PastesCollection, dbx.HashExp{"user": userID, "url": paste.URL})
	if err != nil {
		if !isNoRows(err) {
			return nil, fmt.Errorf("failed to look up paste %s: %w", paste.URL, err)
		}
		collection, err := pbApp.FindCollectionByNameOrId(PastesCollection)
		if err != nil {
			return nil, err
		}
		record = core.NewRecord(collection)
		record.Set("user", userID)
		record.Set("url", paste.URL)
	}

	species := paste.Team.Species()
	if species == nil {
		species = []string{}
	}

	record.Set("title", paste.Title)
	record.Set("author", paste.Author)
	record.Set("notes", paste.Notes)
	record.Set("species", species)
	record.Set("raw", paste.Raw)

	if err := pbApp.SaveWithContext(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save paste %s: %w", paste.URL, err)
	}

	stored, err := recordToPaste(record)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListPastes returns the user's pastes, newest first.
func ListPastes(ctx context.Context, pbApp core.App, userID string) ([]StoredPaste, error) {
	records, err := findAll(ctx, pbApp, PastesCollection, dbx.HashExp{"user": userID}, "created DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list pastes: %w", err)
	}

	pastes := make([]StoredPaste, 0, len(records))
	for _, record := range records {
		paste, err := recordToPaste(record)
		if err != nil {
			return nil, err
		}
		pastes = append(pastes, paste)
	}
	return pastes, nil
}

func recordToPaste(record *core.Record) (StoredPaste, error) {
	paste := StoredPaste{
		ID:      record.Id,
		URL:     record.GetString("url"),
		Title:   record.GetString("title"),
		Author:  record.GetString("author"),
		Notes:   record.GetString("notes"),
		Raw:     record.GetString("raw"),
		Created: record.GetDateTime("created").Time(),
	}
	if record.GetString("species") != "" {
		if err := record.UnmarshalJSONField("species", &paste.Species); err != nil {
			return paste, fmt.Errorf("paste %s has malformed species: %w", record.Id, err)
		}
	}
	if paste.Species == nil {
		paste.Species = []string{}
	}
	return paste, nil
}
