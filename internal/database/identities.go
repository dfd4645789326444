package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// GetIdentityNames returns the user's in-game names in the order they were configured.
func GetIdentityNames(ctx context.Context, pbApp core.App, userID string) ([]string, error) {
	records, err := findAll(ctx, pbApp, IdentitiesCollection, dbx.HashExp{"user": userID}, "position ASC", "created ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, record := range records {
		names = append(names, record.GetString("name"))
	}
	return names, nil
}

// SetIdentityNames replaces the user's identity list. Names are trimmed,
// blanks dropped and duplicates removed keeping the first position.
func SetIdentityNames(ctx context.Context, pbApp core.App, userID string, names []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned := CleanIdentityNames(names)

	err := pbApp.RunInTransaction(func(txApp core.App) error {
		existing, err := findAll(ctx, txApp, IdentitiesCollection, dbx.HashExp{"user": userID})
		if err != nil {
			return err
		}
		for _, record := range existing {
			if err := txApp.DeleteWithContext(ctx, record); err != nil {
				return err
			}
		}

		collection, err := txApp.FindCollectionByNameOrId(IdentitiesCollection)
		if err != nil {
			return err
		}
		for i, name := range cleaned {
			record := core.NewRecord(collection)
			record.Set("user", userID)
			record.Set("name", name)
			record.Set("position", i)
			if err := txApp.SaveWithContext(ctx, record); err != nil {
				return fmt.Errorf("failed to save identity %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cleaned, nil
}

// CleanIdentityNames trims names, drops blanks and removes exact duplicates.
func CleanIdentityNames(names []string) []string {
	cleaned := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		cleaned = append(cleaned, name)
	}
	return cleaned
}
