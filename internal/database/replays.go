package database

import (
	"context"
	"fmt"
	"strings"

	"showdown-tracker/internal/battlelog"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// SaveReplay inserts facts for the user, or updates the existing record with
// the same URL. It returns the stored facts and whether a new record was created.
func SaveReplay(ctx context.Context, pbApp core.App, userID string, facts battlelog.MatchFacts) (*battlelog.MatchFacts, bool, error) {
	if strings.TrimSpace(facts.URL) == "" {
		return nil, false, fmt.Errorf("replay has no url")
	}

	created := false
	record, err := findReplayRecord(ctx, pbApp, userID, facts.URL)
	if err != nil {
		if !isNoRows(err) {
			return nil, false, fmt.Errorf("failed to look up replay %s: %w", facts.URL, err)
		}
		collection, err := pbApp.FindCollectionByNameOrId(ReplaysCollection)
		if err != nil {
			return nil, false, err
		}
		record = core.NewRecord(collection)
		record.Set("user", userID)
		record.Set("url", facts.URL)
		created = true
	}

	setReplayFields(record, facts)

	if err := pbApp.SaveWithContext(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to save replay %s: %w", facts.URL, err)
	}

	stored, err := recordToFacts(record)
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// FindReplay returns the user's replay stored under url.
func FindReplay(ctx context.Context, pbApp core.App, userID, url string) (*battlelog.MatchFacts, error) {
	record, err := findReplayRecord(ctx, pbApp, userID, url)
	if err != nil {
		return nil, notFound(err, "replay "+url)
	}
	facts, err := recordToFacts(record)
	if err != nil {
		return nil, err
	}
	return &facts, nil
}

// ReplayExists reports whether the user already stored url.
func ReplayExists(ctx context.Context, pbApp core.App, userID, url string) (bool, error) {
	n, err := count(ctx, pbApp, ReplaysCollection, dbx.HashExp{"user": userID, "url": url})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReplays returns the user's replays, newest first. An empty format lists every format.
func ListReplays(ctx context.Context, pbApp core.App, userID, format string) ([]battlelog.MatchFacts, error) {
	where := dbx.HashExp{"user": userID}
	if format != "" {
		where["format"] = format
	}

	records, err := findAll(ctx, pbApp, ReplaysCollection, where, "created DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list replays: %w", err)
	}

	facts := make([]battlelog.MatchFacts, 0, len(records))
	for _, record := range records {
		f, err := recordToFacts(record)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// CountReplays returns how many replays the user stored.
func CountReplays(ctx context.Context, pbApp core.App, userID string) (int, error) {
	n, err := count(ctx, pbApp, ReplaysCollection, dbx.HashExp{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count replays: %w", err)
	}
	return n, nil
}

// ReplayKeys returns "<user>|<url>" for every stored replay. Used to warm the importer's dedup filter.
func ReplayKeys(ctx context.Context, pbApp core.App) ([]string, error) {
	records, err := findAll(ctx, pbApp, ReplaysCollection, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load replay keys: %w", err)
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, ReplayKey(record.GetString("user"), record.GetString("url")))
	}
	return keys, nil
}

// ReplayKey is the dedup key of a user's replay.
func ReplayKey(userID, url string) string {
	return userID + "|" + url
}

// DeleteReplay removes one of the user's replays by record id.
func DeleteReplay(ctx context.Context, pbApp core.App, userID, id string) error {
	record, err := findOne(ctx, pbApp, ReplaysCollection, dbx.HashExp{"id": id, "user": userID})
	if err != nil {
		return notFound(err, "replay "+id)
	}
	return pbApp.DeleteWithContext(ctx, record)
}

func findReplayRecord(ctx context.Context, pbApp core.App, userID, url string) (*core.Record, error) {
	return findOne(ctx, pbApp, ReplaysCollection, dbx.HashExp{"user": userID, "url": url})
}

func setReplayFields(record *core.Record, facts battlelog.MatchFacts) {
	record.Set("format", facts.Format)
	record.Set("battle_date", facts.BattleDate)
	record.Set("players", nonNilSlice(facts.Players))
	record.Set("teams", nonNilMap(facts.Teams))
	record.Set("selected_pokemon", nonNilMap(facts.SelectedPokemon))
	record.Set("total_turns", facts.TotalTurns)

	if facts.Rating != nil {
		record.Set("rating", *facts.Rating)
	} else {
		record.Set("rating", 0)
	}

	if facts.BattleStartTime != nil {
		record.Set("battle_start_time", facts.BattleStartTime.UTC())
	} else {
		record.Set("battle_start_time", "")
	}

	if facts.WinnerName != nil {
		record.Set("winner_name", *facts.WinnerName)
	} else {
		record.Set("winner_name", "")
	}
}

// recordToFacts converts a replays record back to MatchFacts.
// A stored rating of 0 reads back as no rating.
func recordToFacts(record *core.Record) (battlelog.MatchFacts, error) {
	facts := battlelog.MatchFacts{
		ID:              record.Id,
		URL:             record.GetString("url"),
		Format:          record.GetString("format"),
		BattleDate:      record.GetString("battle_date"),
		TotalTurns:      record.GetInt("total_turns"),
		Teams:           map[string][]string{},
		SelectedPokemon: map[string][]string{},
	}

	for field, dst := range map[string]any{
		"players":          &facts.Players,
		"teams":            &facts.Teams,
		"selected_pokemon": &facts.SelectedPokemon,
	} {
		if record.GetString(field) == "" {
			continue
		}
		if err := record.UnmarshalJSONField(field, dst); err != nil {
			return facts, fmt.Errorf("replay %s has malformed %s: %w", record.Id, field, err)
		}
	}
	if facts.Players == nil {
		facts.Players = []string{}
	}
	if facts.Teams == nil {
		facts.Teams = map[string][]string{}
	}
	if facts.SelectedPokemon == nil {
		facts.SelectedPokemon = map[string][]string{}
	}

	if rating := record.GetInt("rating"); rating != 0 {
		facts.Rating = &rating
	}
	if start := record.GetDateTime("battle_start_time"); !start.IsZero() {
		t := start.Time().UTC()
		facts.BattleStartTime = &t
	}
	if winner := record.GetString("winner_name"); winner != "" {
		facts.WinnerName = &winner
	}
	facts.Created = record.GetDateTime("created").Time()

	return facts, nil
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string][]string) map[string][]string {
	if m == nil {
		return map[string][]string{}
	}
	return m
}
