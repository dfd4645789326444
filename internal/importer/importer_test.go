package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"
	_ "showdown-tracker/migrations"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const battleLog = `|player|p1|Alice|1|
|player|p2|Bob|2|
|tier|[Gen 9] VGC 2024 Reg G
|poke|p1|Flutter Mane, L50|
|poke|p1|Incineroar, L50, M|
|poke|p2|Rillaboom, L50, F|
|t:|1700000000
|switch|p1a: Flutter Mane|Flutter Mane, L50|100/100
|switch|p2a: Rillaboom|Rillaboom, L50, F|100/100
|turn|1
|turn|2
|win|Alice`

// fakeFetcher serves canned payloads and counts calls per URL
type fakeFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	errors map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: map[string]int{}, errors: map[string]error{}}
}

func (f *fakeFetcher) FetchReplay(ctx context.Context, replayURL string) (*battlelog.RawMatchPayload, error) {
	f.mu.Lock()
	f.calls[replayURL]++
	err := f.errors[replayURL]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}

	rating := 1400
	return &battlelog.RawMatchPayload{
		URL:     replayURL,
		Players: []string{"Alice", "Bob"},
		Format:  "gen9vgc2024regg",
		Rating:  &rating,
		Log:     battlelog.LogText(battleLog),
	}, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func setup(t *testing.T) (*tests.TestApp, *fakeFetcher, *Importer, string) {
	t.Helper()

	app, err := tests.NewTestApp(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)

	users, err := app.FindCollectionByNameOrId("users")
	require.NoError(t, err)
	user := core.NewRecord(users)
	user.SetEmail("alice@example.com")
	user.SetPassword("correct-horse-battery")
	require.NoError(t, app.Save(user))

	fetcher := newFakeFetcher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	im := New(app, fetcher, logger, Options{Concurrency: 2, MaxAttempts: 2})

	return app, fetcher, im, user.Id
}

func TestImportReplay_FetchesOnce(t *testing.T) {
	_, fetcher, im, userID := setup(t)
	ctx := context.Background()

	facts, created, err := im.ImportReplay(ctx, userID, "https://replay.example.com/gen9-1?p2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "https://replay.example.com/gen9-1", facts.URL)
	assert.Equal(t, 2, facts.TotalTurns)
	assert.Equal(t, []string{"Flutter Mane", "Incineroar"}, facts.Teams["Alice"])
	require.NotNil(t, facts.WinnerName)
	assert.Equal(t, "Alice", *facts.WinnerName)

	again, created, err := im.ImportReplay(ctx, userID, "https://replay.example.com/gen9-1.json")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, facts.ID, again.ID)

	assert.Equal(t, 1, fetcher.callCount("https://replay.example.com/gen9-1"))
}

func TestImportReplay_WarmUpSkipsStoredReplays(t *testing.T) {
	app, fetcher, im, userID := setup(t)
	ctx := context.Background()

	_, _, err := im.ImportReplay(ctx, userID, "https://replay.example.com/gen9-2")
	require.NoError(t, err)

	// a fresh importer knows nothing until it warms up, but the database
	// lookup still prevents a second record
	fresh := New(app, fetcher, nil, Options{})
	require.NoError(t, fresh.WarmUp(ctx))

	_, created, err := fresh.ImportReplay(ctx, userID, "https://replay.example.com/gen9-2")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, fetcher.callCount("https://replay.example.com/gen9-2"))
}

func TestImportReplay_Errors(t *testing.T) {
	_, fetcher, im, userID := setup(t)
	ctx := context.Background()

	_, _, err := im.ImportReplay(ctx, userID, "not a url")
	assert.Error(t, err)

	fetcher.errors["https://replay.example.com/gone"] = fmt.Errorf("wrapped: %w", fetch.ErrNotFound)
	_, _, err = im.ImportReplay(ctx, userID, "https://replay.example.com/gone")
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestImportPayload(t *testing.T) {
	app, fetcher, im, userID := setup(t)
	ctx := context.Background()

	payload := battlelog.RawMatchPayload{
		URL:     " https://replay.example.com/direct-1 ",
		Players: []string{"Alice", "Bob"},
		Log:     battlelog.LogRecords(strings.Split(battleLog, "\n")...),
	}

	facts, created, err := im.ImportPayload(ctx, userID, payload)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "https://replay.example.com/direct-1", facts.URL)
	assert.Equal(t, []string{"Rillaboom"}, facts.SelectedPokemon["Bob"])

	exists, err := database.ReplayExists(ctx, app, userID, facts.URL)
	require.NoError(t, err)
	assert.True(t, exists)

	// already imported directly, so a URL import must not fetch
	_, created, err = im.ImportReplay(ctx, userID, facts.URL)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, fetcher.callCount(facts.URL))

	_, _, err = im.ImportPayload(ctx, userID, battlelog.RawMatchPayload{Players: []string{"A"}})
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestImportPayload_FileURLsKept(t *testing.T) {
	_, _, im, userID := setup(t)

	facts, _, err := im.ImportPayload(context.Background(), userID, battlelog.RawMatchPayload{
		URL:     "file:///tmp/battle.log",
		Players: []string{"Alice", "Bob"},
		Log:     battlelog.LogText(battleLog),
	})
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/battle.log", facts.URL)
}

func TestEnqueueAndDrainQueue(t *testing.T) {
	app, fetcher, im, userID := setup(t)
	ctx := context.Background()

	_, _, err := im.ImportReplay(ctx, userID, "https://replay.example.com/stored")
	require.NoError(t, err)

	fetcher.errors["https://replay.example.com/missing"] = fmt.Errorf("wrapped: %w", fetch.ErrNotFound)
	fetcher.errors["https://replay.example.com/flaky"] = errors.New("upstream unavailable")

	queued, err := im.Enqueue(ctx, userID, []string{
		"https://replay.example.com/ok-1",
		"https://replay.example.com/ok-2",
		"https://replay.example.com/ok-1?dup",
		"https://replay.example.com/stored",
		"https://replay.example.com/missing",
		"https://replay.example.com/flaky",
		"::not-a-url::",
	})
	assert.Error(t, err, "invalid url should be reported")
	assert.Equal(t, 4, queued)

	result, err := im.DrainQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Processed: 4, Imported: 2, Failed: 2}, result)

	replays, err := database.ListReplays(ctx, app, userID, "")
	require.NoError(t, err)
	assert.Len(t, replays, 3)

	// the 404 failed for good, the flaky one gets another attempt
	pending, err := database.PendingImports(ctx, app, 10, 2)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "https://replay.example.com/flaky", pending[0].URL)
	assert.Equal(t, 1, pending[0].Attempts)

	result, err = im.DrainQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Processed: 1, Imported: 0, Failed: 1}, result)

	pending, err = database.PendingImports(ctx, app, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, pending)

	result, err = im.DrainQueue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{}, result)
	assert.Equal(t, 2, fetcher.callCount("https://replay.example.com/flaky"))
	assert.Equal(t, 1, fetcher.callCount("https://replay.example.com/missing"))
}

func TestRegisterQueueJob(t *testing.T) {
	app, _, im, _ := setup(t)

	require.NoError(t, RegisterQueueJob(app, im, "*/2 * * * *", 20))

	found := false
	for _, job := range app.Cron().Jobs() {
		if job.Id() == QueueJobID {
			found = true
		}
	}
	assert.True(t, found, "queue job should be registered")

	assert.Error(t, RegisterQueueJob(app, im, "not a schedule", 20))
}
