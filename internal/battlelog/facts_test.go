package battlelog

import (
	"reflect"
	"testing"
	"time"
)

func payloadWith(players []string, lines ...string) RawMatchPayload {
	return RawMatchPayload{
		URL:     "https://replay.pokemonshowdown.com/gen9vgc2024regg-1",
		Players: players,
		Format:  "gen9vgc2024regg",
		Log:     LogRecords(lines...),
	}
}

func TestParseFullBattle(t *testing.T) {
	log := `|j|☆Alice
|j|☆Bob
|t:|1700000000
|gametype|doubles
|player|p1|Alice|ethan|1523
|player|p2|Bob|lucas|1490
|poke|p1|Flutter Mane|
|poke|p1|Iron Hands, L50|
|poke|p1|Amoonguss, L50, F|
|poke|p2|Urshifu-*, L50, M|
|poke|p2|Rillaboom, L50, M|
|
|t:|1700000045
|start
|switch|p1a: Ghost|Flutter Mane, L50|100/100
|switch|p1b: Hands|Iron Hands, L50|100/100
|switch|p2a: Fist|Urshifu-Rapid-Strike, L50, M|100/100
|switch|p2b: Rilla|Rillaboom, L50, M|100/100
|turn|1
|move|p1a: Ghost|Moonblast|p2a: Fist
|turn|2
|switch|p1a: Ghost|Flutter Mane, L50|45/100
|turn|3
|win|Alice
`
	facts := Parse(RawMatchPayload{
		URL:     "https://replay.pokemonshowdown.com/gen9vgc2024regg-1",
		Players: []string{"Alice", "Bob"},
		Format:  "gen9vgc2024regg",
		Log:     LogText(log),
	})

	wantTeams := map[string][]string{
		"Alice": {"Flutter Mane", "Iron Hands", "Amoonguss"},
		"Bob":   {"Urshifu-*", "Rillaboom"},
	}
	if !reflect.DeepEqual(facts.Teams, wantTeams) {
		t.Errorf("Teams = %v, want %v", facts.Teams, wantTeams)
	}

	wantSelected := map[string][]string{
		"Alice": {"Flutter Mane", "Iron Hands"},
		"Bob":   {"Urshifu-Rapid-Strike", "Rillaboom"},
	}
	if !reflect.DeepEqual(facts.SelectedPokemon, wantSelected) {
		t.Errorf("SelectedPokemon = %v, want %v", facts.SelectedPokemon, wantSelected)
	}

	if facts.TotalTurns != 3 {
		t.Errorf("TotalTurns = %d, want 3", facts.TotalTurns)
	}

	if facts.BattleStartTime == nil || !facts.BattleStartTime.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("BattleStartTime = %v, want first timestamp", facts.BattleStartTime)
	}

	if facts.WinnerName == nil || *facts.WinnerName != "Alice" {
		t.Errorf("WinnerName = %v, want Alice", facts.WinnerName)
	}

	if facts.Format != "gen9vgc2024regg" || facts.URL == "" {
		t.Errorf("metadata not passed through: %+v", facts)
	}
}

func TestParseDeduplicatesRosterReveals(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|poke|p1|Garchomp, L50, M|",
		"|poke|p1|Garchomp, L50, M|",
		"|poke|p1|Garchomp|",
	))

	if got := facts.Teams["Alice"]; !reflect.DeepEqual(got, []string{"Garchomp"}) {
		t.Errorf("Teams[Alice] = %v, want [Garchomp]", got)
	}
}

func TestParseKeepsFirstSeenOrder(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|poke|p2|Amoonguss|",
		"|poke|p2|Incineroar|",
		"|poke|p2|Amoonguss|",
	))

	if got := facts.Teams["Bob"]; !reflect.DeepEqual(got, []string{"Amoonguss", "Incineroar"}) {
		t.Errorf("Teams[Bob] = %v, want [Amoonguss Incineroar]", got)
	}
}

func TestParseTurnIsMaximum(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|turn|4",
		"|turn|9",
		"|turn|2",
		"|turn|abc",
		"|turn|",
	))

	if facts.TotalTurns != 9 {
		t.Errorf("TotalTurns = %d, want 9", facts.TotalTurns)
	}
}

func TestParseFirstTimestampWins(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|t:|not-a-number",
		"|t:|1700000500",
		"|t:|1600000000",
	))

	want := time.Unix(1700000500, 0).UTC()
	if facts.BattleStartTime == nil || !facts.BattleStartTime.Equal(want) {
		t.Fatalf("BattleStartTime = %v, want %v", facts.BattleStartTime, want)
	}
	if got := facts.BattleStartTime.Format(time.RFC3339); got != "2023-11-14T22:21:40Z" {
		t.Errorf("ISO form = %s", got)
	}
}

func TestParseEmptyLog(t *testing.T) {
	testCases := []struct {
		name    string
		payload RawMatchPayload
	}{
		{"empty string", RawMatchPayload{Players: []string{"Alice", "Bob"}, Log: LogText("")}},
		{"zero log", RawMatchPayload{Players: []string{"Alice", "Bob"}}},
		{"empty records", RawMatchPayload{Players: []string{"Alice", "Bob"}, Log: LogRecords()}},
		{"no players", RawMatchPayload{Log: LogText("")}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			facts := Parse(tc.payload)

			if facts.TotalTurns != 0 {
				t.Errorf("TotalTurns = %d, want 0", facts.TotalTurns)
			}
			if facts.BattleStartTime != nil {
				t.Errorf("BattleStartTime = %v, want nil", facts.BattleStartTime)
			}
			if facts.WinnerName != nil {
				t.Errorf("WinnerName = %v, want nil", *facts.WinnerName)
			}
			for player, team := range facts.Teams {
				if len(team) != 0 {
					t.Errorf("Teams[%s] = %v, want empty", player, team)
				}
			}
			if len(tc.payload.Players) == 0 && len(facts.Teams) != 0 {
				t.Errorf("Teams = %v, want empty map", facts.Teams)
			}
		})
	}
}

func TestParseRejectsLevelAndNumberTokens(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|poke|p1|100|",
		"|poke|p1|L50|",
		"|poke|p1||",
		"|poke|p1|   |",
		"|poke|p1|Lapras, L50|",
	))

	if got := facts.Teams["Alice"]; !reflect.DeepEqual(got, []string{"Lapras"}) {
		t.Errorf("Teams[Alice] = %v, want [Lapras]", got)
	}
}

func TestParseSelectionNotRestrictedToRoster(t *testing.T) {
	// A switch-in for a species never revealed through |poke| is still recorded.
	facts := Parse(payloadWith([]string{"Alice", "Bob"},
		"|poke|p1|Garchomp|",
		"|poke|p1|Rotom-Wash|",
		"|switch|p1a: Zoro|Zoroark, L50|100/100",
	))

	if got := facts.Teams["Alice"]; !reflect.DeepEqual(got, []string{"Garchomp", "Rotom-Wash"}) {
		t.Errorf("Teams[Alice] = %v", got)
	}
	if got := facts.SelectedPokemon["Alice"]; !reflect.DeepEqual(got, []string{"Zoroark"}) {
		t.Errorf("SelectedPokemon[Alice] = %v, want [Zoroark]", got)
	}
}

func TestParseMissingPlayerSlot(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice"},
		"|poke|p1|Garchomp|",
		"|poke|p2|Incineroar|",
		"|switch|p2a: Cat|Incineroar|100/100",
		"|win|Bob",
	))

	if len(facts.Teams) != 1 {
		t.Errorf("Teams = %v, want only Alice", facts.Teams)
	}
	if len(facts.SelectedPokemon["Alice"]) != 0 {
		t.Errorf("SelectedPokemon[Alice] = %v, want empty", facts.SelectedPokemon["Alice"])
	}
	if facts.WinnerName == nil || *facts.WinnerName != "Bob" {
		t.Errorf("winner should be kept verbatim even when not a known player")
	}
}

func TestParseNoPlayersCollapsesSideFields(t *testing.T) {
	facts := Parse(payloadWith(nil,
		"|poke|p1|Garchomp|",
		"|switch|p1a: Chomp|Garchomp|100/100",
		"|turn|5",
		"|t:|1700000000",
		"|win|Alice",
	))

	if len(facts.Teams) != 0 || len(facts.SelectedPokemon) != 0 {
		t.Errorf("side-keyed fields should be empty, got %v / %v", facts.Teams, facts.SelectedPokemon)
	}
	if facts.TotalTurns != 5 || facts.BattleStartTime == nil || facts.WinnerName == nil {
		t.Errorf("scalar fields should still be computed: %+v", facts)
	}
}

func TestParseLastWinWins(t *testing.T) {
	facts := Parse(payloadWith([]string{"Alice", "Bob"}, "|win|Alice", "|win| Bob "))
	if facts.WinnerName == nil || *facts.WinnerName != "Bob" {
		t.Errorf("WinnerName = %v, want Bob", facts.WinnerName)
	}
}

func TestParseDoesNotAliasPayloadPlayers(t *testing.T) {
	players := []string{"Alice", "Bob"}
	facts := Parse(payloadWith(players))
	players[0] = "Mallory"

	if facts.Players[0] != "Alice" {
		t.Errorf("Players[0] = %s, facts must not share the payload slice", facts.Players[0])
	}
}

func TestParseLinesIgnoresPayloadLog(t *testing.T) {
	payload := payloadWith([]string{"Alice", "Bob"}, "|poke|p1|Garchomp|", "|turn|2")
	lines := payload.Log.Lines()

	bare := payload
	bare.Log = RawLog{}
	if !reflect.DeepEqual(Parse(payload), parseLines(bare, lines)) {
		t.Error("parseLines should fold the given lines, not the payload log")
	}
}
