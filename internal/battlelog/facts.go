package battlelog

import "time"

// MatchFacts is everything derived from one battle transcript plus the
// metadata passed through from the source. A MatchFacts value is built once by
// Parse and treated as read-only afterwards.
type MatchFacts struct {
	ID              string              `json:"id,omitempty"`
	URL             string              `json:"url"`
	Format          string              `json:"format"`
	Rating          *int                `json:"rating"`
	BattleDate      string              `json:"battleDate,omitempty"`
	Players         []string            `json:"players"`
	Teams           map[string][]string `json:"teams"`
	SelectedPokemon map[string][]string `json:"selectedPokemon"`
	TotalTurns      int                 `json:"totalTurns"`
	BattleStartTime *time.Time          `json:"battleStartTime"`
	WinnerName      *string             `json:"winnerName"`

	// Created is set by the persistence layer and only used for ordering.
	Created time.Time `json:"-"`
}

// HasPlayer reports whether name is one of the match's players.
func (f MatchFacts) HasPlayer(name string) bool {
	for _, player := range f.Players {
		if player == name {
			return true
		}
	}
	return false
}

// Parse builds the match facts for a payload in a single forward pass over
// its transcript. It never fails: unreadable lines are skipped and an empty
// log yields zero-valued facts.
func Parse(payload RawMatchPayload) MatchFacts {
	return parseLines(payload, payload.Log.Lines())
}

// parseLines folds tokenized lines into facts seeded from payload's metadata.
// payload.Log is not read.
func parseLines(payload RawMatchPayload, lines []string) MatchFacts {
	agg := newAggregator(payload)
	for _, line := range lines {
		agg.apply(Decode(line))
	}
	return agg.facts
}

type aggregator struct {
	facts    MatchFacts
	teamSeen map[string]map[string]struct{}
	usedSeen map[string]map[string]struct{}
}

func newAggregator(payload RawMatchPayload) *aggregator {
	players := make([]string, len(payload.Players))
	copy(players, payload.Players)

	agg := &aggregator{
		facts: MatchFacts{
			URL:             payload.URL,
			Format:          payload.Format,
			Rating:          payload.Rating,
			BattleDate:      payload.BattleDate,
			Players:         players,
			Teams:           make(map[string][]string),
			SelectedPokemon: make(map[string][]string),
		},
		teamSeen: make(map[string]map[string]struct{}),
		usedSeen: make(map[string]map[string]struct{}),
	}

	for _, name := range players {
		if name == "" {
			continue
		}
		agg.facts.Teams[name] = []string{}
		agg.facts.SelectedPokemon[name] = []string{}
		agg.teamSeen[name] = make(map[string]struct{})
		agg.usedSeen[name] = make(map[string]struct{})
	}

	return agg
}

// playerFor maps a side index to the configured display name.
func (a *aggregator) playerFor(side int) (string, bool) {
	if side < 0 || side >= len(a.facts.Players) || a.facts.Players[side] == "" {
		return "", false
	}
	return a.facts.Players[side], true
}

func (a *aggregator) apply(ev Event) {
	switch ev.Kind {
	case KindSkip:
		return
	case KindRosterReveal:
		if player, ok := a.playerFor(ev.Side); ok {
			a.facts.Teams[player] = appendUnique(a.facts.Teams[player], a.teamSeen[player], ev.Species)
		}
	case KindSwitch:
		if player, ok := a.playerFor(ev.Side); ok {
			a.facts.SelectedPokemon[player] = appendUnique(a.facts.SelectedPokemon[player], a.usedSeen[player], ev.Species)
		}
	case KindTurn:
		if ev.Turn > a.facts.TotalTurns {
			a.facts.TotalTurns = ev.Turn
		}
	case KindTimestamp:
		if a.facts.BattleStartTime == nil {
			start := ev.Time
			a.facts.BattleStartTime = &start
		}
	case KindWin:
		winner := ev.Winner
		a.facts.WinnerName = &winner
	}
}

func appendUnique(list []string, seen map[string]struct{}, species string) []string {
	if _, ok := seen[species]; ok {
		return list
	}
	seen[species] = struct{}{}
	return append(list, species)
}
