package stats

import (
	"strings"

	"showdown-tracker/internal/battlelog"
)

// Filter narrows a replay list. Zero-valued fields match everything.
type Filter struct {
	Format     string
	Player     string
	Outcome    battlelog.Outcome
	Identities []string
}

// Apply returns the records matching the filter, in input order.
func (f Filter) Apply(records []battlelog.MatchFacts) []battlelog.MatchFacts {
	kept := make([]battlelog.MatchFacts, 0, len(records))
	for _, record := range records {
		if f.Matches(record) {
			kept = append(kept, record)
		}
	}
	return kept
}

// Matches reports whether a single record passes the filter.
func (f Filter) Matches(record battlelog.MatchFacts) bool {
	if f.Format != "" && !strings.EqualFold(f.Format, record.Format) {
		return false
	}

	if f.Player != "" {
		needle := strings.ToLower(f.Player)
		found := false
		for _, player := range record.Players {
			if strings.Contains(strings.ToLower(player), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Outcome != "" && battlelog.ClassifyOutcome(record, f.Identities) != f.Outcome {
		return false
	}

	return true
}
