package stats

import (
	"sort"
	"strings"
	"time"

	"showdown-tracker/internal/battlelog"
)

// battleDateLayouts are the formats a human-readable battle date may come in
var battleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
}

// ParseBattleDate parses the fallback battle date of a record.
func ParseBattleDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range battleDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortKey returns the time a record is ordered by: the battle start time,
// else its battle date, else its creation time.
func SortKey(record battlelog.MatchFacts) time.Time {
	if record.BattleStartTime != nil {
		return *record.BattleStartTime
	}
	if t, ok := ParseBattleDate(record.BattleDate); ok {
		return t
	}
	return record.Created
}

// SortChronological returns a sorted copy of records. Records with equal keys
// keep their input order.
func SortChronological(records []battlelog.MatchFacts, ascending bool) []battlelog.MatchFacts {
	sorted := make([]battlelog.MatchFacts, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := SortKey(sorted[i]), SortKey(sorted[j])
		if ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
	return sorted
}
