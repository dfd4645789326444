package stats

import (
	"math"
	"sort"
	"time"

	"showdown-tracker/internal/battlelog"
)

// MaxSampleTeams caps the opponent compositions kept per outcome.
const MaxSampleTeams = 10

// SpeciesCount is one row of an opponent frequency table
type SpeciesCount struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

// OpponentTable tallies the species opponents brought, plus a few of their
// full team compositions in the order they were seen.
type OpponentTable struct {
	Species map[string]int `json:"species"`
	Samples [][]string     `json:"samples"`
}

func newOpponentTable() OpponentTable {
	return OpponentTable{
		Species: make(map[string]int),
		Samples: [][]string{},
	}
}

func (t *OpponentTable) add(team []string) {
	if len(team) == 0 {
		return
	}
	for _, species := range team {
		t.Species[species]++
	}
	if len(t.Samples) < MaxSampleTeams {
		sample := make([]string, len(team))
		copy(sample, team)
		t.Samples = append(t.Samples, sample)
	}
}

// Top returns the n most frequent species, ties broken by name. n <= 0 returns all.
func (t OpponentTable) Top(n int) []SpeciesCount {
	rows := make([]SpeciesCount, 0, len(t.Species))
	for species, count := range t.Species {
		rows = append(rows, SpeciesCount{Species: species, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Species < rows[j].Species
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// RatingPoint is one entry of the rating trend, oldest first
type RatingPoint struct {
	Time    time.Time         `json:"time"`
	Rating  int               `json:"rating"`
	Outcome battlelog.Outcome `json:"outcome"`
	URL     string            `json:"url"`
}

// Summary is the statistics rollup for one user
type Summary struct {
	Count         int           `json:"count"`
	MaxRating     int           `json:"maxRating"`
	MinRating     int           `json:"minRating"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	Unknown       int           `json:"unknown"`
	WinRate       int           `json:"winRate"`
	WinOpponents  OpponentTable `json:"winOpponents"`
	LossOpponents OpponentTable `json:"lossOpponents"`
	RatingTrend   []RatingPoint `json:"ratingTrend"`
}

// Eligible keeps the records that count towards statistics: rated above zero
// and played by one of the identities. Everything else is left out entirely.
func Eligible(records []battlelog.MatchFacts, identities []string) []battlelog.MatchFacts {
	kept := make([]battlelog.MatchFacts, 0, len(records))
	for _, record := range records {
		if record.Rating == nil || *record.Rating <= 0 {
			continue
		}
		if _, ok := battlelog.MatchedIdentity(record, identities); !ok {
			continue
		}
		kept = append(kept, record)
	}
	return kept
}

// Aggregate computes the statistics summary for the identities. Input order
// does not matter; the rating trend is always returned oldest first.
func Aggregate(records []battlelog.MatchFacts, identities []string) Summary {
	summary := Summary{
		WinOpponents:  newOpponentTable(),
		LossOpponents: newOpponentTable(),
		RatingTrend:   []RatingPoint{},
	}

	eligible := SortChronological(Eligible(records, identities), true)
	for _, record := range eligible {
		rating := *record.Rating
		if summary.Count == 0 || rating > summary.MaxRating {
			summary.MaxRating = rating
		}
		if summary.Count == 0 || rating < summary.MinRating {
			summary.MinRating = rating
		}
		summary.Count++

		outcome := battlelog.ClassifyOutcome(record, identities)
		switch outcome {
		case battlelog.OutcomeWin:
			summary.Wins++
			addOpponents(&summary.WinOpponents, record, identities)
		case battlelog.OutcomeLoss:
			summary.Losses++
			addOpponents(&summary.LossOpponents, record, identities)
		default:
			summary.Unknown++
		}

		summary.RatingTrend = append(summary.RatingTrend, RatingPoint{
			Time:    SortKey(record),
			Rating:  rating,
			Outcome: outcome,
			URL:     record.URL,
		})
	}

	summary.WinRate = WinRate(summary.Wins, summary.Count)
	return summary
}

func addOpponents(table *OpponentTable, record battlelog.MatchFacts, identities []string) {
	for _, opponent := range battlelog.Opponents(record, identities) {
		table.add(record.Teams[opponent])
	}
}

// WinRate returns wins/count as a whole percentage, halves rounded away from zero.
func WinRate(wins, count int) int {
	if count == 0 {
		return 0
	}
	return int(math.Round(float64(wins) / float64(count) * 100))
}
