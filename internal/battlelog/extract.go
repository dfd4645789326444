package battlelog

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// levelToken matches descriptor fragments such as "L50" that were split off a
// species tuple by mistake.
var levelToken = regexp.MustCompile(`^L\d*$`)

// NormalizeSpecies returns the canonical species from a raw descriptor such as
// "Garchomp, L50, M". Descriptors that look like a level or a number are rejected.
func NormalizeSpecies(descriptor string) (string, bool) {
	species, _, _ := strings.Cut(descriptor, ",")
	species = strings.TrimSpace(species)

	if species == "" || levelToken.MatchString(species) {
		return "", false
	}
	if unicode.IsDigit([]rune(species)[0]) {
		return "", false
	}
	return species, true
}

// SideIndex resolves a side token ("p1", "p2", "p1a: Nickname", "p2b") to
// 0 or 1. The sub-position letter is ignored.
func SideIndex(token string) (int, bool) {
	token = strings.TrimSpace(token)
	if len(token) < 2 || token[0] != 'p' {
		return 0, false
	}
	switch token[1] {
	case '1':
		return 0, true
	case '2':
		return 1, true
	default:
		return 0, false
	}
}

// |poke|p1|Garchomp, L50, M|
func extractRosterReveal(fields []string) Event {
	side, ok := SideIndex(fields[2])
	if !ok {
		return Skip
	}
	species, ok := NormalizeSpecies(fields[3])
	if !ok {
		return Skip
	}
	return Event{Kind: KindRosterReveal, Side: side, Species: species}
}

// |switch|p1a: Chomp|Garchomp, L50, M|100/100
func extractSwitch(fields []string) Event {
	side, ok := SideIndex(fields[2])
	if !ok {
		return Skip
	}

	descriptor := ""
	if len(fields) > 3 {
		descriptor = fields[3]
	} else if _, tail, found := strings.Cut(fields[2], ":"); found {
		descriptor = tail
	}

	species, ok := NormalizeSpecies(descriptor)
	if !ok {
		return Skip
	}
	return Event{Kind: KindSwitch, Side: side, Species: species}
}

// |turn|12
func extractTurn(fields []string) Event {
	turn, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Skip
	}
	return Event{Kind: KindTurn, Turn: turn}
}

// |t:|1700000000
func extractTimestamp(fields []string) Event {
	seconds, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
	if err != nil {
		return Skip
	}
	return Event{Kind: KindTimestamp, Time: time.Unix(seconds, 0).UTC()}
}

// |win|Alice
func extractWin(fields []string) Event {
	winner := strings.TrimSpace(fields[2])
	if winner == "" {
		return Skip
	}
	return Event{Kind: KindWin, Winner: winner}
}
