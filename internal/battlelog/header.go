package battlelog

import (
	"regexp"
	"strings"
)

// Header holds match metadata that a bare transcript carries about itself.
// It is only needed when a transcript arrives without its source metadata,
// e.g. a log file saved from the battle client.
type Header struct {
	Players []string
	Format  string
}

// ReadHeader collects |player| and |tier| lines. The first non-empty name
// announced for each side wins; later |player| lines with an empty name are
// sent when a player leaves and are ignored.
func ReadHeader(lines []string) Header {
	var header Header
	names := [2]string{}

	for _, line := range lines {
		fields := SplitFields(line)
		if len(fields) < 3 || fields[0] != "" {
			continue
		}

		switch fields[1] {
		case "player":
			if len(fields) < 4 {
				continue
			}
			side, ok := SideIndex(fields[2])
			name := strings.TrimSpace(fields[3])
			if ok && name != "" && names[side] == "" {
				names[side] = name
			}
		case "tier":
			if header.Format == "" {
				header.Format = strings.TrimSpace(fields[2])
			}
		}
	}

	switch {
	case names[1] != "":
		header.Players = []string{names[0], names[1]}
	case names[0] != "":
		header.Players = []string{names[0]}
	}
	return header
}

var legacyWinPattern = regexp.MustCompile(`([^|<>]+?) won the battle!`)

// LegacyWinner scans free-text messages for "<name> won the battle!".
//
// Deprecated: the |win| event is the canonical winner signal and Parse only
// uses that. This exists for callers importing old transcripts that predate it.
func LegacyWinner(lines []string) (string, bool) {
	winner := ""
	for _, line := range lines {
		if m := legacyWinPattern.FindStringSubmatch(line); m != nil {
			winner = strings.TrimSpace(m[1])
		}
	}
	return winner, winner != ""
}
