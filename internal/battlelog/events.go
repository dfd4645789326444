package battlelog

import (
	"strings"
	"time"
)

// fieldSeparator delimits protocol fields. A protocol line starts with it,
// so field 0 is always empty and field 1 is the event tag.
const fieldSeparator = "|"

// EventKind identifies the protocol events the aggregator understands
type EventKind int

const (
	KindSkip EventKind = iota
	KindRosterReveal
	KindSwitch
	KindTurn
	KindTimestamp
	KindWin
)

// String returns the protocol tag of the event kind
func (k EventKind) String() string {
	switch k {
	case KindRosterReveal:
		return "poke"
	case KindSwitch:
		return "switch"
	case KindTurn:
		return "turn"
	case KindTimestamp:
		return "t:"
	case KindWin:
		return "win"
	default:
		return "skip"
	}
}

// eventTags maps a protocol tag to its kind and the minimum number of
// fields (including the empty field 0) the line must have.
var eventTags = map[string]struct {
	kind      EventKind
	minFields int
}{
	"poke":   {KindRosterReveal, 4},
	"switch": {KindSwitch, 3},
	"turn":   {KindTurn, 3},
	"t:":     {KindTimestamp, 3},
	"win":    {KindWin, 3},
}

// Event is one decoded protocol line. Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Side    int
	Species string
	Turn    int
	Time    time.Time
	Winner  string
}

// Skip is the event returned for every line the aggregator ignores.
var Skip = Event{Kind: KindSkip}

// SplitFields splits a protocol line on the field separator.
func SplitFields(line string) []string {
	return strings.Split(line, fieldSeparator)
}

// Classify determines the event kind from the tag in field 1. Lines with an
// unknown tag, a non-empty field 0, or too few fields are KindSkip.
func Classify(fields []string) EventKind {
	if len(fields) < 2 || fields[0] != "" {
		return KindSkip
	}
	tag, ok := eventTags[fields[1]]
	if !ok || len(fields) < tag.minFields {
		return KindSkip
	}
	return tag.kind
}

// Decode classifies a single line and extracts its fields. Any line that
// cannot be fully extracted decodes to Skip.
func Decode(line string) Event {
	fields := SplitFields(line)

	switch Classify(fields) {
	case KindSkip:
		return Skip
	case KindRosterReveal:
		return extractRosterReveal(fields)
	case KindSwitch:
		return extractSwitch(fields)
	case KindTurn:
		return extractTurn(fields)
	case KindTimestamp:
		return extractTimestamp(fields)
	case KindWin:
		return extractWin(fields)
	default:
		return Skip
	}
}
