package battlelog

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidLog is returned when a log field is neither a string nor an array of strings.
var ErrInvalidLog = errors.New("battle log must be a string or an array of strings")

// RawLog holds a battle transcript as it arrived from the source: either one
// newline separated blob or a list of records that were already split.
type RawLog struct {
	text    string
	records []string
	split   bool
}

// LogText wraps a newline separated transcript.
func LogText(text string) RawLog {
	return RawLog{text: text}
}

// LogRecords wraps a transcript that is already split into records.
func LogRecords(records ...string) RawLog {
	return RawLog{records: records, split: true}
}

// Lines returns the tokenized, non-empty lines of the transcript in original order.
func (l RawLog) Lines() []string {
	if l.split {
		return TokenizeSlice(l.records)
	}
	return TokenizeString(l.text)
}

// IsZero reports whether the transcript carries no data at all.
func (l RawLog) IsZero() bool {
	if l.split {
		return len(l.records) == 0
	}
	return l.text == ""
}

// UnmarshalJSON accepts a JSON string, an array of strings, or null.
func (l *RawLog) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = RawLog{}
		return nil
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLog, err)
		}
		*l = LogText(text)
		return nil
	case '[':
		var records []string
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidLog, err)
		}
		*l = LogRecords(records...)
		return nil
	default:
		return ErrInvalidLog
	}
}

// MarshalJSON writes the transcript back in the shape it was received.
func (l RawLog) MarshalJSON() ([]byte, error) {
	if l.split {
		records := l.records
		if records == nil {
			records = []string{}
		}
		return json.Marshal(records)
	}
	return json.Marshal(l.text)
}

// RawMatchPayload is what the fetch collaborator hands to the parser.
// Players are ordered: index 0 is side p1, index 1 is side p2.
type RawMatchPayload struct {
	URL        string   `json:"url"`
	Players    []string `json:"players"`
	Format     string   `json:"format"`
	Rating     *int     `json:"rating,omitempty"`
	BattleDate string   `json:"battleDate,omitempty"`
	Log        RawLog   `json:"log"`
}
