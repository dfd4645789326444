package battlelog

import "strings"

// TokenizeString splits a newline separated transcript into trimmed, non-empty lines.
func TokenizeString(text string) []string {
	if text == "" {
		return []string{}
	}
	return TokenizeSlice(strings.Split(text, "\n"))
}

// TokenizeSlice trims every record and drops the blank ones. Order is kept
// because turn counting and first-timestamp detection depend on it.
func TokenizeSlice(records []string) []string {
	lines := make([]string, 0, len(records))
	for _, record := range records {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		lines = append(lines, record)
	}
	return lines
}
