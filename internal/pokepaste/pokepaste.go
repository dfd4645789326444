// Package pokepaste reads the plain-text team export used by team-sharing
// sites and the battle client's teambuilder.
package pokepaste

import (
	"strings"
)

// Set is one Pokémon of an exported team
type Set struct {
	Nickname string   `json:"nickname,omitempty"`
	Species  string   `json:"species"`
	Gender   string   `json:"gender,omitempty"`
	Item     string   `json:"item,omitempty"`
	Ability  string   `json:"ability,omitempty"`
	TeraType string   `json:"teraType,omitempty"`
	Moves    []string `json:"moves"`
}

// Team is a parsed export in paste order
type Team struct {
	Sets []Set `json:"sets"`
}

// Species returns the team's species in paste order without duplicates.
func (t Team) Species() []string {
	seen := make(map[string]struct{}, len(t.Sets))
	species := make([]string, 0, len(t.Sets))
	for _, set := range t.Sets {
		if _, ok := seen[set.Species]; ok {
			continue
		}
		seen[set.Species] = struct{}{}
		species = append(species, set.Species)
	}
	return species
}

// Parse splits an export into blank-line separated blocks and reads each one.
// Blocks whose header yields no species are dropped.
func Parse(text string) Team {
	team := Team{Sets: []Set{}}

	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		if set, ok := parseBlock(block); ok {
			team.Sets = append(team.Sets, set)
		}
		block = nil
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()

	return team
}

func parseBlock(lines []string) (Set, bool) {
	set, ok := parseHeader(lines[0])
	if !ok {
		return Set{}, false
	}
	set.Moves = []string{}

	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "- "):
			set.Moves = append(set.Moves, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "Ability:"):
			set.Ability = strings.TrimSpace(strings.TrimPrefix(line, "Ability:"))
		case strings.HasPrefix(line, "Tera Type:"):
			set.TeraType = strings.TrimSpace(strings.TrimPrefix(line, "Tera Type:"))
		}
	}
	return set, true
}

// attributePrefixes start the detail lines of a set. A block opening with one
// of them has lost its header.
var attributePrefixes = []string{
	"Ability:", "Level:", "EVs:", "IVs:", "Tera Type:", "Shiny:", "Happiness:",
	"Gigantamax:", "Dynamax Level:", "Hidden Power:", "Pokeball:", "- ",
}

func isAttributeLine(line string) bool {
	for _, prefix := range attributePrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	// "Timid Nature"
	return strings.HasSuffix(line, " Nature") && !strings.Contains(line, " @ ")
}

// parseHeader reads "Nickname (Species) (F) @ Item", "Species (M) @ Item" or "Species".
func parseHeader(line string) (Set, bool) {
	var set Set
	if isAttributeLine(line) {
		return Set{}, false
	}

	name, item, found := strings.Cut(line, " @ ")
	if found {
		set.Item = strings.TrimSpace(item)
	}
	name = strings.TrimSpace(name)

	for _, gender := range []string{"M", "F"} {
		if suffix := " (" + gender + ")"; strings.HasSuffix(name, suffix) {
			set.Gender = gender
			name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
			break
		}
	}

	if strings.HasSuffix(name, ")") {
		if open := strings.LastIndex(name, " ("); open > 0 {
			set.Nickname = strings.TrimSpace(name[:open])
			name = name[open+2 : len(name)-1]
		}
	}

	set.Species = strings.TrimSpace(name)
	if set.Species == "" {
		return Set{}, false
	}
	return set, true
}
