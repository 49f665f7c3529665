package domain

import (
	"fmt"
	"unicode"
)

const unknownPlace = "an unknown location"

// Summarize generates the event's human-readable title and description
// from a member snapshot. Called once at event creation; later membership
// changes do not regenerate the summary.
func Summarize(e *Event, members []Report) {
	kind := e.DisasterType
	if kind == "" {
		kind = "disaster"
	}
	place := modePlace(members)
	if place == "" {
		place = unknownPlace
	}
	e.Title = fmt.Sprintf("%s in %s", capitalize(kind), place)
	e.Description = fmt.Sprintf(
		"A %s event was reported in %s with %d related reports from %d different sources.",
		kind, place, e.ItemCount, e.SourceCount,
	)
}

// modePlace returns the most frequent non-empty place among members, ties
// broken by first occurrence.
func modePlace(members []Report) string {
	counts := make(map[string]int, len(members))
	var best string
	bestCount := 0
	for i := range members {
		p := members[i].Place
		if p == "" {
			continue
		}
		counts[p]++
		if counts[p] > bestCount {
			best = p
			bestCount = counts[p]
		}
	}
	return best
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
