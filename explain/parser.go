package explain

import (
	"strings"
	"unicode"

	"github.com/poiesic/rapport/core"
)

type section int

const (
	sectionNarrative section = iota
	sectionSimilarities
	sectionDifferences
)

// Parse splits narrator output into a narrative and the similarity and
// difference lists. It never fails: missing sections yield empty lists, and
// text without either marker becomes the narrative as a whole.
func Parse(text string) core.Explanation {
	text = strings.ReplaceAll(text, "**", "")
	explanation := core.Explanation{
		Similarities: []string{},
		Differences:  []string{},
	}

	if !strings.Contains(text, SimilaritiesMarker) && !strings.Contains(text, DifferencesMarker) {
		explanation.Narrative = strings.TrimSpace(text)
		return explanation
	}

	var narrative []string
	current := sectionNarrative
	add := func(text string) {
		switch current {
		case sectionNarrative:
			narrative = append(narrative, text)
		case sectionSimilarities:
			if item, ok := listItem(text); ok {
				explanation.Similarities = append(explanation.Similarities, item)
			}
		case sectionDifferences:
			if item, ok := listItem(text); ok {
				explanation.Differences = append(explanation.Differences, item)
			}
		}
	}

	for _, line := range strings.Split(text, "\n") {
		// Drop markdown heading marks left ahead of a marker.
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		for line != "" {
			if next, rest, ok := markerLine(line); ok {
				current = next
				line = rest
				continue
			}
			// A marker inside a list item is item text; one inside a
			// sentence opens its section.
			if _, ok := listItem(line); ok {
				add(line)
				break
			}
			i := markerIndex(line)
			if i < 0 {
				add(line)
				break
			}
			if head := strings.TrimSpace(line[:i]); head != "" {
				add(head)
			}
			line = line[i:]
		}
	}
	explanation.Narrative = strings.Join(narrative, " ")
	return explanation
}

// markerLine reports whether line opens a section. Text following the
// marker on the same line is returned as rest.
func markerLine(line string) (section, string, bool) {
	switch {
	case strings.HasPrefix(line, SimilaritiesMarker):
		return sectionSimilarities, strings.TrimSpace(line[len(SimilaritiesMarker):]), true
	case strings.HasPrefix(line, DifferencesMarker):
		return sectionDifferences, strings.TrimSpace(line[len(DifferencesMarker):]), true
	}
	return sectionNarrative, "", false
}

// markerIndex returns the position of the first section marker in line, or -1.
func markerIndex(line string) int {
	i := strings.Index(line, SimilaritiesMarker)
	if j := strings.Index(line, DifferencesMarker); j >= 0 && (i < 0 || j < i) {
		i = j
	}
	return i
}

// listItem strips a leading "-", "*", "•" or "N." / "N)" marker.
func listItem(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"):
		line = line[1:]
	case strings.HasPrefix(line, "•"):
		line = line[len("•"):]
	default:
		digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
		if digits <= 0 || (line[digits] != '.' && line[digits] != ')') {
			return "", false
		}
		line = line[digits+1:]
	}

	item := strings.TrimSpace(line)
	return item, item != ""
}
