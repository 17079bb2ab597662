package subtitle

import (
	"regexp"
	"strconv"
	"strings"
)

type ssaSection int

const (
	sectionPreamble ssaSection = iota
	sectionStyles
	sectionEvents
	sectionOther
)

const minDialogueFields = 10

var overrideTagRe = regexp.MustCompile(`\{[^}]*\}`)

// ParseSSA parses SSA/ASS content, returning dialogue cues and the style table.
//
// Fields are read positionally: Style lines are Name, Fontname, Fontsize,
// PrimaryColour and Dialogue lines are Layer, Start, End, Style, ..., Text.
// The Format: lines are not consulted, so files that reorder columns are
// misread.
func ParseSSA(content string) ([]Cue, StyleTable, error) {
	var cues []Cue
	styles := StyleTable{}
	section := sectionPreamble
	next := 1

	for _, line := range strings.Split(normalizeContent(content), "\n") {
		if strings.HasPrefix(line, "[") {
			section = sectionFor(strings.TrimSpace(line))
			continue
		}

		switch section {
		case sectionStyles:
			if name, style, ok := parseStyleLine(line); ok {
				styles[name] = style
			}
		case sectionEvents:
			cue, ok := parseDialogueLine(line)
			if !ok {
				continue
			}
			cue.Index = strconv.Itoa(next)
			cues = append(cues, cue)
			next++
		}
	}

	if len(cues) == 0 {
		return nil, styles, emptyFileError(FormatSSA)
	}
	return cues, styles, nil
}

func sectionFor(header string) ssaSection {
	switch strings.ToLower(header) {
	case "[v4+ styles]", "[v4 styles]":
		return sectionStyles
	case "[events]":
		return sectionEvents
	case "[script info]":
		return sectionPreamble
	default:
		return sectionOther
	}
}

func parseStyleLine(line string) (string, Style, bool) {
	rest, ok := strings.CutPrefix(line, "Style:")
	if !ok {
		return "", Style{}, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) < 4 {
		return "", Style{}, false
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return "", Style{}, false
	}
	return name, Style{
		Font:         strings.TrimSpace(parts[1]),
		Size:         strings.TrimSpace(parts[2]),
		ColorPrimary: strings.TrimSpace(parts[3]),
	}, true
}

func parseDialogueLine(line string) (Cue, bool) {
	rest, ok := strings.CutPrefix(line, "Dialogue:")
	if !ok {
		return Cue{}, false
	}
	parts := strings.Split(rest, ",")
	if len(parts) < minDialogueFields {
		return Cue{}, false
	}

	text := strings.Join(parts[9:], ",")
	text = strings.TrimSpace(overrideTagRe.ReplaceAllString(text, ""))
	if text == "" {
		return Cue{}, false
	}
	return Cue{
		Timecode: Timecode{Start: strings.TrimSpace(parts[1]), End: strings.TrimSpace(parts[2])},
		Text:     text,
		Style:    strings.TrimSpace(parts[3]),
	}, true
}
