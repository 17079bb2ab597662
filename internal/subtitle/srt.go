package subtitle

import (
	"regexp"
	"strings"
)

var srtIndexRe = regexp.MustCompile(`^\d+$`)

// ParseSRT parses SubRip content. Blocks need a numeric index line, a
// canonical timecode line and at least one line of text; anything else is
// skipped without failing the file.
func ParseSRT(content string) ([]Cue, error) {
	var cues []Cue
	for _, block := range splitBlocks(normalizeContent(content)) {
		lines := nonBlankLines(block)
		if len(lines) < 3 {
			continue
		}

		index := strings.TrimSpace(lines[0])
		if !srtIndexRe.MatchString(index) {
			continue
		}

		tc, ok := ParseTimecode(lines[1])
		if !ok {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[2:], "\n"))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Index: index, Timecode: tc, Text: text})
	}

	if len(cues) == 0 {
		return nil, emptyFileError(FormatSRT)
	}
	return cues, nil
}
