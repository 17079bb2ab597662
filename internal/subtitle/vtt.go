package subtitle

import (
	"regexp"
	"strconv"
	"strings"
)

// vttTimecodeRe accepts either fractional separator and ignores trailing cue settings.
var vttTimecodeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[,.]\d{3})`)

// ParseVTT parses WebVTT content into cues with a synthesized 1-based index.
//
// A block whose first line is not a timecode but whose second line is gets its
// first line treated as a cue identifier. The identifier is discarded.
// Cue settings after the end time are dropped.
func ParseVTT(content string) ([]Cue, error) {
	var cues []Cue
	next := 1
	for _, block := range splitBlocks(normalizeContent(content)) {
		if strings.HasPrefix(block, "WEBVTT") || isVTTMetadataBlock(block) {
			continue
		}

		lines := nonBlankLines(block)
		if len(lines) < 2 {
			continue
		}

		tc, ok := parseVTTTimecode(lines[0])
		body := lines[1:]
		if !ok {
			if len(lines) < 3 {
				continue
			}
			if tc, ok = parseVTTTimecode(lines[1]); !ok {
				continue
			}
			body = lines[2:]
		}

		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text == "" {
			continue
		}
		cues = append(cues, Cue{Index: strconv.Itoa(next), Timecode: tc, Text: text})
		next++
	}

	if len(cues) == 0 {
		return nil, emptyFileError(FormatVTT)
	}
	return cues, nil
}

func parseVTTTimecode(line string) (Timecode, bool) {
	m := vttTimecodeRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Timecode{}, false
	}
	return Timecode{Start: m[1], End: m[2]}.ToCanonical(), true
}

func isVTTMetadataBlock(block string) bool {
	for _, prefix := range []string{"NOTE", "STYLE", "REGION"} {
		if block == prefix || strings.HasPrefix(block, prefix+" ") || strings.HasPrefix(block, prefix+"\n") {
			return true
		}
	}
	return false
}
