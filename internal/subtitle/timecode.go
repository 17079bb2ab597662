package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

const arrow = "-->"

// canonicalTimecodeRe gates SRT timecode lines and VTT lines after conversion.
var canonicalTimecodeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})$`)

// Timecode is a cue's start/end pair kept in its textual form.
// Conversions only substitute separators; the digits are never re-derived.
type Timecode struct {
	Start string
	End   string
}

// String renders the pair as "start --> end".
func (t Timecode) String() string {
	return t.Start + " " + arrow + " " + t.End
}

// ToVTT swaps the comma fractional separator for a dot on both sides.
func (t Timecode) ToVTT() Timecode {
	return Timecode{
		Start: strings.ReplaceAll(t.Start, ",", "."),
		End:   strings.ReplaceAll(t.End, ",", "."),
	}
}

// ToCanonical replaces the first dot on each side with a comma.
func (t Timecode) ToCanonical() Timecode {
	return Timecode{
		Start: strings.Replace(t.Start, ".", ",", 1),
		End:   strings.Replace(t.End, ".", ",", 1),
	}
}

// MarshalText encodes the timecode as its "start --> end" line.
func (t Timecode) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts any "start --> end" line without validating the fields.
func (t *Timecode) UnmarshalText(data []byte) error {
	tc, ok := splitTimecode(string(data))
	if !ok {
		return fmt.Errorf("timecode %q: missing %q", string(data), arrow)
	}
	*t = tc
	return nil
}

// ParseTimecode validates a canonical "HH:MM:SS,mmm --> HH:MM:SS,mmm" line.
func ParseTimecode(line string) (Timecode, bool) {
	m := canonicalTimecodeRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Timecode{}, false
	}
	return Timecode{Start: m[1], End: m[2]}, true
}

func splitTimecode(line string) (Timecode, bool) {
	start, end, ok := strings.Cut(line, arrow)
	if !ok {
		return Timecode{}, false
	}
	return Timecode{Start: strings.TrimSpace(start), End: strings.TrimSpace(end)}, true
}
