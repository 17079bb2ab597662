package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultCueFontSize = "16"
	defaultCueColor    = "#ffffff"
)

var (
	classNameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	ssaClockRe  = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[.,](\d{2,3})$`)
)

// Render serializes cues as "{index}\n{timecode}\n{text}\n\n" blocks.
func Render(cues []Cue) string {
	var b strings.Builder
	for _, c := range cues {
		fmt.Fprintf(&b, "%s\n%s\n%s\n\n", c.Index, c.Timecode, c.Text)
	}
	return b.String()
}

// ToWebVTT builds a WebVTT track for a player. SSA cues whose style defines a
// font are wrapped in a class span and styled from a STYLE block.
func ToWebVTT(cues []Cue, format Format, styles StyleTable) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	classes := map[string]string{}
	if format == FormatSSA {
		for _, c := range cues {
			style, ok := styles[c.Style]
			if !ok || style.Font == "" {
				continue
			}
			class := sanitizeClassName(c.Style)
			if _, seen := classes[c.Style]; seen {
				continue
			}
			classes[c.Style] = class
			fmt.Fprintf(&b, "STYLE\n::cue(.%s) { font-family: %s; font-size: %spx; color: %s; }\n\n",
				class, style.Font, orDefault(style.Size, defaultCueFontSize), cssColor(style.ColorPrimary))
		}
	}

	for _, c := range cues {
		text := c.Text
		if class, ok := classes[c.Style]; ok {
			text = "<c." + class + ">" + text + "</c>"
		}
		fmt.Fprintf(&b, "%s\n%s\n\n", vttTimecode(c.Timecode, format), text)
	}
	return b.String()
}

func vttTimecode(tc Timecode, format Format) Timecode {
	if format != FormatSSA {
		return tc.ToVTT()
	}
	return Timecode{Start: ssaClockToVTT(tc.Start), End: ssaClockToVTT(tc.End)}
}

// ssaClockToVTT pads "H:MM:SS.cc" to "HH:MM:SS.ccc"; unknown shapes pass through.
func ssaClockToVTT(clock string) string {
	m := ssaClockRe.FindStringSubmatch(clock)
	if m == nil {
		return clock
	}
	frac := m[4]
	for len(frac) < 3 {
		frac += "0"
	}
	hours := m[1]
	if len(hours) == 1 {
		hours = "0" + hours
	}
	return hours + ":" + m[2] + ":" + m[3] + "." + frac
}

func sanitizeClassName(name string) string {
	return classNameRe.ReplaceAllString(name, "_")
}

// cssColor converts an SSA &HAABBGGRR / &HBBGGRR colour to #rrggbb.
func cssColor(ssa string) string {
	v := strings.TrimSuffix(strings.TrimPrefix(strings.ToUpper(ssa), "&H"), "&")
	if len(v) != 6 && len(v) != 8 {
		if strings.HasPrefix(ssa, "#") {
			return ssa
		}
		return defaultCueColor
	}
	v = v[len(v)-6:]
	for _, r := range v {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return defaultCueColor
		}
	}
	return "#" + strings.ToLower(v[4:6]+v[2:4]+v[0:2])
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
