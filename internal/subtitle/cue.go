package subtitle

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Format identifies one of the supported subtitle text formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatSSA Format = "ssa"
)

var (
	// ErrInvalidFormat is returned when a file yields no usable cues
	ErrInvalidFormat = errors.New("invalid subtitle file")
	// ErrNoUsableFiles is returned when every file of a batch failed to load
	ErrNoUsableFiles = errors.New("no subtitle file could be loaded")
)

// Cue is a single timed subtitle entry
type Cue struct {
	Index string `json:"index"`
	// Timecode is canonical (comma milliseconds) for SRT and VTT cues; SSA/ASS
	// cues keep their source numerals, e.g. "0:00:01.00".
	Timecode Timecode `json:"timecode"`
	Text     string   `json:"text"`
	Style    string   `json:"style,omitempty"` // SSA/ASS only
}

// Style is the subset of an SSA/ASS style the translator keeps
type Style struct {
	Font         string `json:"font"`
	Size         string `json:"size"`
	ColorPrimary string `json:"color_primary"`
}

// StyleTable maps style names to their definition. Scoped to one file.
type StyleTable map[string]Style

// Document is the parsed form of one subtitle file
type Document struct {
	Format Format     `json:"format"`
	Cues   []Cue      `json:"cues"`
	Styles StyleTable `json:"styles"`
}

var (
	bomPrefix    = "\ufeff"
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
)

// DetectFormat picks a format from the file extension; anything unknown is treated as SRT.
func DetectFormat(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".vtt":
		return FormatVTT
	case ".ssa", ".ass":
		return FormatSSA
	default:
		return FormatSRT
	}
}

// ParseFile detects the format from name and parses content.
func ParseFile(name, content string) (Document, error) {
	return Parse(DetectFormat(name), content)
}

// Parse dispatches to the parser for format.
func Parse(format Format, content string) (Document, error) {
	switch format {
	case FormatSRT:
		cues, err := ParseSRT(content)
		return Document{Format: FormatSRT, Cues: cues, Styles: StyleTable{}}, err
	case FormatVTT:
		cues, err := ParseVTT(content)
		return Document{Format: FormatVTT, Cues: cues, Styles: StyleTable{}}, err
	case FormatSSA:
		cues, styles, err := ParseSSA(content)
		return Document{Format: FormatSSA, Cues: cues, Styles: styles}, err
	default:
		return Document{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidFormat, format)
	}
}

func normalizeContent(content string) string {
	content = strings.TrimPrefix(content, bomPrefix)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// splitBlocks splits on runs of blank (or whitespace-only) lines and drops empty blocks.
func splitBlocks(content string) []string {
	var blocks []string
	for _, block := range blankLinesRe.Split(content, -1) {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// nonBlankLines returns the block's lines with whitespace-only lines removed.
func nonBlankLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func emptyFileError(format Format) error {
	return fmt.Errorf("%w: %s file is empty or invalid", ErrInvalidFormat, strings.ToUpper(string(format)))
}
