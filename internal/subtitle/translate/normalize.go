package translate

import (
	"regexp"
	"strings"
)

const DefaultSeparator = "---"

var tagRe = regexp.MustCompile(`<[^>]+>`)

// Normalize cleans raw LLM output: it keeps the text after the last separator,
// strips <...> tags and blank lines, and trims. An empty result is
// ErrEmptyTranslation.
func Normalize(raw, separator string) (string, error) {
	if separator == "" {
		separator = DefaultSeparator
	}
	if i := strings.LastIndex(raw, separator); i >= 0 {
		raw = raw[i+len(separator):]
	}
	raw = tagRe.ReplaceAllString(raw, "")

	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, "\r"))
		}
	}

	text := strings.TrimSpace(strings.Join(kept, "\n"))
	if text == "" {
		return "", ErrEmptyTranslation
	}
	return text, nil
}
