package subtitle

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw file bytes to a string. A UTF-16 BOM selects UTF-16,
// otherwise the input is read as UTF-8 and a UTF-8 BOM is dropped.
// Invalid UTF-8 sequences become U+FFFD.
func Decode(raw []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("decode subtitle: %w", err)
	}
	return string(out), nil
}
