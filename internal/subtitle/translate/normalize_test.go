package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		sep  string
		want string
	}{
		{"plain", "  Salam  ", "---", "Salam"},
		{"after last separator", "Original line\n---\nfirst\n---\n<b>final</b> text", "---", "final text"},
		{"blank lines removed", "one\n\n   \ntwo\n", "---", "one\ntwo"},
		{"custom separator", "noise ### kept", "###", "kept"},
		{"default separator", "noise --- kept", "", "kept"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.sep)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "text ---", "<i></i>", "---\n\n"} {
		_, err := Normalize(raw, "---")
		assert.ErrorIs(t, err, ErrEmptyTranslation, raw)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("To {LANG} in {TONE} tone: <{TEXT}> sep {SEP}", "fa", "formal", "Hello", "", false)
	assert.Equal(t, "To Persian in formal tone: <Hello> sep ---", prompt)

	prompt = BuildPrompt("", "German", "casual", "Hi", "---", true)
	assert.Contains(t, prompt, "into German")
	assert.Contains(t, prompt, "<Hi>")
	assert.Contains(t, prompt, "casual tone")
	assert.Contains(t, prompt, uncensorDirective)
}

func TestPresetTemplate(t *testing.T) {
	assert.Contains(t, PresetTemplate("Anime"), "honorifics")
	assert.Contains(t, PresetTemplate("movie"), "{TEXT}")
	assert.Empty(t, PresetTemplate("unknown"))
}

func TestNLLBCode(t *testing.T) {
	assert.Equal(t, "pes_Arab", NLLBCode("fa"))
	assert.Equal(t, "pes_Arab", NLLBCode("فارسی"))
	assert.Equal(t, "pes_Arab", NLLBCode("Persian"))
	assert.Equal(t, "deu_Latn", NLLBCode("de-AT"))
	assert.Equal(t, "fra_Latn", NLLBCode("French"))
	assert.Equal(t, "eng_Latn", NLLBCode("Klingon"))
}
