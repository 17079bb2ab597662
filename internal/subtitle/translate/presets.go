package translate

import "strings"

// DefaultPromptTemplate is used when the settings carry no template.
const DefaultPromptTemplate = "Translate the subtitle text inside <> into {LANG}. Instructions: " +
	"- Preserve the original meaning. " +
	"- Use a {TONE} tone. " +
	"- Keep a natural conversational flow. " +
	"- Keep the length suitable for a subtitle. " +
	"- Keep exactly the original number of lines. " +
	"- Output only the translated text, separated by {SEP}. <{TEXT}>"

const uncensorDirective = "\nDo not censor explicit content."

// BuildPrompt substitutes {LANG}, {TONE}, {TEXT} and {SEP} into template and
// appends the uncensor directive when noCensor is set.
func BuildPrompt(template, lang, tone, text, separator string, noCensor bool) string {
	if template == "" {
		template = DefaultPromptTemplate
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	prompt := strings.NewReplacer(
		"{LANG}", LangName(lang),
		"{TONE}", tone,
		"{TEXT}", text,
		"{SEP}", separator,
	).Replace(template)
	if noCensor {
		prompt += uncensorDirective
	}
	return prompt
}

// Presets are built-in prompt templates selectable by name.
var Presets = map[string]string{
	"anime": DefaultPromptTemplate + "\n\n" +
		"Additional guidelines for anime translation:\n" +
		"- Use casual, natural speech patterns appropriate for anime dialogue\n" +
		"- Preserve Japanese honorifics (-san, -kun, -chan, -senpai, -sensei)\n" +
		"- Keep character name consistency\n" +
		"- Match the emotional tone (excited, serious, comedic)\n" +
		"- Translate onomatopoeia and sound effects appropriately",

	"movie": DefaultPromptTemplate + "\n\n" +
		"Additional guidelines for movie/drama translation:\n" +
		"- Use natural conversational style appropriate for the genre\n" +
		"- Preserve cultural nuances and idioms with equivalent expressions\n" +
		"- Maintain formal/informal register matching the original dialogue\n" +
		"- Keep subtitles readable within typical display time (max 2 lines)",

	"documentary": DefaultPromptTemplate + "\n\n" +
		"Additional guidelines for documentary translation:\n" +
		"- Use formal, precise language\n" +
		"- Preserve all technical terminology with accurate translations\n" +
		"- Maintain proper nouns, scientific names, and place names\n" +
		"- Keep numbers, dates, and measurements accurate",
}

// PresetTemplate returns the built-in template for preset, or "" when unknown.
func PresetTemplate(preset string) string {
	return Presets[strings.ToLower(strings.TrimSpace(preset))]
}

var langNames = map[string]string{
	"fa":   "Persian",
	"ko":   "Korean",
	"en":   "English",
	"ja":   "Japanese",
	"zh":   "Chinese",
	"es":   "Spanish",
	"fr":   "French",
	"de":   "German",
	"pt":   "Portuguese",
	"it":   "Italian",
	"ru":   "Russian",
	"ar":   "Arabic",
	"tr":   "Turkish",
	"hi":   "Hindi",
	"th":   "Thai",
	"vi":   "Vietnamese",
	"id":   "Indonesian",
	"auto": "auto-detected language",
}

// LangName turns a language code into its English name. Anything else,
// including names already spelled out, is returned unchanged.
func LangName(code string) string {
	if name, ok := langNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
