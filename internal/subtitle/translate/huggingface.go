package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	huggingFaceURL          = "https://api-inference.huggingface.co/models/facebook/nllb-200-distilled-600M"
	DefaultHuggingFaceModel = "facebook/nllb-200-distilled-600M"
	nllbEnglish             = "eng_Latn"
)

var nllbCodes = map[string]string{
	"fa": "pes_Arab",
	"en": "eng_Latn",
	"ar": "arb_Arab",
	"de": "deu_Latn",
	"es": "spa_Latn",
	"fr": "fra_Latn",
	"it": "ita_Latn",
	"ja": "jpn_Jpan",
	"ko": "kor_Hang",
	"pt": "por_Latn",
	"ru": "rus_Cyrl",
	"tr": "tur_Latn",
	"zh": "zho_Hans",
}

var nllbNames = map[string]string{
	"persian": "pes_Arab",
	"farsi":   "pes_Arab",
	"فارسی":   "pes_Arab",
}

// NLLBCode maps a language code, tag or name to an NLLB-200 language code.
// Unknown languages map to English.
func NLLBCode(lang string) string {
	lang = strings.TrimSpace(lang)
	if code, ok := nllbNames[strings.ToLower(lang)]; ok {
		return code
	}
	for iso, name := range langNames {
		if strings.EqualFold(name, lang) {
			if code, ok := nllbCodes[iso]; ok {
				return code
			}
		}
	}
	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		if code, ok := nllbCodes[base.String()]; ok {
			return code
		}
	}
	return nllbEnglish
}

// HuggingFace is a pure translation provider: it receives the raw cue text and
// language codes, and its output is not post-processed.
type HuggingFace struct {
	cfg Config
}

func NewHuggingFace(cfg Config) *HuggingFace {
	cfg.HTTPClient = cfg.httpClient()
	return &HuggingFace{cfg: cfg}
}

func (h *HuggingFace) Name() string {
	return "huggingface"
}

func (h *HuggingFace) Submit(ctx context.Context, req Request) (string, error) {
	src := nllbEnglish
	if req.SourceLang != "" && req.SourceLang != "auto" {
		src = NLLBCode(req.SourceLang)
	}
	payload := map[string]any{
		"inputs": req.Text,
		"parameters": map[string]string{
			"src_lang": src,
			"tgt_lang": NLLBCode(req.TargetLang),
		},
	}

	headers := map[string]string{}
	if h.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + h.cfg.APIKey
	}

	body, err := postJSON(ctx, h.cfg.HTTPClient, h.Name(), h.cfg.baseURL(huggingFaceURL), headers, payload)
	if err != nil {
		return "", err
	}

	var resp []struct {
		TranslationText string `json:"translation_text"`
		TranslatedText  string `json:"translatedText"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("huggingface: %w: parse response: %v", ErrEmptyTranslation, err)
	}
	if len(resp) == 0 {
		return "", fmt.Errorf("huggingface: %w", ErrEmptyTranslation)
	}
	text := firstNonEmpty(resp[0].TranslationText, resp[0].TranslatedText)
	if text == "" {
		return "", fmt.Errorf("huggingface: %w", ErrEmptyTranslation)
	}
	return text, nil
}
