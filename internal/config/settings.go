package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// TranslationSettings is the snapshot one translation run works with.
type TranslationSettings struct {
	DelayMs        int    `toml:"delay_ms" json:"delay_ms" validate:"gte=0,lte=600000"`
	InitialDelayMs int    `toml:"initial_delay_ms" json:"initial_delay_ms" validate:"gte=0,lte=600000"`
	MaxDelayMs     int    `toml:"max_delay_ms" json:"max_delay_ms" validate:"gtefield=InitialDelayMs,lte=3600000"`
	RetryAttempts  int    `toml:"retry_attempts" json:"retry_attempts" validate:"gte=1,lte=20"`
	Separator      string `toml:"separator" json:"separator" validate:"required"`
	Tone           string `toml:"tone" json:"tone" validate:"required"`
	PromptTemplate string `toml:"prompt_template" json:"prompt_template" validate:"required,contains={TEXT}"`
	NoCensor       bool   `toml:"no_censor" json:"no_censor"`
}

// DefaultTranslationSettings returns the settings used until a user saves their own.
func DefaultTranslationSettings(promptTemplate string) TranslationSettings {
	return TranslationSettings{
		DelayMs:        4000,
		InitialDelayMs: 2000,
		MaxDelayMs:     30000,
		RetryAttempts:  3,
		Separator:      "---",
		Tone:           "formal",
		PromptTemplate: promptTemplate,
	}
}

func (s TranslationSettings) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

func (s TranslationSettings) InitialDelay() time.Duration {
	return time.Duration(s.InitialDelayMs) * time.Millisecond
}

func (s TranslationSettings) MaxDelay() time.Duration {
	return time.Duration(s.MaxDelayMs) * time.Millisecond
}

var validate = validator.New()

// Validate checks the settings bounds.
func (s TranslationSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid translation settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid translation settings: %w", err)
	}
	return nil
}

// LoadSettingsFile overlays a TOML file on base and validates the result.
// Keys missing from the file keep their base value.
func LoadSettingsFile(path string, base TranslationSettings) (TranslationSettings, error) {
	file, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("open settings: %w", err)
	}
	defer file.Close()

	settings := base
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&settings); err != nil {
		return base, fmt.Errorf("parse settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return base, err
	}
	return settings, nil
}

// Struct validates any tagged struct with the shared validator.
func Struct(v any) error {
	return validate.Struct(v)
}
