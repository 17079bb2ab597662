package db

import (
	"encoding/json"
	"fmt"

	"github.com/video-stream/subtrans/internal/config"
)

const translationSettingsKey = "translation_settings"

// APIKeySetting is the settings key holding a provider's API key.
func APIKeySetting(provider string) string {
	return provider + "_api_key"
}

// GetSetting returns a setting value by key, or defaultVal if not found
func (d *Database) GetSetting(key, defaultVal string) string {
	var val string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&val)
	if err != nil {
		return defaultVal
	}
	return val
}

// SetSetting upserts a setting
func (d *Database) SetSetting(key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP`,
		key, value, value,
	)
	return err
}

// GetAllSettings returns all settings as a map
func (d *Database) GetAllSettings() (map[string]string, error) {
	rows, err := d.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

// APIKeys returns the stored key of every provider that has one.
func (d *Database) APIKeys(providers []string) map[string]string {
	keys := make(map[string]string)
	for _, p := range providers {
		if k := d.GetSetting(APIKeySetting(p), ""); k != "" {
			keys[p] = k
		}
	}
	return keys
}

// SetAPIKey stores a provider key; an empty key removes it.
func (d *Database) SetAPIKey(provider, key string) error {
	if key == "" {
		_, err := d.db.Exec("DELETE FROM settings WHERE key = ?", APIKeySetting(provider))
		return err
	}
	return d.SetSetting(APIKeySetting(provider), key)
}

// TranslationSettings returns the stored settings overlaid on defaults.
func (d *Database) TranslationSettings(defaults config.TranslationSettings) (config.TranslationSettings, error) {
	raw := d.GetSetting(translationSettingsKey, "")
	if raw == "" {
		return defaults, nil
	}
	s := defaults
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return defaults, fmt.Errorf("decode translation settings: %w", err)
	}
	return s, nil
}

// SaveTranslationSettings validates and stores s.
func (d *Database) SaveTranslationSettings(s config.TranslationSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return d.SetSetting(translationSettingsKey, string(data))
}
