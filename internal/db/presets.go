package db

import (
	"database/sql"
	"errors"

	"github.com/video-stream/subtrans/internal/db/models"
)

// ListTranslationPresets returns all saved presets ordered by creation time
func (d *Database) ListTranslationPresets() ([]models.TranslationPreset, error) {
	rows, err := d.db.Query("SELECT id, name, prompt, created_at FROM translation_presets ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := []models.TranslationPreset{}
	for rows.Next() {
		var p models.TranslationPreset
		if err := rows.Scan(&p.ID, &p.Name, &p.Prompt, &p.CreatedAt); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// GetTranslationPreset returns one saved preset
func (d *Database) GetTranslationPreset(id int64) (*models.TranslationPreset, error) {
	var p models.TranslationPreset
	err := d.db.QueryRow("SELECT id, name, prompt, created_at FROM translation_presets WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.Prompt, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateTranslationPreset saves a new custom translation preset
func (d *Database) CreateTranslationPreset(name, prompt string) (int64, error) {
	result, err := d.db.Exec(
		"INSERT INTO translation_presets (name, prompt) VALUES (?, ?)",
		name, prompt,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateTranslationPreset rewrites a saved preset
func (d *Database) UpdateTranslationPreset(id int64, name, prompt string) error {
	res, err := d.db.Exec("UPDATE translation_presets SET name = ?, prompt = ? WHERE id = ?", name, prompt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTranslationPreset removes a saved preset by ID
func (d *Database) DeleteTranslationPreset(id int64) error {
	_, err := d.db.Exec("DELETE FROM translation_presets WHERE id = ?", id)
	return err
}
