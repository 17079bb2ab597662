package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/video-stream/subtrans/internal/history"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// LoadHistory returns the persisted entries in insertion order.
func (d *Database) LoadHistory(ctx context.Context) ([]history.Entry, error) {
	return loadHistory(ctx, d.db)
}

func loadHistory(ctx context.Context, q queryer) ([]history.Entry, error) {
	rows, err := q.QueryContext(ctx, "SELECT entry FROM translation_history ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var e history.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AppendHistory inserts e after the newest row, deletes everything but the
// newest max rows and returns the surviving entries. Rows written by other
// processes are kept.
func (d *Database) AppendHistory(ctx context.Context, e history.Entry, max int) ([]history.Entry, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode history entry %s: %w", e.ID, err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO translation_history (id, position, created_at, language, source_file_name, entry)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM translation_history), ?, ?, ?, ?)`,
		e.ID, e.Timestamp, e.Language, e.SourceFileName, string(data),
	); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM translation_history WHERE position <= (
			SELECT position FROM translation_history ORDER BY position DESC LIMIT 1 OFFSET ?
		)`, max,
	); err != nil {
		return nil, err
	}

	entries, err := loadHistory(ctx, tx)
	if err != nil {
		return nil, err
	}
	return entries, tx.Commit()
}

// UpdateHistory rewrites one stored entry. An entry evicted in the meantime
// yields history.ErrNotFound.
func (d *Database) UpdateHistory(ctx context.Context, e history.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry %s: %w", e.ID, err)
	}
	res, err := d.db.ExecContext(ctx, "UPDATE translation_history SET entry = ? WHERE id = ?", string(data), e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", history.ErrNotFound, e.ID)
	}
	return nil
}

var _ history.Persister = (*Database)(nil)
