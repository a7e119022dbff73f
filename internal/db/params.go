package db

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// SaveParams upserts every numeric entry of params into locator_params.
// Non-numeric values are rejected before anything is written.
func (db *DB) SaveParams(params map[string]any) error {
	values := make(map[string]float64, len(params))
	for k, v := range params {
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("param %q: unsupported value %v (%T)", k, v, v)
		}
		values[k] = f
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := tx.Exec(`
			INSERT INTO locator_params (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, values[k], now,
		); err != nil {
			return fmt.Errorf("save param %q: %w", k, err)
		}
	}
	return tx.Commit()
}

// LoadParams returns every stored parameter as a float64 keyed by name. An
// empty map means nothing has been saved yet.
func (db *DB) LoadParams() (map[string]any, error) {
	rows, err := db.Query(`SELECT key, value FROM locator_params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	params := make(map[string]any)
	for rows.Next() {
		var (
			key   string
			value float64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		params[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return params, nil
}

// ParamsUpdatedAt returns when key was last saved.
func (db *DB) ParamsUpdatedAt(key string) (time.Time, bool, error) {
	var ns int64
	err := db.QueryRow(`SELECT updated_at FROM locator_params WHERE key = ?`, key).Scan(&ns)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, ns), true, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
