package override

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	appLog "bizday/internal/log"
	"bizday/internal/model"
)

// Compile-time interface checks.
var _ Persistence = (*SQLitePersistence)(nil)
var _ Persistence = (*FilePersistence)(nil)
var _ Writer = (*SQLitePersistence)(nil)
var _ Writer = (*FilePersistence)(nil)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS custom_calendars (
	id           TEXT PRIMARY KEY,
	display_name TEXT,
	weekend_days TEXT,
	holidays     TEXT,
	makeup_days  TEXT
)`

// SQLitePersistence stores one row per calendar in the custom_calendars
// table. List columns hold JSON arrays; NULL means the field is absent.
type SQLitePersistence struct {
	db *sql.DB
}

// NewSQLitePersistence opens (or creates) the SQLite database at dbPath.
func NewSQLitePersistence(dbPath string) (*SQLitePersistence, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection serialises writers on the file.
	db.SetMaxOpenConns(1)
	return &SQLitePersistence{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLitePersistence) Close() error {
	return s.db.Close()
}

// EnsureDefault creates the table and seeds SampleRules when it is empty.
func (s *SQLitePersistence) EnsureDefault(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create custom_calendars: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM custom_calendars`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for id, o := range SampleRules() {
		if err := putTx(ctx, tx, id, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	appLog.Info("seeded sample overrides", "table", "custom_calendars")
	return nil
}

// Put inserts or replaces the record stored under id.
func (s *SQLitePersistence) Put(ctx context.Context, id string, o model.Override) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := putTx(ctx, tx, id, o); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes the record stored under id, if any.
func (s *SQLitePersistence) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_calendars WHERE id = ?`, id)
	return err
}

func putTx(ctx context.Context, tx *sql.Tx, id string, o model.Override) error {
	weekend, err := jsonColumn(o.WeekendDays)
	if err != nil {
		return err
	}
	holidays, err := jsonColumn(o.Holidays)
	if err != nil {
		return err
	}
	makeup, err := jsonColumn(o.MakeupDays)
	if err != nil {
		return err
	}
	var name sql.NullString
	if o.DisplayName != nil {
		name = sql.NullString{String: *o.DisplayName, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO custom_calendars (id, display_name, weekend_days, holidays, makeup_days)
		 VALUES (?, ?, ?, ?, ?)`,
		id, name, weekend, holidays, makeup)
	return err
}

// Load returns every row. A database without the table has no records.
func (s *SQLitePersistence) Load(ctx context.Context) (map[string]model.Override, error) {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, weekend_days, holidays, makeup_days FROM custom_calendars`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := map[string]model.Override{}
	for rows.Next() {
		var (
			id                         string
			name, weekend, hol, makeup sql.NullString
		)
		if err := rows.Scan(&id, &name, &weekend, &hol, &makeup); err != nil {
			return nil, err
		}

		var o model.Override
		if name.Valid {
			o.DisplayName = &name.String
		}
		if o.WeekendDays, err = fromJSONColumn[[]model.Weekday](weekend); err != nil {
			return nil, fmt.Errorf("custom_calendars %q weekend_days: %w", id, err)
		}
		if o.Holidays, err = fromJSONColumn[[]string](hol); err != nil {
			return nil, fmt.Errorf("custom_calendars %q holidays: %w", id, err)
		}
		if o.MakeupDays, err = fromJSONColumn[[]string](makeup); err != nil {
			return nil, fmt.Errorf("custom_calendars %q makeup_days: %w", id, err)
		}
		records[id] = o
	}
	return records, rows.Err()
}

func jsonColumn[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func fromJSONColumn[T any](col sql.NullString) (*T, error) {
	if !col.Valid {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return nil, err
	}
	return &v, nil
}
