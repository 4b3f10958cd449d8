package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/belfry-systems/belfry/internal/model"
)

// Local is the durable tier: a SQLite file surviving agent restarts. Pure-Go
// driver so the agent cross-compiles for the Pi without a toolchain dance.
type Local struct {
	db *sqlx.DB
}

const localSchema = `
CREATE TABLE IF NOT EXISTS schedules (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	day_of_week TEXT NOT NULL,
	time        TEXT NOT NULL,
	audio_file  TEXT NOT NULL,
	is_active   INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE IF NOT EXISTS play_logs (
	id            TEXT PRIMARY KEY,
	schedule_id   INTEGER,
	schedule_name TEXT NOT NULL DEFAULT '',
	audio_file    TEXT NOT NULL,
	played_at     TEXT NOT NULL,
	status        TEXT NOT NULL,
	notes         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// OpenLocal opens (creating if needed) the agent's durable store.
func OpenLocal(path string) (*Local, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(localSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init local schema: %w", err)
	}
	return &Local{db: db}, nil
}

func (l *Local) Close() error { return l.db.Close() }

type scheduleRow struct {
	ID        int    `db:"id"`
	Name      string `db:"name"`
	DayOfWeek string `db:"day_of_week"`
	Time      string `db:"time"`
	AudioFile string `db:"audio_file"`
	IsActive  int    `db:"is_active"`
}

// Schedules reads the full persisted set.
func (l *Local) Schedules() ([]model.Schedule, error) {
	var rows []scheduleRow
	if err := l.db.Select(&rows, `SELECT id, name, day_of_week, time, audio_file, is_active FROM schedules ORDER BY id`); err != nil {
		return nil, err
	}
	out := make([]model.Schedule, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Schedule{
			ID:        r.ID,
			Name:      r.Name,
			DayOfWeek: r.DayOfWeek,
			Time:      r.Time,
			AudioFile: r.AudioFile,
			IsActive:  r.IsActive != 0,
		})
	}
	return out, nil
}

// ReplaceSchedules overwrites the persisted set in one transaction.
func (l *Local) ReplaceSchedules(schedules []model.Schedule) error {
	tx, err := l.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM schedules`); err != nil {
		return err
	}
	for _, s := range schedules {
		active := 0
		if s.IsActive {
			active = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO schedules (id, name, day_of_week, time, audio_file, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.DayOfWeek, s.Time, s.AudioFile, active,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type logRow struct {
	ID           string `db:"id"`
	ScheduleID   *int   `db:"schedule_id"`
	ScheduleName string `db:"schedule_name"`
	AudioFile    string `db:"audio_file"`
	PlayedAt     string `db:"played_at"`
	Status       string `db:"status"`
	Notes        string `db:"notes"`
}

// AppendLog inserts one play log entry and evicts everything beyond the cap,
// oldest first (insertion order, not wall clock, so a skewed clock cannot
// reorder the ring).
func (l *Local) AppendLog(e model.PlayLogEntry, limit int) error {
	tx, err := l.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO play_logs (id, schedule_id, schedule_name, audio_file, played_at, status, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ScheduleID, e.ScheduleName, e.AudioFile, e.PlayedAt.Format(time.RFC3339), e.Status, e.Notes,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM play_logs WHERE rowid NOT IN (SELECT rowid FROM play_logs ORDER BY rowid DESC LIMIT ?)`, limit,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// RecentLogs returns up to n entries, newest first.
func (l *Local) RecentLogs(n int) ([]model.PlayLogEntry, error) {
	var rows []logRow
	if err := l.db.Select(&rows,
		`SELECT id, schedule_id, schedule_name, audio_file, played_at, status, notes FROM play_logs ORDER BY rowid DESC LIMIT ?`, n,
	); err != nil {
		return nil, err
	}
	out := make([]model.PlayLogEntry, 0, len(rows))
	for _, r := range rows {
		at, err := time.Parse(time.RFC3339, r.PlayedAt)
		if err != nil {
			log.Warn().Str("id", r.ID).Str("played_at", r.PlayedAt).Msg("unparseable log timestamp")
		}
		out = append(out, model.PlayLogEntry{
			ID:           r.ID,
			ScheduleID:   r.ScheduleID,
			ScheduleName: r.ScheduleName,
			AudioFile:    r.AudioFile,
			PlayedAt:     at,
			Status:       r.Status,
			Notes:        r.Notes,
		})
	}
	return out, nil
}

// LogCount returns the number of persisted log entries.
func (l *Local) LogCount() (int, error) {
	var n int
	err := l.db.Get(&n, `SELECT COUNT(*) FROM play_logs`)
	return n, err
}

// GetSetting returns a scalar setting, or "" when unset.
func (l *Local) GetSetting(key string) (string, error) {
	var v string
	err := l.db.Get(&v, `SELECT value FROM settings WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// SetSetting upserts a scalar setting.
func (l *Local) SetSetting(key, value string) error {
	_, err := l.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
