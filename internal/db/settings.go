package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"
)

func (s *pgStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.Get(&value, `SELECT value FROM settings WHERE key = $1;`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("GetSetting failed")
		return "", err
	}
	return value, nil
}

func (s *pgStore) UpdateSetting(key, value string) error {
	const q = `
	INSERT INTO settings (key, value, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = now();`
	_, err := s.db.Exec(q, key, value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("UpdateSetting failed")
	}
	return err
}
