package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
)

func (s *pgStore) AddPlayLog(e model.PlayLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.PlayedAt.IsZero() {
		e.PlayedAt = time.Now()
	}
	const q = `
	INSERT INTO play_logs (id, schedule_id, schedule_name, audio_file, played_at, status, notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO NOTHING;`
	_, err := s.db.Exec(q, e.ID, e.ScheduleID, e.ScheduleName, e.AudioFile, e.PlayedAt, e.Status, e.Notes)
	if err != nil {
		log.Error().Err(err).Str("status", e.Status).Msg("AddPlayLog failed")
	}
	return err
}

func (s *pgStore) RecentPlayLogs(limit int) ([]model.PlayLogEntry, error) {
	var out []model.PlayLogEntry
	const q = `
	SELECT l.id, l.schedule_id,
	       COALESCE(NULLIF(l.schedule_name, ''), sc.name, '') AS schedule_name,
	       l.audio_file, l.played_at, l.status, l.notes
	  FROM play_logs l
	  LEFT JOIN schedules sc ON sc.id = l.schedule_id
	 ORDER BY l.played_at DESC
	 LIMIT $1;`
	if err := s.db.Select(&out, q, limit); err != nil {
		log.Error().Err(err).Msg("RecentPlayLogs failed")
		return nil, err
	}
	return out, nil
}
