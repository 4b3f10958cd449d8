package db

import (
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
)

func (s *pgStore) ListSchedules() ([]model.Schedule, error) {
	var out []model.Schedule
	const q = `
	SELECT id, name, day_of_week, time, audio_file, is_active, created_at
	  FROM schedules
	 ORDER BY day_of_week, time;`
	if err := s.db.Select(&out, q); err != nil {
		log.Error().Err(err).Msg("ListSchedules failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) ListActiveSchedulesByDay(day string) ([]model.Schedule, error) {
	var out []model.Schedule
	const q = `
	SELECT id, name, day_of_week, time, audio_file, is_active, created_at
	  FROM schedules
	 WHERE day_of_week = $1 AND is_active = true
	 ORDER BY time;`
	if err := s.db.Select(&out, q, day); err != nil {
		log.Error().Err(err).Str("day", day).Msg("ListActiveSchedulesByDay failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) GetSchedule(id int) (model.Schedule, error) {
	var out model.Schedule
	err := s.db.Get(&out, `SELECT id, name, day_of_week, time, audio_file, is_active, created_at FROM schedules WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("GetSchedule failed")
	}
	return out, err
}

func (s *pgStore) CreateSchedule(sched model.Schedule) (int, error) {
	var id int
	const q = `
	INSERT INTO schedules (name, day_of_week, time, audio_file, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, now())
	RETURNING id;`
	if err := s.db.Get(&id, q, sched.Name, sched.DayOfWeek, sched.Time, sched.AudioFile, sched.IsActive); err != nil {
		log.Error().Err(err).Msg("CreateSchedule failed")
		return 0, err
	}
	return id, nil
}

func (s *pgStore) UpdateSchedule(id int, sched model.Schedule) error {
	const q = `
	UPDATE schedules
	   SET name = $1, day_of_week = $2, time = $3, audio_file = $4, is_active = $5
	 WHERE id = $6;`
	_, err := s.db.Exec(q, sched.Name, sched.DayOfWeek, sched.Time, sched.AudioFile, sched.IsActive, id)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("UpdateSchedule failed")
	}
	return err
}

func (s *pgStore) DeleteSchedule(id int) error {
	_, err := s.db.Exec(`DELETE FROM schedules WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("DeleteSchedule failed")
	}
	return err
}

func (s *pgStore) ToggleSchedule(id int) error {
	_, err := s.db.Exec(`UPDATE schedules SET is_active = NOT is_active WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("schedule_id", id).Msg("ToggleSchedule failed")
	}
	return err
}
