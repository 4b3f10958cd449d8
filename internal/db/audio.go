package db

import (
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
)

func (s *pgStore) ListAudioFiles() ([]model.AudioFile, error) {
	var out []model.AudioFile
	const q = `
	SELECT id, filename, display_name, file_path, duration, uploaded_at
	  FROM audio_files
	 ORDER BY uploaded_at DESC;`
	if err := s.db.Select(&out, q); err != nil {
		log.Error().Err(err).Msg("ListAudioFiles failed")
		return nil, err
	}
	return out, nil
}

func (s *pgStore) GetAudioFile(id int) (model.AudioFile, error) {
	var out model.AudioFile
	err := s.db.Get(&out, `SELECT id, filename, display_name, file_path, duration, uploaded_at FROM audio_files WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("audio_id", id).Msg("GetAudioFile failed")
	}
	return out, err
}

func (s *pgStore) CreateAudioFile(a model.AudioFile) (int, error) {
	var id int
	const q = `
	INSERT INTO audio_files (filename, display_name, file_path, duration, uploaded_at)
	VALUES ($1, $2, $3, $4, now())
	RETURNING id;`
	if err := s.db.Get(&id, q, a.Filename, a.DisplayName, a.FilePath, a.Duration); err != nil {
		log.Error().Err(err).Str("filename", a.Filename).Msg("CreateAudioFile failed")
		return 0, err
	}
	return id, nil
}

func (s *pgStore) DeleteAudioFile(id int) error {
	_, err := s.db.Exec(`DELETE FROM audio_files WHERE id = $1;`, id)
	if err != nil {
		log.Error().Err(err).Int("audio_id", id).Msg("DeleteAudioFile failed")
	}
	return err
}
