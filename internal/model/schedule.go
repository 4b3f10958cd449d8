package model

import "time"

// Schedule is one recurring weekly bell: a weekday, a wall-clock minute and
// the audio file to ring. (day_of_week, time) pairs may repeat; id is unique.
type Schedule struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	Time      string    `db:"time" json:"time"` // HH:MM, 24-hour, minute precision
	AudioFile string    `db:"audio_file" json:"audio_file"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AudioFile is one uploaded bell sound registered on the server.
type AudioFile struct {
	ID          int       `db:"id" json:"id"`
	Filename    string    `db:"filename" json:"filename"`
	DisplayName string    `db:"display_name" json:"display_name"`
	FilePath    string    `db:"file_path" json:"file_path"`
	Duration    float64   `db:"duration" json:"duration"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// NextSchedule is the projection shown on dashboards and in /api/status.
type NextSchedule struct {
	Name      string `json:"name"`
	Time      string `json:"time"`
	AudioFile string `json:"audio_file"`
}
