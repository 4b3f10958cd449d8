// exposes a Store interface that is passed to API handlers and the
// server-side scheduler, so tests can substitute fakes.
package db

import (
	"github.com/jmoiron/sqlx"

	"github.com/belfry-systems/belfry/internal/model"
)

type Store interface {
	// schedule functions
	ListSchedules() ([]model.Schedule, error)
	ListActiveSchedulesByDay(day string) ([]model.Schedule, error)
	GetSchedule(id int) (model.Schedule, error)
	CreateSchedule(s model.Schedule) (int, error)
	UpdateSchedule(id int, s model.Schedule) error
	DeleteSchedule(id int) error
	ToggleSchedule(id int) error

	// audio file functions
	ListAudioFiles() ([]model.AudioFile, error)
	GetAudioFile(id int) (model.AudioFile, error)
	CreateAudioFile(a model.AudioFile) (int, error)
	DeleteAudioFile(id int) error

	// play log functions
	AddPlayLog(e model.PlayLogEntry) error
	RecentPlayLogs(limit int) ([]model.PlayLogEntry, error)

	// settings functions
	GetSetting(key string) (string, error)
	UpdateSetting(key, value string) error
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}
