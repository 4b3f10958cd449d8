package sched

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belfry-systems/belfry/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	schedules []model.Schedule
	settings  map[string]string
	logs      []model.PlayLogEntry
}

func (f *fakeStore) ListSchedules() ([]model.Schedule, error) { return f.schedules, nil }
func (f *fakeStore) ListActiveSchedulesByDay(day string) ([]model.Schedule, error) {
	var out []model.Schedule
	for _, s := range f.schedules {
		if s.IsActive && s.DayOfWeek == day {
			out = append(out, s)
		}
	}
	return out, nil
}
func (f *fakeStore) GetSchedule(id int) (model.Schedule, error) {
	for _, s := range f.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Schedule{}, errors.New("not found")
}
func (f *fakeStore) CreateSchedule(s model.Schedule) (int, error)   { return 1, nil }
func (f *fakeStore) UpdateSchedule(int, model.Schedule) error       { return nil }
func (f *fakeStore) DeleteSchedule(int) error                       { return nil }
func (f *fakeStore) ToggleSchedule(int) error                       { return nil }
func (f *fakeStore) ListAudioFiles() ([]model.AudioFile, error)     { return nil, nil }
func (f *fakeStore) GetAudioFile(int) (model.AudioFile, error)      { return model.AudioFile{}, nil }
func (f *fakeStore) CreateAudioFile(model.AudioFile) (int, error)   { return 1, nil }
func (f *fakeStore) DeleteAudioFile(int) error                      { return nil }
func (f *fakeStore) RecentPlayLogs(int) ([]model.PlayLogEntry, error) {
	return f.logs, nil
}
func (f *fakeStore) AddPlayLog(e model.PlayLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, e)
	return nil
}
func (f *fakeStore) GetSetting(key string) (string, error) {
	if f.settings == nil {
		return "", nil
	}
	return f.settings[key], nil
}
func (f *fakeStore) UpdateSetting(key, value string) error {
	if f.settings == nil {
		f.settings = map[string]string{}
	}
	f.settings[key] = value
	return nil
}

type fakePlayer struct {
	mu     sync.Mutex
	played []string
	err    error
}

func (p *fakePlayer) Play(_ context.Context, identifier string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, identifier)
	return nil
}

func TestCronSpec(t *testing.T) {
	spec, err := CronSpec(model.Schedule{DayOfWeek: "Senin", Time: "07:00"})
	require.NoError(t, err)
	assert.Equal(t, "0 7 * * 1", spec)

	spec, err = CronSpec(model.Schedule{DayOfWeek: "Minggu", Time: "23:59"})
	require.NoError(t, err)
	assert.Equal(t, "59 23 * * 0", spec)

	_, err = CronSpec(model.Schedule{DayOfWeek: "Funday", Time: "07:00"})
	assert.Error(t, err)

	_, err = CronSpec(model.Schedule{DayOfWeek: "Senin", Time: "7am"})
	assert.Error(t, err)
}

func TestReloadRegistersActiveOnly(t *testing.T) {
	store := &fakeStore{schedules: []model.Schedule{
		{ID: 1, Name: "Bel Masuk", DayOfWeek: "Senin", Time: "07:00", AudioFile: "a.mp3", IsActive: true},
		{ID: 2, Name: "Nonaktif", DayOfWeek: "Senin", Time: "08:00", AudioFile: "b.mp3", IsActive: false},
		{ID: 3, Name: "Rusak", DayOfWeek: "Badday", Time: "09:00", AudioFile: "c.mp3", IsActive: true},
	}}
	b := New(store, &fakePlayer{}, nil)

	require.NoError(t, b.Reload())
	assert.Len(t, b.entries, 1, "inactive and malformed schedules are skipped")

	// Reload replaces, never accumulates.
	require.NoError(t, b.Reload())
	assert.Len(t, b.entries, 1)
}

func TestRingLogsSuccess(t *testing.T) {
	store := &fakeStore{}
	player := &fakePlayer{}
	b := New(store, player, nil)

	b.ring(model.Schedule{ID: 1, Name: "Bel Masuk", Time: "07:00", AudioFile: "bell.mp3"})

	assert.Equal(t, []string{"bell.mp3"}, player.played)
	require.Len(t, store.logs, 1)
	assert.Equal(t, model.PlaySuccess, store.logs[0].Status)
	require.NotNil(t, store.logs[0].ScheduleID)
	assert.Equal(t, 1, *store.logs[0].ScheduleID)
}

func TestRingHolidayModeCancels(t *testing.T) {
	store := &fakeStore{settings: map[string]string{"holiday_mode": "1"}}
	player := &fakePlayer{}
	b := New(store, player, nil)

	b.ring(model.Schedule{ID: 1, Name: "Bel Masuk", Time: "07:00", AudioFile: "bell.mp3"})

	assert.Empty(t, player.played)
	require.Len(t, store.logs, 1)
	assert.Equal(t, model.PlayCancelled, store.logs[0].Status)
}

func TestRingLogsFailure(t *testing.T) {
	store := &fakeStore{}
	player := &fakePlayer{err: errors.New("no sound device")}
	b := New(store, player, nil)

	b.ring(model.Schedule{ID: 1, Name: "Bel Masuk", Time: "07:00", AudioFile: "bell.mp3"})

	require.Len(t, store.logs, 1)
	assert.Equal(t, model.PlayFailed, store.logs[0].Status)
	assert.Contains(t, store.logs[0].Notes, "no sound device")
}
