package endpoints

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belfry-systems/belfry/internal/http/api"
	"github.com/belfry-systems/belfry/internal/http/api/bells"
	"github.com/belfry-systems/belfry/internal/http/api/bells/packets"
	"github.com/belfry-systems/belfry/internal/model"
)

type fakeStore struct {
	schedules []model.Schedule
	settings  map[string]string
	logs      []model.PlayLogEntry
	nextID    int
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
func (f *fakeStore) CreateSchedule(s model.Schedule) (int, error) {
	f.nextID++
	s.ID = f.nextID
	f.schedules = append(f.schedules, s)
	return s.ID, nil
}
func (f *fakeStore) UpdateSchedule(id int, s model.Schedule) error {
	for i := range f.schedules {
		if f.schedules[i].ID == id {
			s.ID = id
			f.schedules[i] = s
		}
	}
	return nil
}
func (f *fakeStore) DeleteSchedule(id int) error {
	for i := range f.schedules {
		if f.schedules[i].ID == id {
			f.schedules = append(f.schedules[:i], f.schedules[i+1:]...)
			break
		}
	}
	return nil
}
func (f *fakeStore) ToggleSchedule(id int) error {
	for i := range f.schedules {
		if f.schedules[i].ID == id {
			f.schedules[i].IsActive = !f.schedules[i].IsActive
		}
	}
	return nil
}
func (f *fakeStore) ListAudioFiles() ([]model.AudioFile, error)   { return nil, nil }
func (f *fakeStore) GetAudioFile(int) (model.AudioFile, error)    { return model.AudioFile{}, nil }
func (f *fakeStore) CreateAudioFile(model.AudioFile) (int, error) { return 1, nil }
func (f *fakeStore) DeleteAudioFile(int) error                    { return nil }
func (f *fakeStore) AddPlayLog(e model.PlayLogEntry) error {
	f.logs = append(f.logs, e)
	return nil
}
func (f *fakeStore) RecentPlayLogs(limit int) ([]model.PlayLogEntry, error) {
	if limit > len(f.logs) {
		limit = len(f.logs)
	}
	return f.logs[:limit], nil
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

func newTestRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	notifier := &bells.Notifier{}
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"},
		ScheduleModule(store, notifier),
		StatusModule(store, nil),
		SettingsModule(store, nil, notifier),
		LogModule(store),
	)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateSchedule(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/schedules", gin.H{
		"name":        "Bel Masuk",
		"day_of_week": "Senin",
		"time":        "07:00",
		"audio_file":  "bell.mp3",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp packets.MutationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.ID)
	require.Len(t, store.schedules, 1)
	assert.True(t, store.schedules[0].IsActive, "new schedules default to active")
}

func TestCreateScheduleRejectsBadInput(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store)

	cases := []gin.H{
		{"day_of_week": "Senin", "time": "07:00", "audio_file": "a.mp3"},                      // missing name
		{"name": "x", "day_of_week": "Monday", "time": "07:00", "audio_file": "a.mp3"},       // bad day
		{"name": "x", "day_of_week": "Senin", "time": "7 o'clock", "audio_file": "a.mp3"},    // bad time
	}
	for _, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/api/schedules", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp packets.MutationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Error)
	}
	assert.Empty(t, store.schedules)
}

func TestUpdateSchedulePartial(t *testing.T) {
	store := &fakeStore{
		schedules: []model.Schedule{{ID: 1, Name: "Bel Masuk", DayOfWeek: "Senin", Time: "07:00", AudioFile: "bell.mp3", IsActive: true}},
		nextID:    1,
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPut, "/api/schedules/1", gin.H{"time": "07:15"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "07:15", store.schedules[0].Time)
	assert.Equal(t, "Bel Masuk", store.schedules[0].Name, "untouched fields survive")
}

func TestDeleteAndToggleSchedule(t *testing.T) {
	store := &fakeStore{
		schedules: []model.Schedule{{ID: 1, Name: "Bel Masuk", DayOfWeek: "Senin", Time: "07:00", AudioFile: "bell.mp3", IsActive: true}},
		nextID:    1,
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/schedules/1/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.schedules[0].IsActive)

	w = doJSON(t, r, http.MethodDelete, "/api/schedules/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.schedules)
}

func TestStatusReportsNextSchedule(t *testing.T) {
	store := &fakeStore{
		schedules: []model.Schedule{
			{ID: 1, Name: "Bel Masuk", DayOfWeek: "Senin", Time: "07:00", AudioFile: "bell.mp3", IsActive: true},
		},
		settings: map[string]string{"volume": "65", "holiday_mode": "0"},
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ctl := NewStatusController(store, nil)
	ctl.now = func() time.Time { return time.Date(2025, 3, 3, 6, 0, 0, 0, time.Local) } // Senin 06:00
	api.MountGroup(r, api.GroupConfig{Prefix: "/api"}, api.ModuleFunc(func(c *api.Controller) {
		c.Handle(http.MethodGet, "/status", ctl.status)
	}))

	w := doJSON(t, r, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status model.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 65, status.Volume)
	assert.False(t, status.HolidayMode)
	assert.Equal(t, "Senin", status.CurrentDay)
	require.NotNil(t, status.NextSchedule)
	assert.Equal(t, "07:00", status.NextSchedule.Time)
}

func TestSettingsRoundTrip(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/settings", gin.H{"volume": 130, "holiday_mode": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", store.settings["volume"], "volume clamps to 100")
	assert.Equal(t, "1", store.settings["holiday_mode"])

	w = doJSON(t, r, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var settings model.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Equal(t, 100, settings.Volume)
	assert.True(t, settings.HolidayMode)
}

func TestLogsEndpoint(t *testing.T) {
	store := &fakeStore{}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/logs", gin.H{
		"audio_file":    "bell.mp3",
		"status":        model.PlaySuccess,
		"schedule_name": "Bel Masuk",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.logs, 1)
	assert.False(t, store.logs[0].PlayedAt.IsZero(), "missing timestamp is filled in")

	w = doJSON(t, r, http.MethodGet, "/api/logs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []model.PlayLogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)

	w = doJSON(t, r, http.MethodGet, "/api/logs?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
