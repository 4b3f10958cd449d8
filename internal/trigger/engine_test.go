package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/store"
)

type fakeRemote struct {
	mu        sync.Mutex
	schedules []model.Schedule
	status    model.Status
	logs      []model.PlayLogEntry
}

func (f *fakeRemote) FetchSchedules(context.Context) ([]model.Schedule, error) {
	return f.schedules, nil
}
func (f *fakeRemote) CreateSchedule(_ context.Context, s model.Schedule) (int, error) {
	return s.ID, nil
}
func (f *fakeRemote) UpdateSchedule(context.Context, int, model.Schedule) error { return nil }
func (f *fakeRemote) DeleteSchedule(context.Context, int) error                 { return nil }
func (f *fakeRemote) ToggleSchedule(context.Context, int) error                 { return nil }
func (f *fakeRemote) FetchStatus(context.Context) (*model.Status, error) {
	st := f.status
	return &st, nil
}
func (f *fakeRemote) PushLog(_ context.Context, e model.PlayLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, e)
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

func (p *fakePlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.played)
}

// monday is a Senin at 06:00 local time.
var monday = time.Date(2025, 3, 3, 6, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T, remote *fakeRemote, player Player) (*Engine, *store.Store) {
	t.Helper()
	st := store.NewStore(remote, nil)
	st.Load(context.Background())
	e := New(st, player)
	return e, st
}

func setNow(e *Engine, at time.Time) {
	e.now = func() time.Time { return at }
}

func bellAt(id int, day, clock string) model.Schedule {
	return model.Schedule{
		ID: id, Name: "Bel Masuk", DayOfWeek: day, Time: clock,
		AudioFile: "bell.mp3", IsActive: true,
	}
}

func TestFiresOncePerScheduledMinute(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	player := &fakePlayer{}
	e, _ := newTestEngine(t, remote, player)

	at := monday.Add(1 * time.Hour) // 07:00
	setNow(e, at)
	e.Check(context.Background())
	e.Check(context.Background())
	assert.Equal(t, 1, player.count(), "same minute must not fire twice")

	setNow(e, at.Add(45*time.Second))
	e.Check(context.Background())
	assert.Equal(t, 1, player.count(), "later tick in the same minute must not fire")

	// Same weekday and minute one week on is a fresh firing.
	setNow(e, at.AddDate(0, 0, 7))
	e.Check(context.Background())
	assert.Equal(t, 2, player.count())
}

func TestBackwardClockStepDoesNotRefire(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	player := &fakePlayer{}
	e, _ := newTestEngine(t, remote, player)

	at := monday.Add(1 * time.Hour)
	setNow(e, at)
	e.Check(context.Background())
	require.Equal(t, 1, player.count())

	// Wall clock steps back two minutes, then walks forward through 07:00
	// again.
	setNow(e, at.Add(-2*time.Minute))
	e.Check(context.Background())
	setNow(e, at)
	e.Check(context.Background())
	assert.Equal(t, 1, player.count())
}

func TestWrongMinuteAndDayDoNotFire(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{
		bellAt(1, "Senin", "07:00"),
		bellAt(2, "Selasa", "06:00"),
	}}
	player := &fakePlayer{}
	e, _ := newTestEngine(t, remote, player)

	setNow(e, monday) // Senin 06:00; only the Selasa bell is at 06:00
	e.Check(context.Background())
	assert.Zero(t, player.count())
}

func TestInactiveScheduleSkipped(t *testing.T) {
	inactive := bellAt(1, "Senin", "07:00")
	inactive.IsActive = false
	remote := &fakeRemote{schedules: []model.Schedule{inactive}}
	player := &fakePlayer{}
	e, _ := newTestEngine(t, remote, player)

	setNow(e, monday.Add(1*time.Hour))
	e.Check(context.Background())
	assert.Zero(t, player.count())
}

func TestHolidayModeCancels(t *testing.T) {
	remote := &fakeRemote{
		schedules: []model.Schedule{bellAt(1, "Senin", "07:00")},
		status:    model.Status{HolidayMode: true, Volume: 80},
	}
	player := &fakePlayer{}
	e, st := newTestEngine(t, remote, player)
	require.True(t, st.HolidayMode())

	setNow(e, monday.Add(1*time.Hour))
	e.Check(context.Background())

	assert.Zero(t, player.count())
	logs := st.RecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, model.PlayCancelled, logs[0].Status)
}

func TestPlaybackFailureLogged(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	player := &fakePlayer{err: errors.New("no sound device")}
	e, st := newTestEngine(t, remote, player)

	setNow(e, monday.Add(1*time.Hour))
	e.Check(context.Background())

	logs := st.RecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, model.PlayFailed, logs[0].Status)
	assert.Contains(t, logs[0].Notes, "no sound device")
	require.NotNil(t, logs[0].ScheduleID)
	assert.Equal(t, 1, *logs[0].ScheduleID)
}

func TestSuccessLogged(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	player := &fakePlayer{}
	e, st := newTestEngine(t, remote, player)

	setNow(e, monday.Add(1*time.Hour))
	e.Check(context.Background())

	logs := st.RecentLogs(1)
	require.Len(t, logs, 1)
	assert.Equal(t, model.PlaySuccess, logs[0].Status)
	assert.Equal(t, "bell.mp3", logs[0].AudioFile)
}

func TestNextSchedule(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{
		bellAt(1, "Senin", "07:00"),
		bellAt(2, "Senin", "09:30"),
	}}
	e, _ := newTestEngine(t, remote, &fakePlayer{})

	setNow(e, monday) // 06:00
	next := e.Next()
	require.NotNil(t, next)
	assert.Equal(t, "07:00", next.Time)

	setNow(e, monday.Add(2*time.Hour)) // 08:00
	next = e.Next()
	require.NotNil(t, next)
	assert.Equal(t, "09:30", next.Time)

	setNow(e, monday.Add(5*time.Hour)) // 11:00, nothing left today
	assert.Nil(t, e.Next())
}

func TestReminderArmedAheadOfNextBell(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	e, _ := newTestEngine(t, remote, &fakePlayer{})
	e.OnReminder(func(model.NextSchedule) {})

	setNow(e, monday) // a full hour out
	e.Check(context.Background())
	assert.True(t, e.ReminderPending())

	// Nothing left today: the reminder must be disarmed.
	setNow(e, monday.Add(5*time.Hour))
	e.Check(context.Background())
	assert.False(t, e.ReminderPending())
}

func TestReminderSkippedWhenTooClose(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{bellAt(1, "Senin", "07:00")}}
	e, _ := newTestEngine(t, remote, &fakePlayer{})
	e.OnReminder(func(model.NextSchedule) {})

	setNow(e, monday.Add(59*time.Minute).Add(30*time.Second)) // 06:59:30
	e.Check(context.Background())
	assert.False(t, e.ReminderPending())
}

func TestOnNextFiresOnChangeOnly(t *testing.T) {
	remote := &fakeRemote{schedules: []model.Schedule{
		bellAt(1, "Senin", "07:00"),
		bellAt(2, "Senin", "09:30"),
	}}
	e, _ := newTestEngine(t, remote, &fakePlayer{})

	var calls []*model.NextSchedule
	e.OnNext(func(n *model.NextSchedule) { calls = append(calls, n) })

	setNow(e, monday)
	e.Check(context.Background())
	e.Check(context.Background())
	require.Len(t, calls, 1)
	assert.Equal(t, "07:00", calls[0].Time)

	setNow(e, monday.Add(1*time.Hour)) // 07:00 fires, next becomes 09:30
	e.Check(context.Background())
	require.Len(t, calls, 2)
	assert.Equal(t, "09:30", calls[1].Time)
}
