// Package trigger decides, once per polling tick, which bells are due and
// fires each at most once per scheduled minute. The interval timer and the
// external wake-ups (MQTT reconnect, SIGHUP) are independent triggers, so the
// fired-set guard is what keeps a bell from ringing twice.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/store"
)

// Player is the slice of the playback engine the trigger needs.
type Player interface {
	Play(ctx context.Context, identifier string) error
}

// firedRetention is how long fired-set entries are kept. Entries are aged by
// insertion time, which carries Go's monotonic clock: winding the wall clock
// back cannot expire a guard early, so a minute that already rang stays rung.
const firedRetention = 25 * time.Hour

// Engine is the polling cycle. One instance per process; construct with New
// and drive with Start, or call Check directly from tests.
type Engine struct {
	store  *store.Store
	player Player

	now      func() time.Time
	interval time.Duration

	mu    sync.Mutex
	fired map[string]time.Time // "<id>@<date> <HH:MM>" -> insertion stamp

	reminder    *time.Timer
	reminderKey string
	lastNextKey string

	onNext     func(*model.NextSchedule)
	onReminder func(model.NextSchedule)

	wake chan struct{}
}

// New builds an engine polling at the default 60s interval.
func New(st *store.Store, player Player) *Engine {
	return &Engine{
		store:    st,
		player:   player,
		now:      time.Now,
		interval: time.Minute,
		fired:    make(map[string]time.Time),
		wake:     make(chan struct{}, 1),
	}
}

// OnNext registers a callback invoked whenever the upcoming schedule for
// today changes (nil when nothing remains today).
func (e *Engine) OnNext(fn func(*model.NextSchedule)) { e.onNext = fn }

// OnReminder registers a callback invoked 60 seconds before the next bell.
func (e *Engine) OnReminder(fn func(model.NextSchedule)) { e.onReminder = fn }

// Start runs the polling loop until ctx is cancelled. An immediate pass runs
// first so a restart right on a bell minute still rings it.
func (e *Engine) Start(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	defer e.cancelReminder()

	e.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Check(ctx)
		case <-e.wake:
			e.Check(ctx)
		}
	}
}

// CheckNow requests an immediate pass on the engine's own goroutine. This is
// how wake-from-suspend and reconnect events catch bells the interval timer
// slept through; the fired-set guard makes the extra pass harmless.
func (e *Engine) CheckNow() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Check runs one matching pass: fire every due schedule not already fired
// for this minute, then recompute the upcoming schedule.
func (e *Engine) Check(ctx context.Context) {
	now := e.now()
	day := model.DayName(now.Weekday())
	minute := model.ClockTime(now)

	e.prune()

	for _, sched := range e.store.QueryDay(day) {
		if sched.Time != minute {
			continue
		}
		key := firedKey(sched.ID, now)
		e.mu.Lock()
		if _, done := e.fired[key]; done {
			e.mu.Unlock()
			continue
		}
		e.fired[key] = time.Now()
		e.mu.Unlock()

		e.fire(ctx, sched)
	}

	e.updateNext(now, day, minute)
}

// fire plays one due schedule and converts the outcome into a play log
// entry. Playback failures never propagate; a broken bell must not stop the
// rest of the minute's matches or the polling loop.
func (e *Engine) fire(ctx context.Context, sched model.Schedule) {
	id := sched.ID
	entry := model.PlayLogEntry{
		ScheduleID:   &id,
		ScheduleName: sched.Name,
		AudioFile:    sched.AudioFile,
		PlayedAt:     e.now(),
	}

	if e.store.HolidayMode() {
		log.Info().Str("name", sched.Name).Msg("holiday mode active, bell skipped")
		entry.Status = model.PlayCancelled
		entry.Notes = "holiday mode active"
		e.store.AppendLog(ctx, entry)
		return
	}

	log.Info().Str("name", sched.Name).Str("time", sched.Time).Str("audio", sched.AudioFile).Msg("bell due")
	if err := e.player.Play(ctx, sched.AudioFile); err != nil {
		log.Error().Err(err).Str("name", sched.Name).Msg("bell playback failed")
		entry.Status = model.PlayFailed
		entry.Notes = err.Error()
	} else {
		entry.Status = model.PlaySuccess
	}
	e.store.AppendLog(ctx, entry)
}

// Next returns the upcoming schedule for today, or nil when none remain.
func (e *Engine) Next() *model.NextSchedule {
	now := e.now()
	return e.nextAfter(model.DayName(now.Weekday()), model.ClockTime(now))
}

func (e *Engine) nextAfter(day, minute string) *model.NextSchedule {
	for _, sched := range e.store.QueryDay(day) {
		if sched.Time > minute {
			return &model.NextSchedule{Name: sched.Name, Time: sched.Time, AudioFile: sched.AudioFile}
		}
	}
	return nil
}

// updateNext recomputes the upcoming schedule and keeps the one-shot advance
// reminder pointed at it. The reminder is cancelled and rescheduled whenever
// the target changes; a cancelled handle never fires.
func (e *Engine) updateNext(now time.Time, day, minute string) {
	next := e.nextAfter(day, minute)

	key := ""
	if next != nil {
		key = fmt.Sprintf("%s %s %s", now.Format("2006-01-02"), next.Time, next.Name)
	}

	e.mu.Lock()
	changed := key != e.lastNextKey
	e.lastNextKey = key
	e.mu.Unlock()

	if changed && e.onNext != nil {
		e.onNext(next)
	}

	if next == nil {
		e.cancelReminder()
		return
	}
	e.scheduleReminder(now, *next, key)
}

func (e *Engine) scheduleReminder(now time.Time, next model.NextSchedule, key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if key == e.reminderKey && e.reminder != nil {
		return
	}
	if e.reminder != nil {
		e.reminder.Stop()
		e.reminder = nil
	}
	e.reminderKey = key

	fireAt, err := atClockTime(now, next.Time)
	if err != nil {
		return
	}
	delay := fireAt.Sub(now) - time.Minute
	if delay <= 0 {
		// Less than a minute out; the advance notice would arrive late.
		return
	}
	if e.onReminder == nil {
		return
	}
	e.reminder = time.AfterFunc(delay, func() { e.onReminder(next) })
}

func (e *Engine) cancelReminder() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reminder != nil {
		e.reminder.Stop()
		e.reminder = nil
	}
	e.reminderKey = ""
}

// ReminderPending reports whether an advance reminder is currently armed.
func (e *Engine) ReminderPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reminder != nil
}

func (e *Engine) prune() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, stamp := range e.fired {
		if time.Since(stamp) > firedRetention {
			delete(e.fired, key)
		}
	}
}

// firedKey buckets a firing by schedule id and the absolute calendar minute,
// not just time-of-day, so re-running a minute after a backward clock step
// lands on the same key and is skipped.
func firedKey(id int, now time.Time) string {
	return fmt.Sprintf("%d@%s", id, now.Format("2006-01-02 15:04"))
}

func atClockTime(now time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}
