// Package sched is the server-side bell scheduler: one cron entry per active
// schedule, rebuilt on every mutation. It covers installs where the server
// box is wired to the speakers itself; detached agents run their own polling
// engine and only use the server as a source of truth.
package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/db"
	"github.com/belfry-systems/belfry/internal/model"
	"github.com/belfry-systems/belfry/internal/ws"
)

// Player is the slice of the playback engine the scheduler needs.
type Player interface {
	Play(ctx context.Context, identifier string) error
}

// BellScheduler registers cron jobs for every active schedule.
type BellScheduler struct {
	cron   *cron.Cron
	store  db.Store
	player Player
	hub    *ws.Hub // may be nil

	mu      sync.Mutex
	entries []cron.EntryID
}

// New builds a scheduler; call Reload to populate it and Start to run it.
func New(store db.Store, player Player, hub *ws.Hub) *BellScheduler {
	return &BellScheduler{
		cron:   cron.New(),
		store:  store,
		player: player,
		hub:    hub,
	}
}

// Start begins executing registered entries.
func (b *BellScheduler) Start() {
	b.cron.Start()
	log.Info().Msg("bell scheduler started")
}

// Stop drains running jobs and halts the scheduler.
func (b *BellScheduler) Stop() {
	ctx := b.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("bell scheduler stopped")
}

// Reload drops all entries and re-registers every active schedule. Called at
// startup and after every schedule mutation.
func (b *BellScheduler) Reload() error {
	schedules, err := b.store.ListSchedules()
	if err != nil {
		return fmt.Errorf("reload schedules: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range b.entries {
		b.cron.Remove(id)
	}
	b.entries = b.entries[:0]

	loaded := 0
	for _, s := range schedules {
		if !s.IsActive {
			continue
		}
		spec, err := CronSpec(s)
		if err != nil {
			log.Error().Err(err).Int("schedule_id", s.ID).Msg("schedule skipped")
			continue
		}
		sched := s
		id, err := b.cron.AddFunc(spec, func() { b.ring(sched) })
		if err != nil {
			log.Error().Err(err).Int("schedule_id", s.ID).Str("spec", spec).Msg("cron registration failed")
			continue
		}
		b.entries = append(b.entries, id)
		loaded++
		log.Debug().Str("name", s.Name).Str("day", s.DayOfWeek).Str("time", s.Time).Msg("bell registered")
	}
	log.Info().Int("count", loaded).Msg("active schedules loaded")
	return nil
}

// CronSpec translates a schedule into a standard 5-field cron expression.
func CronSpec(s model.Schedule) (string, error) {
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", s.Time, err)
	}
	day, ok := model.DayNumber(s.DayOfWeek)
	if !ok {
		return "", fmt.Errorf("invalid day %q", s.DayOfWeek)
	}
	return fmt.Sprintf("%d %d * * %d", t.Minute(), t.Hour(), day), nil
}

// ring fires one due schedule. Failures end up in the play log, never in the
// cron runner.
func (b *BellScheduler) ring(s model.Schedule) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id := s.ID
	entry := model.PlayLogEntry{
		ScheduleID:   &id,
		ScheduleName: s.Name,
		AudioFile:    s.AudioFile,
		PlayedAt:     time.Now(),
	}

	holiday, err := b.store.GetSetting("holiday_mode")
	if err == nil && holiday == "1" {
		log.Info().Str("name", s.Name).Msg("holiday mode active, bell skipped")
		entry.Status = model.PlayCancelled
		entry.Notes = "holiday mode active"
		b.record(entry)
		return
	}

	log.Info().Str("name", s.Name).Str("time", s.Time).Str("audio", s.AudioFile).Msg("bell due")
	if err := b.player.Play(ctx, s.AudioFile); err != nil {
		log.Error().Err(err).Str("name", s.Name).Msg("bell playback failed")
		entry.Status = model.PlayFailed
		entry.Notes = err.Error()
	} else {
		entry.Status = model.PlaySuccess
		if b.hub != nil {
			b.hub.Broadcast(ws.Event{Type: ws.EventPlaybackStarted, Payload: s.AudioFile})
		}
	}
	b.record(entry)
}

func (b *BellScheduler) record(entry model.PlayLogEntry) {
	if err := b.store.AddPlayLog(entry); err != nil {
		log.Error().Err(err).Msg("play log not persisted")
	}
}
