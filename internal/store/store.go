// Package store keeps the agent's schedule set consistent across three tiers:
// the server (authoritative when reachable), the durable SQLite store, and an
// in-memory working copy that the trigger engine matches against. Reads never
// fail; they degrade tier by tier down to an empty set.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
)

// LogCap is how many play log entries the agent retains locally.
const LogCap = 100

// Remote is the slice of the server API the store needs. *client.Client
// satisfies it; tests substitute fakes.
type Remote interface {
	FetchSchedules(ctx context.Context) ([]model.Schedule, error)
	CreateSchedule(ctx context.Context, s model.Schedule) (int, error)
	UpdateSchedule(ctx context.Context, id int, s model.Schedule) error
	DeleteSchedule(ctx context.Context, id int) error
	ToggleSchedule(ctx context.Context, id int) error
	FetchStatus(ctx context.Context) (*model.Status, error)
	PushLog(ctx context.Context, e model.PlayLogEntry) error
}

// SchedulePatch is a partial update; nil fields are left untouched.
type SchedulePatch struct {
	Name      *string
	DayOfWeek *string
	Time      *string
	AudioFile *string
	IsActive  *bool
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
	opDelete
	opToggle
)

// pendingOp is a local mutation whose remote propagation failed. Ops are
// replayed in order on the next reconcile.
type pendingOp struct {
	kind     opKind
	id       int
	schedule model.Schedule
}

// Store owns the working copy. All mutation goes through its methods; the
// trigger engine only reads snapshots.
type Store struct {
	mu      sync.RWMutex
	remote  Remote
	local   *Local // nil means the durable tier is unavailable
	working []model.Schedule

	pending []pendingOp

	logs []model.PlayLogEntry // newest first, capped at LogCap

	volume      int
	holidayMode bool

	onChange func()
}

// NewStore builds a store over a remote API and an optional durable tier.
// Passing a nil *Local runs memory-only; callers do that when the SQLite
// file cannot be opened.
func NewStore(remote Remote, local *Local) *Store {
	s := &Store{remote: remote, local: local, volume: 80}
	if local != nil {
		if logs, err := local.RecentLogs(LogCap); err == nil {
			s.logs = logs
		} else {
			log.Warn().Err(err).Msg("could not load persisted play logs")
		}
		if v, err := local.GetSetting("volume"); err == nil && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				s.volume = n
			}
		}
		if v, err := local.GetSetting("holiday_mode"); err == nil {
			s.holidayMode = v == "1"
		}
	}
	return s
}

// OnChange registers a callback fired after every change to the schedule
// set, so the presentation layer can redraw without polling.
func (s *Store) OnChange(fn func()) { s.onChange = fn }

func (s *Store) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Load populates the working copy: remote first, then the durable tier, then
// an empty set. It never returns an error; offline startup is a normal mode,
// not a failure.
func (s *Store) Load(ctx context.Context) []model.Schedule {
	remote, err := s.remote.FetchSchedules(ctx)
	if err == nil {
		s.mu.Lock()
		changed := !sameSet(s.working, remote)
		s.working = remote
		s.persistLocked()
		s.mu.Unlock()
		s.refreshSettings(ctx)
		log.Info().Int("count", len(remote)).Msg("schedules loaded from server")
		if changed {
			s.notify()
		}
		return s.Snapshot()
	}
	log.Warn().Err(err).Msg("server unreachable, falling back to local store")

	if s.local != nil {
		if cached, lerr := s.local.Schedules(); lerr == nil && len(cached) > 0 {
			s.mu.Lock()
			changed := !sameSet(s.working, cached)
			s.working = cached
			s.mu.Unlock()
			log.Info().Int("count", len(cached)).Msg("schedules loaded from durable store")
			if changed {
				s.notify()
			}
			return s.Snapshot()
		} else if lerr != nil {
			log.Warn().Err(lerr).Msg("durable store read failed")
		}
	}
	return s.Snapshot()
}

// Reconcile re-runs the remote path: pending local mutations are replayed
// first, then the remote set is pulled and local tiers are overwritten only
// when its content actually differs from the working copy. Returns whether
// the working copy changed. Safe to call on every reconnect and resync tick.
func (s *Store) Reconcile(ctx context.Context) bool {
	s.flushPending(ctx)

	remote, err := s.remote.FetchSchedules(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("reconcile skipped, server unreachable")
		return false
	}
	s.refreshSettings(ctx)

	s.mu.Lock()
	if len(s.pending) > 0 {
		// Unflushed local mutations win until they reach the server;
		// pulling now would silently revert them.
		s.mu.Unlock()
		return false
	}
	if sameSet(s.working, remote) {
		s.mu.Unlock()
		return false
	}
	s.working = remote
	s.persistLocked()
	s.mu.Unlock()

	log.Info().Int("count", len(remote)).Msg("schedule set reconciled from server")
	s.notify()
	return true
}

// Add validates and inserts a schedule, persists it locally and propagates
// to the server fire-and-forget. Only invalid input is an error.
func (s *Store) Add(ctx context.Context, sched model.Schedule) (model.Schedule, error) {
	if err := validate(sched); err != nil {
		return model.Schedule{}, err
	}

	s.mu.Lock()
	if sched.ID == 0 {
		sched.ID = s.nextIDLocked()
	}
	s.working = append(s.working, sched)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if id, err := s.remote.CreateSchedule(ctx, sched); err != nil {
		log.Warn().Err(err).Str("name", sched.Name).Msg("schedule not propagated, queued for sync")
		s.queue(pendingOp{kind: opCreate, schedule: sched})
	} else if id != 0 && id != sched.ID {
		// The server assigned its own id; adopt it so later ops address
		// the same record on both sides.
		s.mu.Lock()
		for i := range s.working {
			if s.working[i].ID == sched.ID {
				s.working[i].ID = id
			}
		}
		sched.ID = id
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
	}
	return sched, nil
}

// Update applies a partial patch. An unknown id is a no-op, not an error:
// the schedule may have been removed by another editor mid-flight.
func (s *Store) Update(ctx context.Context, id int, patch SchedulePatch) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	updated := s.working[idx]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.DayOfWeek != nil {
		updated.DayOfWeek = *patch.DayOfWeek
	}
	if patch.Time != nil {
		updated.Time = *patch.Time
	}
	if patch.AudioFile != nil {
		updated.AudioFile = *patch.AudioFile
	}
	if patch.IsActive != nil {
		updated.IsActive = *patch.IsActive
	}
	if err := validate(updated); err != nil {
		s.mu.Unlock()
		return err
	}
	s.working[idx] = updated
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.remote.UpdateSchedule(ctx, id, updated); err != nil {
		log.Warn().Err(err).Int("id", id).Msg("update not propagated, queued for sync")
		s.queue(pendingOp{kind: opUpdate, id: id, schedule: updated})
	}
	return nil
}

// Remove deletes a schedule; unknown ids are a no-op.
func (s *Store) Remove(ctx context.Context, id int) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.working = append(s.working[:idx], s.working[idx+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.remote.DeleteSchedule(ctx, id); err != nil {
		log.Warn().Err(err).Int("id", id).Msg("delete not propagated, queued for sync")
		s.queue(pendingOp{kind: opDelete, id: id})
	}
}

// Toggle flips is_active; unknown ids are a no-op.
func (s *Store) Toggle(ctx context.Context, id int) {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.working[idx].IsActive = !s.working[idx].IsActive
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.remote.ToggleSchedule(ctx, id); err != nil {
		log.Warn().Err(err).Int("id", id).Msg("toggle not propagated, queued for sync")
		s.queue(pendingOp{kind: opToggle, id: id})
	}
}

// QueryDay returns the active schedules for one weekday, ascending by time.
func (s *Store) QueryDay(day string) []model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Schedule
	for _, sched := range s.working {
		if sched.IsActive && sched.DayOfWeek == day {
			out = append(out, sched)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Snapshot returns a copy of the working set.
func (s *Store) Snapshot() []model.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Schedule, len(s.working))
	copy(out, s.working)
	return out
}

// AppendLog records a playback attempt in the local ring buffer (cap 100,
// oldest evicted) and forwards it to the server best-effort.
func (s *Store) AppendLog(ctx context.Context, e model.PlayLogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.PlayedAt.IsZero() {
		e.PlayedAt = time.Now()
	}

	s.mu.Lock()
	s.logs = append([]model.PlayLogEntry{e}, s.logs...)
	if len(s.logs) > LogCap {
		s.logs = s.logs[:LogCap]
	}
	if s.local != nil {
		if err := s.local.AppendLog(e, LogCap); err != nil {
			log.Warn().Err(err).Msg("play log not persisted, keeping in memory")
		}
	}
	s.mu.Unlock()

	if err := s.remote.PushLog(ctx, e); err != nil {
		log.Debug().Err(err).Str("status", e.Status).Msg("play log not forwarded to server")
	}
}

// RecentLogs returns up to n entries, newest first.
func (s *Store) RecentLogs(n int) []model.PlayLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.logs) {
		n = len(s.logs)
	}
	out := make([]model.PlayLogEntry, n)
	copy(out, s.logs[:n])
	return out
}

// HolidayMode reports the global suppress-all-bells flag.
func (s *Store) HolidayMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holidayMode
}

// Volume returns the stored default volume (0-100).
func (s *Store) Volume() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// SetVolume persists the default volume locally.
func (s *Store) SetVolume(v int) {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	s.mu.Lock()
	s.volume = v
	if s.local != nil {
		if err := s.local.SetSetting("volume", strconv.Itoa(v)); err != nil {
			log.Warn().Err(err).Msg("volume not persisted")
		}
	}
	s.mu.Unlock()
}

// refreshSettings pulls holiday mode and volume from the server status and
// caches them locally, so holiday mode set at school keeps applying offline.
func (s *Store) refreshSettings(ctx context.Context) {
	st, err := s.remote.FetchStatus(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("status fetch failed, keeping cached settings")
		return
	}
	s.mu.Lock()
	s.holidayMode = st.HolidayMode
	s.volume = st.Volume
	if s.local != nil {
		hv := "0"
		if st.HolidayMode {
			hv = "1"
		}
		if err := s.local.SetSetting("holiday_mode", hv); err != nil {
			log.Warn().Err(err).Msg("holiday mode not persisted")
		}
		if err := s.local.SetSetting("volume", strconv.Itoa(st.Volume)); err != nil {
			log.Warn().Err(err).Msg("volume not persisted")
		}
	}
	s.mu.Unlock()
}

func (s *Store) queue(op pendingOp) {
	s.mu.Lock()
	s.pending = append(s.pending, op)
	s.mu.Unlock()
}

// flushPending replays queued mutations in order, stopping at the first
// failure so ordering is preserved for the next attempt.
func (s *Store) flushPending(ctx context.Context) {
	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(ops) == 0 {
		return
	}

	for i, op := range ops {
		var err error
		switch op.kind {
		case opCreate:
			_, err = s.remote.CreateSchedule(ctx, op.schedule)
		case opUpdate:
			err = s.remote.UpdateSchedule(ctx, op.id, op.schedule)
		case opDelete:
			err = s.remote.DeleteSchedule(ctx, op.id)
		case opToggle:
			err = s.remote.ToggleSchedule(ctx, op.id)
		}
		if err != nil {
			log.Debug().Err(err).Int("remaining", len(ops)-i).Msg("pending sync interrupted")
			s.mu.Lock()
			s.pending = append(ops[i:], s.pending...)
			s.mu.Unlock()
			return
		}
	}
	log.Info().Int("count", len(ops)).Msg("pending mutations synced to server")
}

// persistLocked writes the working copy to the durable tier. Errors degrade
// the call to memory-only. Callers hold s.mu.
func (s *Store) persistLocked() {
	if s.local == nil {
		return
	}
	if err := s.local.ReplaceSchedules(s.working); err != nil {
		log.Warn().Err(err).Msg("durable store write failed, continuing in memory")
	}
}

func (s *Store) indexLocked(id int) int {
	for i := range s.working {
		if s.working[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextIDLocked() int {
	max := 0
	for _, sched := range s.working {
		if sched.ID > max {
			max = sched.ID
		}
	}
	return max + 1
}

// sameSet compares two schedule sets by content. Sets are normalized (sorted
// by id, volatile timestamps zeroed) and compared as canonical JSON, so a
// pull that changes nothing writes nothing.
func sameSet(a, b []model.Schedule) bool {
	return string(canonical(a)) == string(canonical(b))
}

func canonical(set []model.Schedule) []byte {
	norm := make([]model.Schedule, len(set))
	copy(norm, set)
	for i := range norm {
		norm[i].CreatedAt = time.Time{}
	}
	sort.Slice(norm, func(i, j int) bool { return norm[i].ID < norm[j].ID })
	raw, err := json.Marshal(norm)
	if err != nil {
		return nil
	}
	return raw
}

func validate(s model.Schedule) error {
	if s.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if !model.ValidDay(s.DayOfWeek) {
		return fmt.Errorf("invalid day of week %q", s.DayOfWeek)
	}
	if _, err := time.Parse("15:04", s.Time); err != nil {
		return fmt.Errorf("invalid time %q, want HH:MM", s.Time)
	}
	if s.AudioFile == "" {
		return fmt.Errorf("audio file is required")
	}
	return nil
}
