// Package audio plays bell audio with graceful capability degradation. The
// preferred path decodes MP3 to PCM and plays it through an OS audio context;
// when that context cannot initialize (headless kernels, missing ALSA), a
// system player binary is used instead. The probe runs once at construction
// and the result sticks for the process lifetime.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrSourceUnavailable wraps fetch failures: the identifier could not be
// resolved to raw audio bytes from the source.
var ErrSourceUnavailable = errors.New("audio source unavailable")

// errDecode marks primary-path decode failures; the engine retries those on
// the fallback path instead of surfacing them.
var errDecode = errors.New("audio decode failed")

// Source resolves a logical audio identifier to raw bytes.
type Source interface {
	Fetch(ctx context.Context, identifier string) ([]byte, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, identifier string) ([]byte, error)

func (f SourceFunc) Fetch(ctx context.Context, identifier string) ([]byte, error) {
	return f(ctx, identifier)
}

// session is one live playback, owned exclusively by the engine.
type session interface {
	Stop()
	SetVolume(v float64)
}

// playbackPath starts sessions. Exactly one of the engine's two paths is
// used per play; Start must call onEnd exactly once on natural end and never
// after Stop.
type playbackPath interface {
	Name() string
	Start(identifier string, raw []byte, volume float64, onEnd func()) (session, error)
}

// PlayOptions tune one Play call.
type PlayOptions struct {
	// Volume overrides the engine default for this session (0 keeps the
	// default; the engine clamps to [0,1]).
	Volume float64
	// OnEnded runs when playback ends naturally (not on Stop or
	// supersession).
	OnEnded func()
}

// Engine is the playback engine. At most one session is live at a time; a
// new Play tears the old session down first.
type Engine struct {
	source Source

	primary  playbackPath // nil when the audio context probe failed
	fallback playbackPath // nil when no system player was found

	mu      sync.Mutex
	cache   map[string][]byte
	volume  float64
	current *active
	gen     uint64

	onVolume func(v float64)
}

type active struct {
	identifier string
	s          session
	gen        uint64
}

// New probes playback capability once and returns the engine. Construction
// succeeds even with no working path; Play then fails per call, which keeps
// scheduling and logging alive on boxes with no sound hardware at all.
func New(source Source) *Engine {
	var primary, fallback playbackPath
	if p, err := newOtoPath(); err != nil {
		log.Warn().Err(err).Msg("audio context unavailable, decode path disabled")
	} else {
		primary = p
	}
	if p, err := newExecPath(); err != nil {
		log.Debug().Err(err).Msg("no system audio player found")
	} else {
		fallback = p
	}
	switch {
	case primary != nil:
		log.Info().Str("path", primary.Name()).Msg("audio playback ready")
	case fallback != nil:
		log.Info().Str("path", fallback.Name()).Msg("audio playback ready (fallback only)")
	default:
		log.Error().Msg("no audio playback path available")
	}
	return newEngine(source, primary, fallback)
}

func newEngine(source Source, primary, fallback playbackPath) *Engine {
	return &Engine{
		source:   source,
		primary:  primary,
		fallback: fallback,
		cache:    make(map[string][]byte),
		volume:   0.8,
	}
}

// OnVolumeChange registers a hook persisting the default volume.
func (e *Engine) OnVolumeChange(fn func(v float64)) { e.onVolume = fn }

// Play resolves the identifier, stops any active session and starts a new
// one. It returns once playback has started; opts.OnEnded fires on natural
// end. Fetch failures reject with ErrSourceUnavailable; a primary-path
// decode failure silently retries on the fallback path.
func (e *Engine) Play(ctx context.Context, identifier string, opts *PlayOptions) error {
	raw, err := e.bytes(ctx, identifier)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Exclusivity: the old session is fully torn down before the new one
	// produces sound.
	if e.current != nil {
		e.current.s.Stop()
		e.current = nil
	}

	vol := e.volume
	if opts != nil && opts.Volume > 0 {
		vol = clamp(opts.Volume)
	}
	var onEnded func()
	if opts != nil {
		onEnded = opts.OnEnded
	}

	e.gen++
	gen := e.gen
	onEnd := func() {
		e.finish(gen)
		if onEnded != nil {
			onEnded()
		}
	}

	var sess session
	var startErr error
	if e.primary != nil {
		sess, startErr = e.primary.Start(identifier, raw, vol, onEnd)
		if startErr != nil && e.fallback != nil {
			log.Debug().Err(startErr).Str("audio", identifier).Msg("decode path failed, using fallback player")
			sess, startErr = e.fallback.Start(identifier, raw, vol, onEnd)
		}
	} else if e.fallback != nil {
		sess, startErr = e.fallback.Start(identifier, raw, vol, onEnd)
	} else {
		startErr = errors.New("no playback path available")
	}
	if startErr != nil {
		return fmt.Errorf("play %q: %w", identifier, startErr)
	}

	e.current = &active{identifier: identifier, s: sess, gen: gen}
	return nil
}

// finish clears the current session when the generation that ended is still
// the live one; a newer session may already have superseded it. Play holds
// the engine lock while installing a session, so an end callback racing the
// install blocks here until the install is visible.
func (e *Engine) finish(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil && e.current.gen == gen {
		e.current = nil
	}
}

// Stop tears down the active session immediately. No-op when idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.s.Stop()
		e.current = nil
	}
}

// SetVolume clamps v to [0,1], applies it to the live session and keeps it
// as the default for future sessions.
func (e *Engine) SetVolume(v float64) {
	v = clamp(v)
	e.mu.Lock()
	e.volume = v
	if e.current != nil {
		e.current.s.SetVolume(v)
	}
	hook := e.onVolume
	e.mu.Unlock()
	if hook != nil {
		hook(v)
	}
}

// Volume returns the current default volume.
func (e *Engine) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// IsPlaying reports whether a session is live.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// CurrentFile returns the identifier of the live session, or "".
func (e *Engine) CurrentFile() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return ""
	}
	return e.current.identifier
}

// Preload warms the byte cache best-effort; individual fetch failures are
// logged and skipped.
func (e *Engine) Preload(ctx context.Context, identifiers []string) {
	for _, id := range identifiers {
		if _, err := e.bytes(ctx, id); err != nil {
			log.Warn().Err(err).Str("audio", id).Msg("preload failed")
		}
	}
	e.mu.Lock()
	n := len(e.cache)
	e.mu.Unlock()
	log.Info().Int("cached", n).Msg("audio preload finished")
}

// ClearCache drops all cached audio bytes.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string][]byte)
}

// CacheSize returns the number of cached identifiers and their total bytes.
func (e *Engine) CacheSize() (files int, bytes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, raw := range e.cache {
		bytes += len(raw)
	}
	return len(e.cache), bytes
}

func (e *Engine) bytes(ctx context.Context, identifier string) ([]byte, error) {
	e.mu.Lock()
	raw, ok := e.cache[identifier]
	e.mu.Unlock()
	if ok {
		return raw, nil
	}

	raw, err := e.source.Fetch(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, identifier, err)
	}
	e.mu.Lock()
	e.cache[identifier] = raw
	e.mu.Unlock()
	return raw, nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
