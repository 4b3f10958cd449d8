package audio

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	stopped bool
	volume  float64
	onEnd   func()
}

func (s *fakeSession) Stop()               { s.stopped = true }
func (s *fakeSession) SetVolume(v float64) { s.volume = v }

type fakePath struct {
	name     string
	err      error
	starts   []string
	sessions []*fakeSession
}

func (p *fakePath) Name() string { return p.name }

func (p *fakePath) Start(identifier string, raw []byte, volume float64, onEnd func()) (session, error) {
	if p.err != nil {
		return nil, p.err
	}
	s := &fakeSession{volume: volume, onEnd: onEnd}
	p.starts = append(p.starts, identifier)
	p.sessions = append(p.sessions, s)
	return s, nil
}

func testSource() Source {
	return SourceFunc(func(_ context.Context, identifier string) ([]byte, error) {
		if identifier == "missing.mp3" {
			return nil, errors.New("not found")
		}
		return []byte(identifier), nil
	})
}

func TestPlayIsExclusive(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	require.NoError(t, e.Play(context.Background(), "first.mp3", nil))
	require.NoError(t, e.Play(context.Background(), "second.mp3", nil))

	require.Len(t, path.sessions, 2)
	assert.True(t, path.sessions[0].stopped, "first session must be torn down")
	assert.False(t, path.sessions[1].stopped)
	assert.Equal(t, "second.mp3", e.CurrentFile())
}

func TestDecodeFailureUsesFallback(t *testing.T) {
	primary := &fakePath{name: "decode", err: errDecode}
	fallback := &fakePath{name: "exec"}
	e := newEngine(testSource(), primary, fallback)

	require.NoError(t, e.Play(context.Background(), "bell.mp3", nil))
	assert.Empty(t, primary.sessions)
	assert.Equal(t, []string{"bell.mp3"}, fallback.starts)
	assert.True(t, e.IsPlaying())
}

func TestNoPathAvailable(t *testing.T) {
	e := newEngine(testSource(), nil, nil)
	err := e.Play(context.Background(), "bell.mp3", nil)
	require.Error(t, err)
	assert.False(t, e.IsPlaying())
}

func TestSourceFailure(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	err := e.Play(context.Background(), "missing.mp3", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Empty(t, path.starts, "no session may start without bytes")
}

func TestNaturalEndClearsSession(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	ended := false
	require.NoError(t, e.Play(context.Background(), "bell.mp3", &PlayOptions{OnEnded: func() { ended = true }}))
	require.True(t, e.IsPlaying())

	path.sessions[0].onEnd()
	assert.False(t, e.IsPlaying())
	assert.True(t, ended)
}

func TestStaleEndDoesNotClearSuccessor(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	require.NoError(t, e.Play(context.Background(), "first.mp3", nil))
	first := path.sessions[0]
	require.NoError(t, e.Play(context.Background(), "second.mp3", nil))

	// A late end signal from the superseded session must not tear down the
	// one that replaced it.
	first.onEnd()
	assert.True(t, e.IsPlaying())
	assert.Equal(t, "second.mp3", e.CurrentFile())
}

func TestVolumeClampAndLiveApply(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	e.SetVolume(1.7)
	assert.Equal(t, 1.0, e.Volume())
	e.SetVolume(-0.3)
	assert.Equal(t, 0.0, e.Volume())

	e.SetVolume(0.5)
	require.NoError(t, e.Play(context.Background(), "bell.mp3", nil))
	assert.Equal(t, 0.5, path.sessions[0].volume)

	e.SetVolume(0.25)
	assert.Equal(t, 0.25, path.sessions[0].volume)
}

func TestPerPlayVolumeOverride(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	require.NoError(t, e.Play(context.Background(), "bell.mp3", &PlayOptions{Volume: 0.3}))
	assert.Equal(t, 0.3, path.sessions[0].volume)
	assert.Equal(t, 0.8, e.Volume(), "override must not change the default")
}

func TestPreloadSkipsFailures(t *testing.T) {
	path := &fakePath{name: "fake"}
	e := newEngine(testSource(), path, nil)

	e.Preload(context.Background(), []string{"a.mp3", "missing.mp3", "b.mp3"})
	files, _ := e.CacheSize()
	assert.Equal(t, 2, files)
}

func TestPlayServedFromCacheWhenSourceDies(t *testing.T) {
	alive := true
	source := SourceFunc(func(_ context.Context, identifier string) ([]byte, error) {
		if !alive {
			return nil, errors.New("network down")
		}
		return []byte(identifier), nil
	})
	path := &fakePath{name: "fake"}
	e := newEngine(source, path, nil)

	e.Preload(context.Background(), []string{"bell.mp3"})
	alive = false

	require.NoError(t, e.Play(context.Background(), "bell.mp3", nil))
	err := e.Play(context.Background(), "other.mp3", nil)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestStopWhenIdle(t *testing.T) {
	e := newEngine(testSource(), &fakePath{name: "fake"}, nil)
	e.Stop()
	assert.False(t, e.IsPlaying())
}
