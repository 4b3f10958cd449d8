package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
)

// playbackSampleRate is the shared audio context rate. The context is created
// once per process (an oto restriction); files at other rates go through the
// fallback player instead of playing at the wrong pitch.
const playbackSampleRate = 44100

// otoPath is the preferred playback path: decode the whole file to PCM up
// front, then feed it to an OS-level player. Decoding eagerly means a corrupt
// file fails here, where the engine can still fall back, instead of halfway
// through a bell.
type otoPath struct {
	ctx *oto.Context
}

func newOtoPath() (*otoPath, error) {
	op := &oto.NewContextOptions{
		SampleRate:   playbackSampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	return &otoPath{ctx: ctx}, nil
}

func (p *otoPath) Name() string { return "pcm" }

func (p *otoPath) Start(identifier string, raw []byte, volume float64, onEnd func()) (session, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errDecode, identifier, err)
	}
	if dec.SampleRate() != playbackSampleRate {
		return nil, fmt.Errorf("%w: %s: sample rate %d", errDecode, identifier, dec.SampleRate())
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errDecode, identifier, err)
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.SetVolume(volume)
	player.Play()

	s := &otoSession{player: player, stop: make(chan struct{})}
	go s.watch(onEnd)
	return s, nil
}

type otoSession struct {
	player *oto.Player
	once   sync.Once
	stop   chan struct{}
}

// watch polls for natural end of playback. onEnd never fires after Stop.
func (s *otoSession) watch(onEnd func()) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.player.IsPlaying() {
				s.once.Do(func() {
					close(s.stop)
					s.player.Close()
				})
				onEnd()
				return
			}
		}
	}
}

func (s *otoSession) Stop() {
	s.once.Do(func() {
		close(s.stop)
		s.player.Close()
	})
}

func (s *otoSession) SetVolume(v float64) {
	s.player.SetVolume(v)
}
