package audio

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// execPath is the fallback playback path: hand the file to whatever system
// player exists. Volume control and analysis are unavailable here.
type execPath struct {
	bin  string
	args []string
}

// playerCandidates are probed in order at construction.
var playerCandidates = []struct {
	bin  string
	args []string
}{
	{"mpg123", []string{"-q"}},
	{"ffplay", []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
	{"mpv", []string{"--no-video", "--really-quiet"}},
	{"aplay", []string{"-q"}},
}

func newExecPath() (*execPath, error) {
	for _, c := range playerCandidates {
		if path, err := exec.LookPath(c.bin); err == nil {
			return &execPath{bin: path, args: c.args}, nil
		}
	}
	return nil, errors.New("no system audio player on PATH")
}

func (p *execPath) Name() string { return "exec:" + filepath.Base(p.bin) }

func (p *execPath) Start(identifier string, raw []byte, volume float64, onEnd func()) (session, error) {
	// The player needs a file; sessions are short so a temp copy is fine.
	tmp, err := os.CreateTemp("", "belfry-*"+filepath.Ext(identifier))
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}
	tmp.Close()

	cmd := exec.Command(p.bin, append(append([]string{}, p.args...), tmp.Name())...)
	if err := cmd.Start(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	s := &execSession{cmd: cmd, file: tmp.Name()}
	go func() {
		err := cmd.Wait()
		os.Remove(tmp.Name())
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		if err != nil {
			log.Debug().Err(err).Str("audio", identifier).Msg("system player exited with error")
		}
		onEnd()
	}()
	return s, nil
}

type execSession struct {
	cmd     *exec.Cmd
	file    string
	mu      sync.Mutex
	stopped bool
}

func (s *execSession) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

// SetVolume is a no-op: the spawned player offers no live gain control.
func (s *execSession) SetVolume(float64) {}
