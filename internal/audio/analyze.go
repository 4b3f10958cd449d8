package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"

	"github.com/hajimehoshi/go-mp3"
)

// Analysis summarizes one audio file. Used by the upload flow to record
// durations and by the admin UI to sanity-check bell levels.
type Analysis struct {
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	RMS        float64 `json:"rms"`
	Peak       float64 `json:"peak"`
}

// Analyze decodes the identifier and computes duration, sample rate, channel
// count, RMS and peak amplitude. It needs the decode path; on a
// fallback-only engine it returns (nil, nil).
func (e *Engine) Analyze(ctx context.Context, identifier string) (*Analysis, error) {
	if e.primary == nil {
		return nil, nil
	}
	raw, err := e.bytes(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return analyzeMP3(raw)
}

func analyzeMP3(raw []byte) (*Analysis, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	// go-mp3 always emits 16-bit little-endian stereo.
	const channels = 2
	const bytesPerFrame = 2 * channels

	frames := len(pcm) / bytesPerFrame
	a := &Analysis{
		SampleRate: dec.SampleRate(),
		Channels:   channels,
	}
	if dec.SampleRate() > 0 {
		a.Duration = float64(frames) / float64(dec.SampleRate())
	}

	var sumSquares float64
	samples := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i:]))) / 32768.0
		sumSquares += v * v
		if abs := math.Abs(v); abs > a.Peak {
			a.Peak = abs
		}
		samples++
	}
	if samples > 0 {
		a.RMS = math.Sqrt(sumSquares / float64(samples))
	}
	return a, nil
}
