package alert

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

// Audio format shared by the tone renderer and the player.
const (
	SampleRate   beep.SampleRate = 44100
	ChannelCount                 = 1
)

// Tone describes a sine beep with an exponential fade.
type Tone struct {
	Frequency float64
	Duration  time.Duration
	Gain      float64 // starting gain
	FloorGain float64 // gain reached at the end of Duration
}

// DefaultTone is the completion beep.
var DefaultTone = Tone{
	Frequency: 800,
	Duration:  500 * time.Millisecond,
	Gain:      0.3,
	FloorGain: 0.01,
}

// GainAt returns the envelope gain at offset t into the tone.
func (t Tone) GainAt(offset time.Duration) float64 {
	if offset <= 0 {
		return t.Gain
	}
	if offset >= t.Duration {
		return t.FloorGain
	}
	frac := offset.Seconds() / t.Duration.Seconds()
	return t.Gain * math.Pow(t.FloorGain/t.Gain, frac)
}

// Streamer returns the tone as a finite beep stream.
func (t Tone) Streamer(sr beep.SampleRate) (beep.Streamer, error) {
	if t.Gain <= 0 || t.FloorGain <= 0 {
		return nil, fmt.Errorf("tone gains must be positive")
	}
	sine, err := generators.SineTone(sr, t.Frequency)
	if err != nil {
		return nil, fmt.Errorf("sine tone: %w", err)
	}
	return &envelope{
		tone:     t,
		sr:       sr,
		streamer: beep.Take(sr.N(t.Duration), sine),
	}, nil
}

// PCM renders the tone to signed 16-bit little-endian mono samples.
func (t Tone) PCM(sr beep.SampleRate) ([]byte, error) {
	s, err := t.Streamer(sr)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, sr.N(t.Duration)*2)
	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		for _, frame := range buf[:n] {
			v := int16(math.Round(clamp(frame[0]) * math.MaxInt16))
			out = binary.LittleEndian.AppendUint16(out, uint16(v))
		}
		if !ok {
			break
		}
	}
	return out, nil
}

// envelope scales a stream by the tone's decaying gain.
type envelope struct {
	tone     Tone
	sr       beep.SampleRate
	streamer beep.Streamer
	pos      int
}

func (e *envelope) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.streamer.Stream(samples)
	for i := range samples[:n] {
		g := e.tone.GainAt(e.sr.D(e.pos))
		samples[i][0] *= g
		samples[i][1] *= g
		e.pos++
	}
	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
