package alert

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/pomo/internal/logger"
)

// Player plays raw PCM through the system audio device via oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger
	mu  sync.Mutex // one sound at a time
}

// NewPlayer initializes the system audio context. Returns an error if the
// audio device is unavailable. oto allows one context per process.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   int(SampleRate),
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays pcm synchronously. Blocks until playback finishes or ctx is
// cancelled.
func (p *Player) Play(ctx context.Context, pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	p.log.Debug("playing %d bytes of PCM", len(pcm))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			p.log.Debug("playback interrupted")
			player.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Close()
}
