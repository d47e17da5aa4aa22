// Package alert raises the end-of-session alert: a modal dialog and a
// short fading beep.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Alert copy.
const (
	Title   = "Pomodoro"
	Message = "Time's up! Take a break."
)

// Sounder makes the alert noise.
type Sounder interface {
	Sound(ctx context.Context) error
}

// PCMPlayer is the playback side of a ToneSounder.
type PCMPlayer interface {
	Play(ctx context.Context, pcm []byte) error
}

// ToneSounder plays a pre-rendered tone.
type ToneSounder struct {
	player PCMPlayer
	pcm    []byte
}

// NewToneSounder renders tone once up front.
func NewToneSounder(player PCMPlayer, tone Tone) (*ToneSounder, error) {
	pcm, err := tone.PCM(SampleRate)
	if err != nil {
		return nil, fmt.Errorf("render tone: %w", err)
	}
	return &ToneSounder{player: player, pcm: pcm}, nil
}

// Sound plays the tone.
func (s *ToneSounder) Sound(ctx context.Context) error {
	return s.player.Play(ctx, s.pcm)
}

// Alerter shows the dialog and plays the tone. It satisfies domain.Alerter.
type Alerter struct {
	notifier domain.Notifier
	sounder  Sounder // nil when sound is off
	log      *logger.Logger
}

var _ domain.Alerter = (*Alerter)(nil)

// New creates an alerter. sounder may be nil.
func New(notifier domain.Notifier, sounder Sounder, log *logger.Logger) *Alerter {
	return &Alerter{notifier: notifier, sounder: sounder, log: log}
}

// Alert shows the dialog, then plays the tone. A failure in one does not
// skip the other.
func (a *Alerter) Alert(ctx context.Context) error {
	var errs []error
	if err := a.notifier.Notify(ctx, Title, Message); err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	if a.sounder != nil {
		if err := a.sounder.Sound(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("sound: %w", err))
		}
	} else {
		a.log.Debug("sound disabled, skipping tone")
	}
	return errors.Join(errs...)
}
