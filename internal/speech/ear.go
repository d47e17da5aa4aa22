// Package speech provides voice input for the timer through a local
// Whisper model.
package speech

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/pomo/internal/logger"
)

// Default wake phrases. Any of these (case-insensitive) triggers active
// listening.
var defaultWakeWords = []string{
	"hey pomo",
	"hey, pomo",
	"okay pomo",
	"pomodoro",
	"pomo",
}

// Recorder captures audio for d and returns its transcription.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) (string, error)
}

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithRecordDuration sets how long each active-listening chunk lasts.
func WithRecordDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.recordDuration = d }
}

// WithDormantDuration sets how long each wake-word clip lasts.
func WithDormantDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.dormantDuration = d }
}

// WithWakeWords overrides the default wake phrases.
func WithWakeWords(words ...string) EarOption {
	return func(e *Ear) { e.wakeWords = words }
}

// WithListenTimeout caps the active listening window.
func WithListenTimeout(d time.Duration) EarOption {
	return func(e *Ear) { e.listenTimeout = d }
}

// WithRetryDelay sets the back-off after a failed recording.
func WithRetryDelay(d time.Duration) EarOption {
	return func(e *Ear) { e.retryDelay = d }
}

// Ear turns speech into command lines.
//
// It idles in a dormant mode, transcribing short clips and discarding
// anything without a wake word. "hey pomo pause" is sent straight away;
// a bare "hey pomo" switches to listening, where chunks are collected
// until the speaker goes quiet. Lines arrive on C.
type Ear struct {
	recorder Recorder
	log      *logger.Logger

	wakeWords       []string
	recordDuration  time.Duration
	dormantDuration time.Duration
	listenTimeout   time.Duration
	retryDelay      time.Duration

	textCh chan string
}

// NewEar creates a voice listener over recorder.
func NewEar(recorder Recorder, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		recorder:        recorder,
		log:             log,
		wakeWords:       defaultWakeWords,
		recordDuration:  2 * time.Second,
		dormantDuration: 3 * time.Second,
		listenTimeout:   10 * time.Second,
		retryDelay:      2 * time.Second,
		textCh:          make(chan string, 8),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// C returns the channel that receives transcribed command lines.
func (e *Ear) C() <-chan string {
	return e.textCh
}

// Run listens until ctx is cancelled. Blocks; closes C on return.
func (e *Ear) Run(ctx context.Context) {
	defer close(e.textCh)
	e.log.Info("started (dormant=%s, active=%s, wake=%v)", e.dormantDuration, e.recordDuration, e.wakeWords)

	for ctx.Err() == nil {
		text, ok := e.record(ctx, e.dormantDuration)
		if !ok || text == "" {
			continue
		}
		e.log.Debug("dormant: heard %q", text)

		rest, woke := e.stripWakeWord(text)
		if !woke {
			continue
		}
		if rest != "" {
			e.send(ctx, rest)
			continue
		}

		e.log.Info("wake word heard, listening")
		if line := e.listen(ctx); line != "" {
			e.send(ctx, line)
		}
	}
	e.log.Info("stopped")
}

// listen records chunks until silence follows speech, too much silence
// precedes it, or the listen timeout passes.
func (e *Ear) listen(ctx context.Context) string {
	const (
		graceEmpty      = 3 // empty chunks tolerated before speech
		postSpeechEmpty = 1 // empty chunks that end the command
	)

	deadline := time.Now().Add(e.listenTimeout)
	var parts []string
	empty := 0

	for ctx.Err() == nil && time.Now().Before(deadline) {
		chunk, ok := e.record(ctx, e.recordDuration)
		if !ok {
			continue
		}
		if chunk == "" {
			empty++
			limit := graceEmpty
			if len(parts) > 0 {
				limit = postSpeechEmpty
			}
			if empty >= limit {
				break
			}
			continue
		}

		empty = 0
		if rest, woke := e.stripWakeWord(chunk); woke {
			chunk = rest
		}
		if chunk != "" {
			parts = append(parts, chunk)
		}
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// record runs one recording and cleans its transcript. ok is false when
// the recording failed.
func (e *Ear) record(ctx context.Context, d time.Duration) (string, bool) {
	text, err := e.recorder.Record(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		e.log.Error("recording failed: %v", err)
		select {
		case <-time.After(e.retryDelay):
		case <-ctx.Done():
		}
		return "", false
	}
	return cleanTranscription(text), true
}

func (e *Ear) send(ctx context.Context, line string) {
	e.log.Info("heard command: %q", line)
	select {
	case e.textCh <- line:
	case <-ctx.Done():
	}
}

// stripWakeWord looks for a wake word and returns whatever follows it.
// woke is false when no wake word was found.
func (e *Ear) stripWakeWord(text string) (rest string, woke bool) {
	lower := strings.ToLower(text)
	for _, w := range e.wakeWords {
		idx := strings.Index(lower, strings.ToLower(w))
		if idx < 0 {
			continue
		}
		rest = strings.TrimSpace(text[idx+len(w):])
		rest = strings.TrimLeft(rest, " ,.")
		if isPunctuation(rest) {
			rest = ""
		}
		return rest, true
	}
	return "", false
}

// WhisperRecorder records from the default microphone and transcribes
// with whisper-cli.
type WhisperRecorder struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger
}

var _ Recorder = (*WhisperRecorder)(nil)

// NewWhisperRecorder checks that the whisper binary is reachable.
func NewWhisperRecorder(whisperBin, modelPath, tempDir string, log *logger.Logger) (*WhisperRecorder, error) {
	if _, err := exec.LookPath(whisperBin); err != nil {
		return nil, fmt.Errorf("whisper binary %q: %w", whisperBin, err)
	}
	return &WhisperRecorder{whisperBin: whisperBin, modelPath: modelPath, tempDir: tempDir, log: log}, nil
}

// Record captures d of audio and waits for its transcription.
func (r *WhisperRecorder) Record(ctx context.Context, d time.Duration) (string, error) {
	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)
	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := r.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(r.whisperBin, r.modelPath, r.tempDir, "wav", callback, verbose)
	if err != nil {
		return "", fmt.Errorf("transcriber init: %w", err)
	}
	if err := t.Start(); err != nil {
		return "", fmt.Errorf("recording start: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return result, nil
}
