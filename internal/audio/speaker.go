//go:build (linux && cgo) || windows || darwin

package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// SpeakerFactory loads tracks into transports that play on the system
// speaker. The speaker is initialized on first use.
type SpeakerFactory struct {
	opener     player.StreamOpener
	controller *Controller
	sampleRate beep.SampleRate
	quality    int
	volume     float64

	initOnce sync.Once
	initErr  error
}

// NewSpeakerFactory creates a factory that opens tracks through opener.
func NewSpeakerFactory(opener player.StreamOpener, controller *Controller, opts SpeakerOptions) *SpeakerFactory {
	opts.applyDefaults()
	return &SpeakerFactory{
		opener:     opener,
		controller: controller,
		sampleRate: beep.SampleRate(opts.SampleRate),
		quality:    opts.ResampleQuality,
		volume:     opts.Volume,
	}
}

func (f *SpeakerFactory) init() error {
	f.initOnce.Do(func() {
		f.initErr = speaker.Init(f.sampleRate, f.sampleRate.N(time.Second/10))
		if f.initErr == nil {
			log.Info().Int("sampleRate", int(f.sampleRate)).Msg("Speaker initialized")
		}
	})
	return f.initErr
}

// Load opens and decodes track. The returned transport is paused.
func (f *SpeakerFactory) Load(ctx context.Context, track player.Track, onComplete func()) (player.Transport, error) {
	if err := f.init(); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	rc, err := f.opener.OpenAudioStream(ctx, track)
	if err != nil {
		return nil, err
	}
	rs, err := Seekable(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", track.AudioSource, err)
	}
	streamer, format, err := Open(rs, track.AudioSource)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("track", track.ID).
		Str("rate", FormatSampleRate(int(format.SampleRate))).
		Int("channels", format.NumChannels).
		Msg("Track decoded")

	t := &speakerTransport{
		factory:    f,
		streamer:   streamer,
		format:     format,
		onComplete: onComplete,
	}
	f.controller.Update(t, false, &format)
	return t, nil
}

// speakerTransport plays one decoded stream on the shared speaker.
// Lock order is t.mu, then speaker.Lock.
type speakerTransport struct {
	mu sync.Mutex

	factory    *SpeakerFactory
	streamer   beep.StreamSeekCloser
	format     beep.Format
	ctrl       *beep.Ctrl
	armed      bool // attached to the speaker mixer
	stopped    bool
	onComplete func()
}

func (t *speakerTransport) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrTransportStopped
	}
	if !t.armed {
		t.arm()
	}

	speaker.Lock()
	t.ctrl.Paused = false
	speaker.Unlock()

	t.factory.controller.Update(t, true, &t.format)
	return nil
}

// arm attaches the stream to the speaker in a paused state.
func (t *speakerTransport) arm() {
	speaker.Lock()
	if t.streamer.Position() >= t.streamer.Len() {
		if err := t.streamer.Seek(0); err != nil {
			log.Warn().Err(err).Msg("Failed to rewind stream")
		}
	}
	speaker.Unlock()

	var s beep.Streamer = t.streamer
	if t.format.SampleRate != t.factory.sampleRate {
		s = beep.Resample(t.factory.quality, t.format.SampleRate, t.factory.sampleRate, s)
	}
	if t.factory.volume != 0 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: t.factory.volume}
	}

	ctrl := &beep.Ctrl{Streamer: s, Paused: true}
	t.ctrl = ctrl
	t.armed = true

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go t.ended(ctrl)
	})))
}

func (t *speakerTransport) ended(ctrl *beep.Ctrl) {
	t.mu.Lock()
	if t.stopped || t.ctrl != ctrl {
		t.mu.Unlock()
		return
	}
	t.armed = false
	cb := t.onComplete
	t.mu.Unlock()

	t.factory.controller.Update(t, false, &t.format)
	if cb != nil {
		cb()
	}
}

func (t *speakerTransport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrTransportStopped
	}
	if t.ctrl != nil {
		speaker.Lock()
		t.ctrl.Paused = true
		speaker.Unlock()
	}
	t.factory.controller.Update(t, false, &t.format)
	return nil
}

func (t *speakerTransport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return nil
	}
	t.stopped = true

	speaker.Lock()
	if t.ctrl != nil {
		t.ctrl.Paused = true
		t.ctrl.Streamer = nil
	}
	speaker.Unlock()

	t.ctrl = nil
	t.armed = false
	t.factory.controller.Release(t)
	return t.streamer.Close()
}

func (t *speakerTransport) SeekTo(millis int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrTransportStopped
	}

	speaker.Lock()
	defer speaker.Unlock()

	n := t.format.SampleRate.N(time.Duration(millis) * time.Millisecond)
	n = min(max(n, 0), t.streamer.Len())
	return t.streamer.Seek(n)
}

func (t *speakerTransport) PositionMillis() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return 0
	}

	speaker.Lock()
	pos := t.streamer.Position()
	speaker.Unlock()

	return t.format.SampleRate.D(pos).Milliseconds()
}

func (t *speakerTransport) DurationMillis() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return 0
	}
	return t.format.SampleRate.D(t.streamer.Len()).Milliseconds()
}

func (t *speakerTransport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.ctrl == nil {
		return false
	}

	speaker.Lock()
	paused := t.ctrl.Paused
	speaker.Unlock()
	return !paused
}
