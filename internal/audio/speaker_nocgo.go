//go:build !((linux && cgo) || windows || darwin)

package audio

import (
	"context"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = false

// SpeakerFactory is a stub for builds without audio output.
type SpeakerFactory struct{}

// NewSpeakerFactory returns a factory whose Load always fails.
func NewSpeakerFactory(opener player.StreamOpener, controller *Controller, opts SpeakerOptions) *SpeakerFactory {
	return &SpeakerFactory{}
}

// Load always returns ErrAudioUnavailable.
func (f *SpeakerFactory) Load(ctx context.Context, track player.Track, onComplete func()) (player.Transport, error) {
	return nil, ErrAudioUnavailable
}
