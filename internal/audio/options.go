package audio

import "errors"

var (
	// ErrAudioUnavailable is returned when the build has no audio output.
	ErrAudioUnavailable = errors.New("audio output not available in this build (requires cgo on linux)")

	// ErrTransportStopped is returned by a transport used after Stop.
	ErrTransportStopped = errors.New("transport stopped")
)

// SpeakerOptions configures speaker output.
type SpeakerOptions struct {
	SampleRate      int     // output rate in Hz
	ResampleQuality int     // 1 (fast) to 6 (best)
	Volume          float64 // gain in powers of two; 0 leaves the signal untouched
}

func (o *SpeakerOptions) applyDefaults() {
	if o.SampleRate <= 0 {
		o.SampleRate = 44100
	}
	if o.ResampleQuality <= 0 {
		o.ResampleQuality = 4
	}
}
