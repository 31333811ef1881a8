package player

import (
	"context"
	"io"
)

// Transport plays a single loaded track.
// A transport is dead after Stop and must not be reused.
type Transport interface {
	Start() error
	Pause() error
	Stop() error
	SeekTo(millis int64) error
	PositionMillis() int64
	DurationMillis() int64
	IsPlaying() bool
}

// TransportFactory loads tracks into new transports.
// onComplete is called each time playback reaches the natural end of the
// track. It is never called after Stop.
type TransportFactory interface {
	Load(ctx context.Context, track Track, onComplete func()) (Transport, error)
}

// StreamOpener opens the raw audio bytes of a track.
type StreamOpener interface {
	OpenAudioStream(ctx context.Context, track Track) (io.ReadCloser, error)
}

// WaveformProcessor turns an audio stream into an amplitude sequence.
type WaveformProcessor interface {
	ProcessAudio(ctx context.Context, stream io.Reader) ([]int, error)
}
