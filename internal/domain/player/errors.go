package player

import "errors"

var (
	// ErrMediaLoad is returned when the transport factory cannot open a track.
	// The engine keeps its previous transport and state.
	ErrMediaLoad = errors.New("media load failed")

	// ErrProcessing is reported when a waveform cannot be computed.
	ErrProcessing = errors.New("waveform processing failed")

	// ErrIndexOutOfRange is returned for queue indices outside [0, len).
	ErrIndexOutOfRange = errors.New("queue index out of range")

	// ErrNoNext is returned when there is no entry after the current one.
	ErrNoNext = errors.New("no next entry")

	// ErrNoPrevious is returned when there is no entry before the current one.
	ErrNoPrevious = errors.New("no previous entry")

	// ErrEntryNotInQueue is returned when a token does not match any queued entry.
	ErrEntryNotInQueue = errors.New("entry not in queue")

	// ErrEngineClosed is returned by commands issued after Close.
	ErrEngineClosed = errors.New("engine closed")
)
