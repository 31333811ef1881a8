package player

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Enqueue appends a track to the queue. The new entry starts playing when
// playNow is set or the queue was empty.
func (e *Engine) Enqueue(ctx context.Context, track Track, playNow bool) (QueueEntry, error) {
	var entry QueueEntry
	err := e.do(ctx, "enqueue", func() error {
		wasEmpty := e.queue.Len() == 0
		entry = e.queue.Append(track)[0]
		log.Debug().Str("track", track.ID).Bool("playNow", playNow).Msg("Enqueued track")
		if playNow || wasEmpty {
			return e.switchTo(ctx, e.queue.Len()-1, true)
		}
		return nil
	})
	return entry, err
}

// EnqueueAll appends tracks to the queue. The first one starts playing if the
// queue was empty.
func (e *Engine) EnqueueAll(ctx context.Context, tracks []Track) ([]QueueEntry, error) {
	var entries []QueueEntry
	err := e.do(ctx, "enqueueAll", func() error {
		if len(tracks) == 0 {
			return nil
		}
		wasEmpty := e.queue.Len() == 0
		entries = e.queue.Append(tracks...)
		if wasEmpty {
			return e.switchTo(ctx, 0, true)
		}
		return nil
	})
	return entries, err
}

// RemoveAt removes the entry at index. When the current entry is removed the
// entry sliding into its place becomes current, keeping the play/pause state.
// With nothing to slide in, playback stops and the engine becomes empty.
func (e *Engine) RemoveAt(ctx context.Context, index int) error {
	return e.do(ctx, "removeAt", func() error {
		wasCurrent := index == e.currentIndex()
		if _, err := e.queue.RemoveAt(index); err != nil {
			return err
		}
		if !wasCurrent {
			return nil
		}
		if index >= e.queue.Len() {
			e.clearCurrent()
			return nil
		}
		if err := e.switchTo(ctx, index, e.playing); err != nil {
			e.clearCurrent()
			return err
		}
		return nil
	})
}

// Play makes the entry with the given token current and starts it.
// Playing the current entry is a no-op.
func (e *Engine) Play(ctx context.Context, token string) error {
	return e.do(ctx, "play", func() error {
		idx := e.queue.IndexOf(token)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrEntryNotInQueue, token)
		}
		if token == e.curToken {
			return nil
		}
		return e.switchTo(ctx, idx, true)
	})
}

// PlayAt plays the entry at index. If it is already current, playback resumes.
func (e *Engine) PlayAt(ctx context.Context, index int) error {
	return e.do(ctx, "playAt", func() error {
		entry, err := e.queue.At(index)
		if err != nil {
			return err
		}
		if entry.Token == e.curToken {
			return e.resume()
		}
		return e.switchTo(ctx, index, true)
	})
}

// Resume starts or continues playback of the current entry.
func (e *Engine) Resume(ctx context.Context) error {
	return e.do(ctx, "resume", e.resume)
}

// Pause pauses the current entry.
func (e *Engine) Pause(ctx context.Context) error {
	return e.do(ctx, "pause", e.pause)
}

// TogglePlayPause pauses when playing and resumes when paused.
func (e *Engine) TogglePlayPause(ctx context.Context) error {
	return e.do(ctx, "toggle", func() error {
		if e.playing {
			return e.pause()
		}
		return e.resume()
	})
}

// Stop pauses and rewinds the current entry, keeping the selection.
func (e *Engine) Stop(ctx context.Context) error {
	return e.do(ctx, "stop", func() error {
		if e.transport == nil {
			return nil
		}
		if err := e.pause(); err != nil {
			return err
		}
		return e.seek(0)
	})
}

func (e *Engine) resume() error {
	if e.transport == nil {
		return nil
	}
	if err := e.transport.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	e.playing = true
	return nil
}

func (e *Engine) pause() error {
	if e.transport == nil {
		return nil
	}
	if err := e.transport.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	e.playing = false
	e.readPosition(e.transport)
	return nil
}

// NextTrack advances to the following entry. At the last entry it returns
// ErrNoNext and leaves the state unchanged.
func (e *Engine) NextTrack(ctx context.Context) error {
	return e.do(ctx, "nextTrack", func() error {
		return e.next(ctx)
	})
}

// Next skips to the following entry.
func (e *Engine) Next(ctx context.Context) error {
	return e.NextTrack(ctx)
}

func (e *Engine) next(ctx context.Context) error {
	idx := e.currentIndex()
	if idx < 0 || idx >= e.queue.Len()-1 {
		return ErrNoNext
	}
	return e.switchTo(ctx, idx+1, true)
}

// PreviousTrack steps back to the preceding entry. At the first entry it
// returns ErrNoPrevious and leaves the state unchanged.
func (e *Engine) PreviousTrack(ctx context.Context) error {
	return e.do(ctx, "previousTrack", func() error {
		return e.previous(ctx)
	})
}

func (e *Engine) previous(ctx context.Context) error {
	idx := e.currentIndex()
	if idx <= 0 {
		return ErrNoPrevious
	}
	return e.switchTo(ctx, idx-1, true)
}

// Previous restarts the current track when it is past the restart threshold
// or nothing precedes it; otherwise it steps back one entry.
func (e *Engine) Previous(ctx context.Context) error {
	return e.do(ctx, "previous", func() error {
		if e.transport == nil {
			return nil
		}
		raw, _ := progressOf(e.transport.PositionMillis(), e.liveDuration())
		if raw > e.restartThreshold || e.currentIndex() <= 0 {
			log.Debug().Float64("progress", raw).Msg("Restarting current track")
			return e.seek(0)
		}
		return e.previous(ctx)
	})
}

// SeekTo moves to millis within the current entry, clamped to the track.
func (e *Engine) SeekTo(ctx context.Context, millis int64) error {
	return e.do(ctx, "seekTo", func() error {
		return e.seek(millis)
	})
}

// SeekToFraction moves to a fraction in [0, 1] of the current entry.
func (e *Engine) SeekToFraction(ctx context.Context, fraction float64) error {
	return e.do(ctx, "seekToFraction", func() error {
		if e.transport == nil {
			return nil
		}
		fraction = min(max(fraction, 0), 1)
		return e.seek(int64(float64(e.liveDuration()) * fraction))
	})
}

func (e *Engine) liveDuration() int64 {
	if d := e.transport.DurationMillis(); d > 0 {
		return d
	}
	return e.duration
}

func (e *Engine) seek(millis int64) error {
	if e.transport == nil {
		return nil
	}
	millis = min(max(millis, 0), e.liveDuration())
	if err := e.transport.SeekTo(millis); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	e.position = millis
	_, e.progress = progressOf(e.position, e.duration)
	return nil
}

// SetQueue replaces the queue with fresh entries for tracks. Playback is not
// interrupted when the current track is part of the new queue; otherwise the
// engine stops and becomes empty. A track queued more than once rebinds to
// the copy with the same ordinal, or to its last copy when the new queue
// holds fewer.
func (e *Engine) SetQueue(ctx context.Context, tracks []Track) error {
	return e.do(ctx, "setQueue", func() error {
		var currentID string
		var nth int
		idx := e.currentIndex()
		if idx >= 0 {
			currentID = e.queue.entries[idx].Track.ID
			nth = e.queue.Occurrence(idx)
		}

		e.queue.Replace(tracks)
		if idx < 0 {
			return nil
		}

		if n := e.queue.IndexOfOccurrence(currentID, nth); n >= 0 {
			e.curToken = e.queue.entries[n].Token
			return nil
		}
		e.clearCurrent()
		return nil
	})
}

// ReorderQueue moves the entry at from to position to.
func (e *Engine) ReorderQueue(ctx context.Context, from, to int) error {
	return e.do(ctx, "reorderQueue", func() error {
		return e.queue.Move(from, to)
	})
}

// CleanQueue removes every entry, stopping playback.
func (e *Engine) CleanQueue(ctx context.Context) error {
	return e.do(ctx, "cleanQueue", func() error {
		e.queue.Clear()
		if e.curToken != "" {
			e.clearCurrent()
		}
		return nil
	})
}
