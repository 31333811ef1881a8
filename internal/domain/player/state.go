package player

import (
	"slices"
	"strings"
)

// Status constants for the transport state.
const (
	StatusEmpty = "empty"
	StatusPause = "pause"
	StatusPlay  = "play"
)

// Field identifies a part of the snapshot that changed.
type Field uint32

const (
	FieldCurrent Field = 1 << iota
	FieldPlaying
	FieldProgress
	FieldPosition
	FieldDuration
	FieldCanPlayNext
	FieldCanPlayPrevious
	FieldQueue
	FieldAmplitudes
	FieldError

	FieldAll Field = 1<<iota - 1
)

var fieldNames = []string{
	"current", "playing", "progress", "position", "duration",
	"canPlayNext", "canPlayPrevious", "queue", "amplitudes", "error",
}

// Has reports whether any of the bits in other are set.
func (f Field) Has(other Field) bool {
	return f&other != 0
}

func (f Field) String() string {
	var names []string
	for i, name := range fieldNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Snapshot is an immutable view of the engine state.
// Slices in a snapshot are shared between observers and must not be modified.
type Snapshot struct {
	Seq             uint64
	Status          string
	Current         *QueueEntry
	CurrentIndex    int
	IsPlaying       bool
	PositionMillis  int64
	DurationMillis  int64
	Progress        float64
	CanPlayNext     bool
	CanPlayPrevious bool
	Queue           []QueueEntry
	Amplitudes      []int

	queueRev uint64
}

// emptySnapshot is the state of an engine with nothing loaded.
func emptySnapshot() *Snapshot {
	return &Snapshot{
		Status:       StatusEmpty,
		CurrentIndex: -1,
		Queue:        []QueueEntry{},
		Amplitudes:   []int{},
	}
}

// diff returns the fields that differ between prev and next.
func diff(prev, next *Snapshot) Field {
	var changed Field
	if currentToken(prev) != currentToken(next) || prev.CurrentIndex != next.CurrentIndex {
		changed |= FieldCurrent
	}
	if prev.IsPlaying != next.IsPlaying || prev.Status != next.Status {
		changed |= FieldPlaying
	}
	if prev.Progress != next.Progress {
		changed |= FieldProgress
	}
	if prev.PositionMillis != next.PositionMillis {
		changed |= FieldPosition
	}
	if prev.DurationMillis != next.DurationMillis {
		changed |= FieldDuration
	}
	if prev.CanPlayNext != next.CanPlayNext {
		changed |= FieldCanPlayNext
	}
	if prev.CanPlayPrevious != next.CanPlayPrevious {
		changed |= FieldCanPlayPrevious
	}
	if prev.queueRev != next.queueRev {
		changed |= FieldQueue
	}
	if !slices.Equal(prev.Amplitudes, next.Amplitudes) {
		changed |= FieldAmplitudes
	}
	return changed
}

func currentToken(s *Snapshot) string {
	if s.Current == nil {
		return ""
	}
	return s.Current.Token
}

// ToJSON returns the snapshot as a map suitable for JSON serialization.
func (s Snapshot) ToJSON() map[string]interface{} {
	state := map[string]interface{}{
		"status":          s.Status,
		"position":        s.CurrentIndex,
		"seek":            s.PositionMillis,
		"duration":        s.DurationMillis / 1000,
		"durationMillis":  s.DurationMillis,
		"progress":        s.Progress,
		"canPlayNext":     s.CanPlayNext,
		"canPlayPrevious": s.CanPlayPrevious,
		"queueLength":     len(s.Queue),
		"seq":             s.Seq,
	}

	if s.Current != nil {
		state["token"] = s.Current.Token
		state["trackId"] = s.Current.Track.ID
		state["title"] = s.Current.Track.Title
		state["artist"] = s.Current.Track.Artist
		state["uri"] = s.Current.Track.AudioSource
		state["albumart"] = s.Current.Track.ArtworkSource
	} else {
		state["title"] = ""
		state["artist"] = ""
		state["uri"] = ""
		state["albumart"] = ""
	}

	return state
}

// QueueToJSON renders the queue as a list of maps.
func (s Snapshot) QueueToJSON() []map[string]interface{} {
	items := make([]map[string]interface{}, len(s.Queue))
	for i, e := range s.Queue {
		items[i] = map[string]interface{}{
			"token":    e.Token,
			"trackId":  e.Track.ID,
			"title":    e.Track.Title,
			"artist":   e.Track.Artist,
			"uri":      e.Track.AudioSource,
			"albumart": e.Track.ArtworkSource,
			"duration": e.Track.DurationMillis / 1000,
			"current":  i == s.CurrentIndex,
		}
	}
	return items
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	out.Queue = slices.Clone(s.Queue)
	out.Amplitudes = slices.Clone(s.Amplitudes)
	return out
}
