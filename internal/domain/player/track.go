// Package player provides the playback queue and transport engine.
package player

import "github.com/google/uuid"

// Track is an immutable description of a playable item in the library.
type Track struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	AudioSource    string `json:"audioSource"`
	ArtworkSource  string `json:"artworkSource,omitempty"`
	DurationMillis int64  `json:"durationMillis"`
}

// QueueEntry is one occurrence of a track in the queue.
// The same track may be queued several times; entries are told apart by Token.
type QueueEntry struct {
	Token string `json:"token"`
	Track Track  `json:"track"`
}

// NewEntry wraps a track in a fresh queue entry.
func NewEntry(t Track) QueueEntry {
	return QueueEntry{
		Token: uuid.NewString(),
		Track: t,
	}
}

// Equal reports whether two entries are the same queue occurrence.
func (e QueueEntry) Equal(other QueueEntry) bool {
	return e.Token == other.Token
}
