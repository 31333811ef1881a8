package player

import (
	"fmt"

	"github.com/samber/lo"
)

// Queue is the ordered list of entries to play.
// It is not safe for concurrent use; the engine owns it.
type Queue struct {
	entries []QueueEntry
	rev     uint64 // bumped on every mutation
}

// Len returns the number of entries.
func (q *Queue) Len() int {
	return len(q.entries)
}

// At returns the entry at index i.
func (q *Queue) At(i int) (QueueEntry, error) {
	if i < 0 || i >= len(q.entries) {
		return QueueEntry{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(q.entries))
	}
	return q.entries[i], nil
}

// Append adds new entries for the given tracks at the end and returns them.
func (q *Queue) Append(tracks ...Track) []QueueEntry {
	added := lo.Map(tracks, func(t Track, _ int) QueueEntry {
		return NewEntry(t)
	})
	q.entries = append(q.entries, added...)
	q.rev++
	return added
}

// RemoveAt removes and returns the entry at index i.
func (q *Queue) RemoveAt(i int) (QueueEntry, error) {
	entry, err := q.At(i)
	if err != nil {
		return QueueEntry{}, err
	}
	q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
	q.rev++
	return entry, nil
}

// Move removes the entry at from and reinserts it at to.
func (q *Queue) Move(from, to int) error {
	if _, err := q.At(to); err != nil {
		return err
	}
	entry, err := q.RemoveAt(from)
	if err != nil {
		return err
	}
	q.entries = append(q.entries[:to], append([]QueueEntry{entry}, q.entries[to:]...)...)
	return nil
}

// Replace discards all entries and queues the given tracks with fresh tokens.
func (q *Queue) Replace(tracks []Track) {
	q.entries = nil
	q.Append(tracks...)
}

// Clear removes every entry.
func (q *Queue) Clear() {
	q.entries = nil
	q.rev++
}

// IndexOf returns the index of the entry with the given token, or -1.
func (q *Queue) IndexOf(token string) int {
	if token == "" {
		return -1
	}
	_, idx, ok := lo.FindIndexOf(q.entries, func(e QueueEntry) bool {
		return e.Token == token
	})
	if !ok {
		return -1
	}
	return idx
}

// Occurrence returns how many entries before idx hold the same track.
func (q *Queue) Occurrence(idx int) int {
	id := q.entries[idx].Track.ID
	return lo.CountBy(q.entries[:idx], func(e QueueEntry) bool {
		return e.Track.ID == id
	})
}

// IndexOfOccurrence returns the index of the nth entry (counting from zero)
// holding the track id. With fewer copies it returns the last one, and -1
// when there is none.
func (q *Queue) IndexOfOccurrence(id string, nth int) int {
	found := -1
	for i, e := range q.entries {
		if e.Track.ID != id {
			continue
		}
		found = i
		if nth == 0 {
			break
		}
		nth--
	}
	return found
}

// Entries returns a copy of the entries.
func (q *Queue) Entries() []QueueEntry {
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}
