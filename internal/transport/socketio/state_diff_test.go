package socketio

import (
	"testing"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

func TestStateCompareKeysSkipInterpolatedFields(t *testing.T) {
	for _, key := range stateCompareKeys {
		switch key {
		case "seek", "progress", "seq":
			t.Errorf("stateCompareKeys should not include %q", key)
		}
	}
}

func baseState() map[string]interface{} {
	entry := player.NewEntry(player.Track{ID: "t1", Title: "Blue", Artist: "Joni Mitchell", AudioSource: "Joni/Blue.flac"})
	return player.Snapshot{
		Seq:            4,
		Status:         player.StatusPlay,
		Current:        &entry,
		CurrentIndex:   0,
		IsPlaying:      true,
		PositionMillis: 1000,
		DurationMillis: 180000,
		Progress:       0.005,
		Queue:          []player.QueueEntry{entry},
	}.ToJSON()
}

func TestIsStateSame(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		same   bool
	}{
		{"identical", func(map[string]interface{}) {}, true},
		{"seek only", func(m map[string]interface{}) { m["seek"] = int64(5000) }, true},
		{"progress and seq", func(m map[string]interface{}) { m["progress"] = 0.5; m["seq"] = uint64(9) }, true},
		{"status", func(m map[string]interface{}) { m["status"] = player.StatusPause }, false},
		{"title", func(m map[string]interface{}) { m["title"] = "River" }, false},
		{"can play next", func(m map[string]interface{}) { m["canPlayNext"] = true }, false},
		{"queue length", func(m map[string]interface{}) { m["queueLength"] = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Server{}
			base := baseState()
			s.saveLastState(base)

			next := make(map[string]interface{}, len(base))
			for k, v := range base {
				next[k] = v
			}
			tt.mutate(next)

			if got := s.isStateSame(next); got != tt.same {
				t.Errorf("isStateSame = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestIsStateSameWithoutPrevious(t *testing.T) {
	s := &Server{}
	if s.isStateSame(baseState()) {
		t.Error("isStateSame should be false before any broadcast")
	}
}
