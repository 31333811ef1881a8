package player_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

func TestEnqueueIntoEmptyQueueAutoPlays(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entry, err := e.Enqueue(ctx, track("a", 60000), false)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.Current == nil || !snap.Current.Equal(entry) {
		t.Fatalf("expected current entry %s, got %+v", entry.Token, snap.Current)
	}
	if snap.Status != player.StatusPlay || !snap.IsPlaying {
		t.Errorf("expected playing status, got %q", snap.Status)
	}
	if snap.DurationMillis != 60000 {
		t.Errorf("expected duration 60000, got %d", snap.DurationMillis)
	}
}

func TestEnqueueKeepsCurrentPlayback(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	first, _ := e.Enqueue(ctx, track("a", 60000), false)
	if _, err := e.Enqueue(ctx, track("b", 60000), false); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	snap := e.Snapshot()
	if !snap.Current.Equal(first) {
		t.Errorf("expected first entry to stay current")
	}
	if factory.count() != 1 {
		t.Errorf("expected 1 transport, got %d", factory.count())
	}

	third, err := e.Enqueue(ctx, track("c", 60000), true)
	if err != nil {
		t.Fatalf("Enqueue playNow failed: %v", err)
	}
	if !e.Snapshot().Current.Equal(third) {
		t.Errorf("expected playNow entry to become current")
	}
	if factory.live() != 1 {
		t.Errorf("expected exactly one live transport, got %d", factory.live())
	}
}

func TestQueueIdentity(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	a := track("a", 1000)
	first, _ := e.Enqueue(ctx, a, false)
	second, _ := e.Enqueue(ctx, a, false)

	if first.Equal(second) {
		t.Fatal("expected duplicate tracks to produce distinct entries")
	}

	snap := e.Snapshot()
	if len(snap.Queue) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Queue))
	}
	if !snap.Queue[0].Equal(first) || !snap.Queue[1].Equal(second) {
		t.Error("expected entries at distinct indices in insertion order")
	}

	if err := e.Play(ctx, second.Token); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	snap = e.Snapshot()
	if snap.CurrentIndex != 1 {
		t.Errorf("expected current index 1, got %d", snap.CurrentIndex)
	}
	if !snap.CanPlayPrevious {
		t.Error("expected canPlayPrevious for second duplicate")
	}
}

func TestNextTrackAtLastEntry(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	if err := e.NextTrack(ctx); err != nil {
		t.Fatalf("NextTrack failed: %v", err)
	}
	if err := e.SeekTo(ctx, 400); err != nil {
		t.Fatalf("SeekTo failed: %v", err)
	}
	before := e.Snapshot()

	err := e.NextTrack(ctx)
	if !errors.Is(err, player.ErrNoNext) {
		t.Fatalf("expected ErrNoNext, got %v", err)
	}

	after := e.Snapshot()
	if !after.Current.Equal(*before.Current) {
		t.Error("expected current entry unchanged")
	}
	if after.PositionMillis != 400 {
		t.Errorf("expected position 400, got %d", after.PositionMillis)
	}
}

func TestPreviousTrackAtFirstEntry(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	before := e.Snapshot()

	err := e.PreviousTrack(ctx)
	if !errors.Is(err, player.ErrNoPrevious) {
		t.Fatalf("expected ErrNoPrevious, got %v", err)
	}
	after := e.Snapshot()
	if after.Seq != before.Seq {
		t.Errorf("expected no state change, seq moved from %d to %d", before.Seq, after.Seq)
	}
}

func TestNextOnEmptyEngine(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	if err := e.Next(ctx); !errors.Is(err, player.ErrNoNext) {
		t.Errorf("expected ErrNoNext, got %v", err)
	}
	if err := e.Previous(ctx); err != nil {
		t.Errorf("expected Previous on empty engine to be a no-op, got %v", err)
	}
	if err := e.Pause(ctx); err != nil {
		t.Errorf("expected Pause on empty engine to be a no-op, got %v", err)
	}
}

func TestCompletionAtEndOfQueue(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	e.NextTrack(ctx)
	last := e.Snapshot().Current

	factory.last().finish()

	waitFor(t, "end of queue", func() bool {
		s := e.Snapshot()
		return !s.IsPlaying && s.Status == player.StatusPause && factory.last().PositionMillis() == 0
	})

	snap := e.Snapshot()
	if snap.Current == nil || !snap.Current.Equal(*last) {
		t.Error("expected last entry to stay selected")
	}
	if len(snap.Queue) != 2 {
		t.Errorf("expected queue preserved, got %d entries", len(snap.Queue))
	}
	if factory.count() != 2 {
		t.Errorf("expected no new transport, got %d", factory.count())
	}
}

func TestCompletionMidQueue(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	first := factory.last()

	first.finish()

	waitFor(t, "advance to next entry", func() bool {
		s := e.Snapshot()
		return s.Current != nil && s.Current.Equal(entries[1])
	})
	snap := e.Snapshot()
	if !snap.IsPlaying {
		t.Error("expected playback to start automatically")
	}
	if !first.isStopped() {
		t.Error("expected previous transport to be stopped")
	}
}

func TestCompletionWithUnloadableNext(t *testing.T) {
	factory := newFakeFactory()
	factory.fail("bad")
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("bad", 1000)})
	first := factory.last()

	first.finish()

	waitFor(t, "pause after failed advance", func() bool {
		s := e.Snapshot()
		return s.Status == player.StatusPause && first.PositionMillis() == 0
	})
	if snap := e.Snapshot(); !snap.Current.Equal(entries[0]) {
		t.Errorf("expected entry a to stay current, got index %d", snap.CurrentIndex)
	}
}

func TestPlayStateHeldUntilCompletion(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	sub := e.Subscribe(player.FieldPlaying)
	defer sub.Close()

	complete := factory.last().endQuietly()
	time.Sleep(50 * time.Millisecond)

	if snap := e.Snapshot(); !snap.IsPlaying || snap.Status != player.StatusPlay {
		t.Errorf("expected play status before completion, got %q", snap.Status)
	}
	select {
	case u := <-sub.C:
		t.Errorf("unexpected play state update before completion: %q", u.Snapshot.Status)
	default:
	}

	complete()
	waitFor(t, "advance to next entry", func() bool {
		s := e.Snapshot()
		return s.Current != nil && s.Current.Equal(entries[1]) && s.IsPlaying
	})
}

func TestStaleCompletionIgnored(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000), track("c", 1000)})
	stale := factory.last()
	e.NextTrack(ctx)

	stale.finish()
	time.Sleep(20 * time.Millisecond)

	snap := e.Snapshot()
	if !snap.Current.Equal(entries[1]) {
		t.Errorf("expected entry b to stay current, got index %d", snap.CurrentIndex)
	}
}

func TestPreviousRestartVersusStepBack(t *testing.T) {
	tests := []struct {
		name      string
		progress  float64
		wantIndex int
	}{
		{"past threshold restarts", 0.15, 1},
		{"before threshold steps back", 0.05, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newFakeFactory()
			e := startEngine(t, player.Options{Factory: factory})
			ctx := context.Background()

			entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 100000), track("b", 100000)})
			e.NextTrack(ctx)
			current := factory.last()
			current.setPosition(int64(tt.progress * 100000))

			if err := e.Previous(ctx); err != nil {
				t.Fatalf("Previous failed: %v", err)
			}

			snap := e.Snapshot()
			if snap.CurrentIndex != tt.wantIndex {
				t.Errorf("expected index %d, got %d", tt.wantIndex, snap.CurrentIndex)
			}
			if !snap.Current.Equal(entries[tt.wantIndex]) {
				t.Errorf("expected entry %d to be current", tt.wantIndex)
			}
			if tt.wantIndex == 1 && current.PositionMillis() != 0 {
				t.Errorf("expected current track rewound, got %d", current.PositionMillis())
			}
			if snap.PositionMillis != 0 {
				t.Errorf("expected position 0, got %d", snap.PositionMillis)
			}
		})
	}
}

func TestPreviousAtFirstEntryRestarts(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	e.Enqueue(ctx, track("a", 100000), false)
	factory.last().setPosition(5000)

	if err := e.Previous(ctx); err != nil {
		t.Fatalf("Previous failed: %v", err)
	}
	if pos := factory.last().PositionMillis(); pos != 0 {
		t.Errorf("expected rewind to 0, got %d", pos)
	}
	if e.Snapshot().CurrentIndex != 0 {
		t.Error("expected selection unchanged")
	}
}

func TestCapabilityFlags(t *testing.T) {
	const n = 4
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	snap := e.Snapshot()
	if snap.CanPlayNext || snap.CanPlayPrevious {
		t.Error("expected both flags false on empty engine")
	}

	tracks := make([]player.Track, n)
	for i := range tracks {
		tracks[i] = track(string(rune('a'+i)), 1000)
	}
	e.EnqueueAll(ctx, tracks)

	for i := 0; i < n; i++ {
		if err := e.PlayAt(ctx, i); err != nil {
			t.Fatalf("PlayAt(%d) failed: %v", i, err)
		}
		snap := e.Snapshot()
		if snap.CanPlayNext != (i < n-1) {
			t.Errorf("index %d: expected canPlayNext %v, got %v", i, i < n-1, snap.CanPlayNext)
		}
		if snap.CanPlayPrevious != (i > 0) {
			t.Errorf("index %d: expected canPlayPrevious %v, got %v", i, i > 0, snap.CanPlayPrevious)
		}
	}

	e.CleanQueue(ctx)
	snap = e.Snapshot()
	if snap.CanPlayNext || snap.CanPlayPrevious {
		t.Error("expected both flags false after clean")
	}
}

func TestAmplitudeRace(t *testing.T) {
	factory := newFakeFactory()
	wf := &gatedWaveform{}
	gateA := wf.gate("a")
	e := startEngine(t, player.Options{Factory: factory, Opener: fakeOpener{}, Waveform: wf})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("bb", 1000)})
	if err := e.NextTrack(ctx); err != nil {
		t.Fatalf("NextTrack failed: %v", err)
	}

	want := amplitudesFor("bb")
	waitFor(t, "amplitudes for b", func() bool {
		return slices.Equal(e.Snapshot().Amplitudes, want)
	})

	sub := e.Subscribe(player.FieldAmplitudes)
	defer sub.Close()
	close(gateA)
	time.Sleep(50 * time.Millisecond)

	if got := e.Snapshot().Amplitudes; !slices.Equal(got, want) {
		t.Errorf("expected amplitudes %v, got %v", want, got)
	}
	select {
	case u := <-sub.C:
		t.Errorf("unexpected amplitude update: %v", u.Snapshot.Amplitudes)
	default:
	}
}

func TestAmplitudesClearedOnTrackChange(t *testing.T) {
	factory := newFakeFactory()
	wf := &gatedWaveform{}
	gateB := wf.gate("b")
	defer close(gateB)
	e := startEngine(t, player.Options{Factory: factory, Opener: fakeOpener{}, Waveform: wf})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("aaa", 1000), track("b", 1000)})
	waitFor(t, "amplitudes for a", func() bool {
		return len(e.Snapshot().Amplitudes) == 3
	})

	e.NextTrack(ctx)
	if got := e.Snapshot().Amplitudes; len(got) != 0 {
		t.Errorf("expected amplitudes cleared, got %v", got)
	}
}

func TestReorderPreservesSelection(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000), track("c", 1000)})
	e.PlayAt(ctx, 2)

	if err := e.ReorderQueue(ctx, 2, 0); err != nil {
		t.Fatalf("ReorderQueue failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.CurrentIndex != 0 {
		t.Errorf("expected current index 0, got %d", snap.CurrentIndex)
	}
	if !snap.Current.Equal(entries[2]) {
		t.Error("expected the same entry to stay current")
	}
	if !snap.Queue[0].Equal(entries[2]) || !snap.Queue[1].Equal(entries[0]) {
		t.Error("expected queue order c, a, b")
	}
}

func TestReorderOutOfRange(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()
	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})

	for _, idx := range [][2]int{{-1, 0}, {0, 2}, {5, 1}} {
		if err := e.ReorderQueue(ctx, idx[0], idx[1]); !errors.Is(err, player.ErrIndexOutOfRange) {
			t.Errorf("ReorderQueue(%d, %d): expected ErrIndexOutOfRange, got %v", idx[0], idx[1], err)
		}
	}
	if err := e.RemoveAt(ctx, 2); !errors.Is(err, player.ErrIndexOutOfRange) {
		t.Errorf("RemoveAt(2): expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveCurrentEntry(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	e.Pause(ctx)

	if err := e.RemoveAt(ctx, 0); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}
	snap := e.Snapshot()
	if snap.Current == nil || !snap.Current.Equal(entries[1]) {
		t.Fatal("expected following entry to become current")
	}
	if snap.IsPlaying {
		t.Error("expected paused state to carry over")
	}

	if err := e.RemoveAt(ctx, 0); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}
	snap = e.Snapshot()
	if snap.Status != player.StatusEmpty || snap.Current != nil {
		t.Errorf("expected empty state, got %q", snap.Status)
	}
	if factory.live() != 0 {
		t.Errorf("expected no live transports, got %d", factory.live())
	}
}

func TestRemoveOtherEntryKeepsCurrent(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000), track("c", 1000)})
	e.PlayAt(ctx, 2)
	e.RemoveAt(ctx, 0)

	snap := e.Snapshot()
	if !snap.Current.Equal(entries[2]) || snap.CurrentIndex != 1 {
		t.Errorf("expected entry c at index 1, got index %d", snap.CurrentIndex)
	}
}

func TestCleanQueueStopsPlayback(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	if err := e.CleanQueue(ctx); err != nil {
		t.Fatalf("CleanQueue failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.Status != player.StatusEmpty || len(snap.Queue) != 0 {
		t.Errorf("expected empty engine, got status %q with %d entries", snap.Status, len(snap.Queue))
	}
	if factory.live() != 0 {
		t.Error("expected transport released")
	}
}

func TestSetQueueRebindsCurrentTrack(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("b", 1000)})
	e.PlayAt(ctx, 1)
	playing := factory.last()

	if err := e.SetQueue(ctx, []player.Track{track("x", 1000), track("b", 1000), track("b", 1000)}); err != nil {
		t.Fatalf("SetQueue failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.CurrentIndex != 1 || snap.Current.Track.ID != "b" {
		t.Errorf("expected b at index 1, got index %d", snap.CurrentIndex)
	}
	if !snap.Current.Equal(snap.Queue[1]) {
		t.Error("expected current entry to be the new queue entry")
	}
	if playing.isStopped() || !snap.IsPlaying {
		t.Error("expected playback to continue")
	}

	e.SetQueue(ctx, []player.Track{track("y", 1000)})
	snap = e.Snapshot()
	if snap.Status != player.StatusEmpty {
		t.Errorf("expected empty status when current track is gone, got %q", snap.Status)
	}
	if len(snap.Queue) != 1 {
		t.Errorf("expected new queue kept, got %d entries", len(snap.Queue))
	}
}

func TestSetQueueKeepsDuplicatePosition(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	tracks := []player.Track{track("x", 1000), track("y", 1000), track("x", 1000)}
	e.EnqueueAll(ctx, tracks)
	e.PlayAt(ctx, 2)
	playing := factory.last()

	if err := e.SetQueue(ctx, tracks); err != nil {
		t.Fatalf("SetQueue failed: %v", err)
	}

	snap := e.Snapshot()
	if snap.CurrentIndex != 2 {
		t.Errorf("expected current index 2, got %d", snap.CurrentIndex)
	}
	if !snap.CanPlayPrevious || snap.CanPlayNext {
		t.Errorf("expected previous only, got next=%v previous=%v", snap.CanPlayNext, snap.CanPlayPrevious)
	}
	if playing.isStopped() {
		t.Error("expected playback to continue")
	}

	e.SetQueue(ctx, []player.Track{track("y", 1000), track("x", 1000)})
	if snap := e.Snapshot(); snap.CurrentIndex != 1 || snap.Current.Track.ID != "x" {
		t.Errorf("expected last copy of x at index 1, got index %d", snap.CurrentIndex)
	}
}

func TestLoadFailureKeepsPreviousTransport(t *testing.T) {
	factory := newFakeFactory()
	factory.fail("bad")
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()

	sub := e.Subscribe(player.FieldError)
	defer sub.Close()

	entries, _ := e.EnqueueAll(ctx, []player.Track{track("a", 1000), track("bad", 1000)})
	old := factory.last()

	err := e.NextTrack(ctx)
	if !errors.Is(err, player.ErrMediaLoad) {
		t.Fatalf("expected ErrMediaLoad, got %v", err)
	}

	snap := e.Snapshot()
	if !snap.Current.Equal(entries[0]) || !snap.IsPlaying {
		t.Error("expected previous entry to keep playing")
	}
	if old.isStopped() {
		t.Error("expected previous transport to stay alive")
	}

	u := <-sub.C
	if !u.Changed.Has(player.FieldError) || !errors.Is(u.Err, player.ErrMediaLoad) {
		t.Errorf("expected error update, got %v (%v)", u.Changed, u.Err)
	}
}

func TestSeekClampsToTrack(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()
	e.Enqueue(ctx, track("a", 10000), false)

	e.SeekTo(ctx, 99999)
	if pos := factory.last().PositionMillis(); pos != 10000 {
		t.Errorf("expected clamp to 10000, got %d", pos)
	}
	e.SeekTo(ctx, -5)
	if pos := factory.last().PositionMillis(); pos != 0 {
		t.Errorf("expected clamp to 0, got %d", pos)
	}
	e.SeekToFraction(ctx, 0.5)
	if pos := factory.last().PositionMillis(); pos != 5000 {
		t.Errorf("expected 5000, got %d", pos)
	}
}

func TestProgressSampling(t *testing.T) {
	tests := []struct {
		name string
		pos  int64
		want float64
	}{
		{"middle", 50000, 0.5},
		{"near end", 99500, 0},
		{"near start", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newFakeFactory()
			e := startEngine(t, player.Options{Factory: factory})
			ctx := context.Background()
			e.Enqueue(ctx, track("a", 100000), false)

			factory.last().setPosition(tt.pos)
			waitFor(t, "sampled position", func() bool {
				return e.Snapshot().PositionMillis == tt.pos
			})
			if got := e.Snapshot().Progress; got != tt.want {
				t.Errorf("expected progress %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSamplerSurvivesPanic(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()
	e.Enqueue(ctx, track("a", 100000), false)

	sub := e.Subscribe(player.FieldPosition)
	defer sub.Close()

	tr := factory.last()
	tr.panicOnNextPosition()
	tr.setPosition(30000)

	waitFor(t, "panicking tick", func() bool { return tr.pendingPanics() == 0 })
	waitFor(t, "position after panic", func() bool {
		return e.Snapshot().PositionMillis == 30000
	})

	tr.setPosition(60000)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-sub.C:
			if u.Snapshot.PositionMillis == 60000 {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for position update after panic")
		}
	}
}

func TestProgressNotSampledWhilePaused(t *testing.T) {
	factory := newFakeFactory()
	e := startEngine(t, player.Options{Factory: factory})
	ctx := context.Background()
	e.Enqueue(ctx, track("a", 100000), false)
	e.Pause(ctx)

	sub := e.Subscribe(player.FieldProgress | player.FieldPosition)
	defer sub.Close()
	factory.last().setPosition(40000)

	time.Sleep(50 * time.Millisecond)
	select {
	case u := <-sub.C:
		t.Errorf("unexpected progress update while paused: %v", u.Changed)
	default:
	}
}

func TestTogglePlayPause(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()
	e.Enqueue(ctx, track("a", 1000), false)

	e.TogglePlayPause(ctx)
	if e.Snapshot().IsPlaying {
		t.Error("expected paused after first toggle")
	}
	e.TogglePlayPause(ctx)
	if !e.Snapshot().IsPlaying {
		t.Error("expected playing after second toggle")
	}
}

func TestPlayUnknownToken(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	if err := e.Play(context.Background(), "missing"); !errors.Is(err, player.ErrEntryNotInQueue) {
		t.Errorf("expected ErrEntryNotInQueue, got %v", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	e := startEngine(t, player.Options{Factory: newFakeFactory()})
	ctx := context.Background()

	var c player.QueueEntry
	for _, id := range []string{"a", "b", "c"} {
		entry, err := e.Enqueue(ctx, track(id, 1000), false)
		if err != nil {
			t.Fatalf("Enqueue(%s) failed: %v", id, err)
		}
		c = entry
	}
	if e.Snapshot().CurrentIndex != 0 {
		t.Fatal("expected a to be auto-selected")
	}

	e.Next(ctx)
	e.Next(ctx)

	snap := e.Snapshot()
	if !snap.Current.Equal(c) {
		t.Errorf("expected c current, got index %d", snap.CurrentIndex)
	}
	if snap.CanPlayNext {
		t.Error("expected canPlayNext false")
	}
	if !snap.CanPlayPrevious {
		t.Error("expected canPlayPrevious true")
	}
}

func TestClosedEngineRejectsCommands(t *testing.T) {
	e := player.NewEngine(player.Options{Factory: newFakeFactory()})
	go e.Run(context.Background())

	sub := e.Subscribe(player.FieldAll)
	e.Close()

	if _, err := e.Enqueue(context.Background(), track("a", 1000), false); !errors.Is(err, player.ErrEngineClosed) {
		t.Errorf("expected ErrEngineClosed, got %v", err)
	}
	if _, ok := <-sub.C; ok {
		t.Error("expected subscription channel closed")
	}
}
