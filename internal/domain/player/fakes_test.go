package player_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// fakeTransport is a controllable in-memory transport.
type fakeTransport struct {
	mu         sync.Mutex
	track      player.Track
	playing    bool
	stopped    bool
	pos        int64
	dur        int64
	starts     int
	panics     int // PositionMillis panics this many more times
	onComplete func()
}

func (f *fakeTransport) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return errors.New("transport stopped")
	}
	f.playing = true
	f.starts++
	return nil
}

func (f *fakeTransport) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	return nil
}

func (f *fakeTransport) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
	f.stopped = true
	return nil
}

func (f *fakeTransport) SeekTo(ms int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = ms
	return nil
}

func (f *fakeTransport) PositionMillis() int64 {
	f.mu.Lock()
	if f.panics > 0 {
		f.panics--
		f.mu.Unlock()
		panic("position unavailable")
	}
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransport) DurationMillis() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeTransport) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeTransport) setPosition(ms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = ms
}

func (f *fakeTransport) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *fakeTransport) panicOnNextPosition() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panics = 1
}

func (f *fakeTransport) pendingPanics() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.panics
}

// finish simulates the natural end of the track.
func (f *fakeTransport) finish() {
	f.endQuietly()()
}

// endQuietly stops the stream at its end and returns the completion
// callback without running it.
func (f *fakeTransport) endQuietly() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = f.dur
	f.playing = false
	return f.onComplete
}

// fakeFactory records every transport it creates.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	failIDs    map[string]bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{failIDs: make(map[string]bool)}
}

func (f *fakeFactory) Load(ctx context.Context, track player.Track, onComplete func()) (player.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failIDs[track.ID] {
		return nil, errors.New("cannot decode")
	}
	t := &fakeTransport{track: track, dur: track.DurationMillis, onComplete: onComplete}
	f.transports = append(f.transports, t)
	return t, nil
}

func (f *fakeFactory) fail(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failIDs[id] = true
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transports) == 0 {
		return nil
	}
	return f.transports[len(f.transports)-1]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.transports {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

// fakeOpener serves the track id as the stream contents.
type fakeOpener struct{}

func (fakeOpener) OpenAudioStream(ctx context.Context, track player.Track) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(track.ID)), nil
}

// gatedWaveform returns one amplitude per byte of the stream. Streams listed
// in gates block until the gate is closed.
type gatedWaveform struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func (g *gatedWaveform) gate(id string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gates == nil {
		g.gates = make(map[string]chan struct{})
	}
	ch := make(chan struct{})
	g.gates[id] = ch
	return ch
}

func (g *gatedWaveform) ProcessAudio(ctx context.Context, stream io.Reader) ([]int, error) {
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	ch := g.gates[string(data)]
	g.mu.Unlock()
	if ch != nil {
		<-ch
	}

	amps := make([]int, len(data))
	for i, b := range data {
		amps[i] = int(b)
	}
	return amps, nil
}

func amplitudesFor(id string) []int {
	amps := make([]int, len(id))
	for i := range id {
		amps[i] = int(id[i])
	}
	return amps
}

func track(id string, durMillis int64) player.Track {
	return player.Track{
		ID:             id,
		Title:          "Title " + id,
		Artist:         "Artist",
		AudioSource:    id + ".mp3",
		DurationMillis: durMillis,
	}
}

func startEngine(t *testing.T, opts player.Options) *player.Engine {
	t.Helper()
	if opts.TickInterval == 0 {
		opts.TickInterval = 5 * time.Millisecond
	}
	e := player.NewEngine(opts)
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		e.Close()
	})
	return e
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
