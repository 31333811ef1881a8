package socketio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// stillTransport never advances, so the engine only publishes on commands.
type stillTransport struct {
	mu      sync.Mutex
	playing bool
}

func (t *stillTransport) Start() error          { t.set(true); return nil }
func (t *stillTransport) Pause() error          { t.set(false); return nil }
func (t *stillTransport) Stop() error           { t.set(false); return nil }
func (t *stillTransport) SeekTo(int64) error    { return nil }
func (t *stillTransport) PositionMillis() int64 { return 0 }
func (t *stillTransport) DurationMillis() int64 { return 180000 }

func (t *stillTransport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *stillTransport) set(p bool) {
	t.mu.Lock()
	t.playing = p
	t.mu.Unlock()
}

type stillFactory struct{}

func (stillFactory) Load(ctx context.Context, track player.Track, onComplete func()) (player.Transport, error) {
	return &stillTransport{}, nil
}

func newTestServer(t *testing.T) (*Server, *player.Engine) {
	t.Helper()

	engine := player.NewEngine(player.Options{Factory: stillFactory{}})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx)
	}()

	s, err := NewServer(engine, nil, Options{ProgressWindow: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		cancel()
		<-done
	})
	return s, engine
}

func TestNewServerDefaults(t *testing.T) {
	engine := player.NewEngine(player.Options{Factory: stillFactory{}})
	s, err := NewServer(engine, nil, Options{})
	if err != nil {
		t.Fatalf("NewServer should not return error: %v", err)
	}
	defer s.Close()

	if s.opts.ProgressWindow != DefaultProgressWindow {
		t.Errorf("expected default progress window, got %v", s.opts.ProgressWindow)
	}
	if s.opts.CommandTimeout != DefaultCommandTimeout {
		t.Errorf("expected default command timeout, got %v", s.opts.CommandTimeout)
	}
	if s.ClientCount() != 0 {
		t.Errorf("expected no clients, got %d", s.ClientCount())
	}
}

func TestServerBroadcastsWithoutClients(t *testing.T) {
	s, _ := newTestServer(t)

	// Smoke test: none of these may panic with nobody connected.
	s.BroadcastState()
	s.BroadcastQueue()
	s.BroadcastLibrary()
	s.BroadcastToast("info", "title", "message")
}

func TestRequireLibraryWithoutService(t *testing.T) {
	s, _ := newTestServer(t)

	if _, err := s.requireLibrary(); !errors.Is(err, errNoLibrary) {
		t.Errorf("expected errNoLibrary, got %v", err)
	}
	if _, err := s.lib.page(context.Background(), "", 1, 10); !errors.Is(err, errNoLibrary) {
		t.Errorf("expected errNoLibrary from page, got %v", err)
	}
}

func TestHandleUpdateRouting(t *testing.T) {
	tests := []struct {
		name        string
		changed     player.Field
		wantPending player.Field
	}{
		{"progress is debounced", player.FieldProgress | player.FieldPosition, player.FieldProgress | player.FieldPosition},
		{"current is immediate", player.FieldCurrent | player.FieldProgress, 0},
		{"queue is immediate", player.FieldQueue, 0},
		{"waveform only", player.FieldAmplitudes, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, engine := newTestServer(t)
			d := NewBroadcastDebouncer(time.Hour, func(player.Field) {})
			defer d.Stop()

			s.handleUpdate(player.Update{Changed: tt.changed, Snapshot: engine.Snapshot()}, d)

			if got := d.Pending(); got != tt.wantPending {
				t.Errorf("expected pending %s, got %s", tt.wantPending, got)
			}
		})
	}
}

func TestEngineWatcherTracksState(t *testing.T) {
	s, engine := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartEngineWatcher(ctx)

	track := player.Track{ID: "t1", Title: "Blue", Artist: "Joni Mitchell", AudioSource: "Joni/Blue.flac"}
	if _, err := engine.Enqueue(context.Background(), track, true); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.stateMu.Lock()
		id := s.lastState["trackId"]
		status := s.lastState["status"]
		s.stateMu.Unlock()
		if id == "t1" && status == player.StatusPlay {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("broadcast state never reached the new track: trackId=%v status=%v", id, status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWaveformPayload(t *testing.T) {
	empty := waveformPayload(player.Snapshot{Amplitudes: []int{}})
	if empty["token"] != "" || empty["trackId"] != "" {
		t.Errorf("expected blank ids without a current entry, got %v", empty)
	}

	entry := player.NewEntry(player.Track{ID: "t1"})
	p := waveformPayload(player.Snapshot{Current: &entry, Amplitudes: []int{1, 2, 3}})
	if p["token"] != entry.Token || p["trackId"] != "t1" {
		t.Errorf("unexpected ids in %v", p)
	}
	if amps, ok := p["amplitudes"].([]int); !ok || len(amps) != 3 {
		t.Errorf("unexpected amplitudes %v", p["amplitudes"])
	}
}
