// Package socketio pushes engine state to Socket.io clients and maps client
// events onto engine and library commands.
package socketio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// Defaults for Options.
const (
	DefaultProgressWindow     = time.Second
	DefaultCommandTimeout     = 10 * time.Second
	DefaultMaxExternalClients = 4
)

// Options configures a Server.
type Options struct {
	// ProgressWindow coalesces progress-only updates into one broadcast.
	ProgressWindow time.Duration
	// CommandTimeout bounds every engine or library call made for a client.
	CommandTimeout time.Duration
	// MaxExternalClients caps non-loopback connections; the oldest is evicted.
	MaxExternalClients int
}

// Server handles Socket.io connections and events.
type Server struct {
	io      *socket.Server
	engine  *player.Engine
	library *library.Service
	limiter *ConnectionLimiter
	opts    Options

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	stateMu   sync.Mutex
	lastState map[string]interface{}

	player *PlayerHandlers
	lib    *LibraryHandlers
}

// NewServer creates a new Socket.io server. lib may be nil, in which case
// library events answer with an error toast.
func NewServer(engine *player.Engine, lib *library.Service, opts Options) (*Server, error) {
	if opts.ProgressWindow <= 0 {
		opts.ProgressWindow = DefaultProgressWindow
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.MaxExternalClients <= 0 {
		opts.MaxExternalClients = DefaultMaxExternalClients
	}

	ioOpts := socket.DefaultServerOptions()
	ioOpts.SetPingTimeout(20 * time.Second)
	ioOpts.SetPingInterval(25 * time.Second)
	ioOpts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	s := &Server{
		io:      socket.NewServer(nil, ioOpts),
		engine:  engine,
		library: lib,
		limiter: NewConnectionLimiter(opts.MaxExternalClients),
		opts:    opts,
		clients: make(map[string]*socket.Socket),
	}
	s.player = NewPlayerHandlers(engine, s)
	s.lib = NewLibraryHandlers(lib, s)

	if lib != nil {
		lib.OnRefresh(func(count int) {
			log.Info().Int("tracks", count).Msg("Library refreshed, notifying clients")
			s.BroadcastLibrary()
		})
	}

	s.setupHandlers()
	return s, nil
}

// setupHandlers registers the connection handler.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remote := client.Handshake().Address

		allowed, evicted := s.limiter.TryAdd(clientID, remote)
		if !allowed {
			log.Warn().Str("id", clientID).Str("remote", remote).Msg("Connection rejected")
			client.Disconnect(true)
			return
		}
		if evicted != "" {
			s.evict(evicted)
		}

		log.Info().Str("id", clientID).Str("remote", remote).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			snap := s.engine.Snapshot()
			s.pushState(client, snap)
			s.pushQueue(client, snap)
			if len(snap.Amplitudes) > 0 {
				s.pushWaveform(client, snap)
			}
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.limiter.Remove(clientID)
			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()
		})

		s.player.RegisterHandlers(client)
		s.lib.RegisterHandlers(client)
		s.registerSystemHandlers(client)
	})
}

// evict disconnects a client pushed out by the connection limiter.
func (s *Server) evict(clientID string) {
	s.mu.Lock()
	client, ok := s.clients[clientID]
	delete(s.clients, clientID)
	s.mu.Unlock()

	if !ok {
		return
	}
	log.Info().Str("id", clientID).Msg("Evicting oldest external client")
	client.Emit("pushToast", toast("warning", "Disconnected", "Too many connected devices"))
	client.Disconnect(true)
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// commandContext bounds a single client request.
func (s *Server) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opts.CommandTimeout)
}

func (s *Server) pushState(client *socket.Socket, snap player.Snapshot) {
	client.Emit("pushState", snap.ToJSON())
}

func (s *Server) pushQueue(client *socket.Socket, snap player.Snapshot) {
	client.Emit("pushQueue", snap.QueueToJSON())
}

func (s *Server) pushWaveform(client *socket.Socket, snap player.Snapshot) {
	client.Emit("pushWaveform", waveformPayload(snap))
}

// BroadcastState sends the current snapshot to all clients.
func (s *Server) BroadcastState() {
	s.broadcastState(s.engine.Snapshot(), true)
}

// broadcastState emits state unless force is false and nothing a client
// cannot interpolate has changed since the last broadcast.
func (s *Server) broadcastState(snap player.Snapshot, force bool) {
	state := snap.ToJSON()
	if !force && s.isStateSame(state) {
		return
	}
	s.saveLastState(state)

	s.io.Emit("pushState", state)

	if log.Debug().Enabled() {
		data, _ := json.Marshal(state)
		log.Debug().RawJSON("state", data).Int("clients", s.ClientCount()).Msg("Broadcast state")
	}
}

// BroadcastQueue sends the current queue to all clients.
func (s *Server) BroadcastQueue() {
	s.io.Emit("pushQueue", s.engine.Snapshot().QueueToJSON())
}

func (s *Server) broadcastWaveform(snap player.Snapshot) {
	s.io.Emit("pushWaveform", waveformPayload(snap))
}

// BroadcastLibrary sends the first library page to all clients.
func (s *Server) BroadcastLibrary() {
	if s.library == nil {
		return
	}
	ctx, cancel := s.commandContext()
	defer cancel()

	payload, err := s.lib.page(ctx, "", 1, 0)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list library for broadcast")
		return
	}
	s.io.Emit("pushLibrary", payload)
}

// BroadcastToast sends a notification to all clients.
func (s *Server) BroadcastToast(kind, title, message string) {
	s.io.Emit("pushToast", toast(kind, title, message))
}

// StartEngineWatcher subscribes to the engine and broadcasts its updates
// until ctx is cancelled or the engine closes.
func (s *Server) StartEngineWatcher(ctx context.Context) {
	sub := s.engine.Subscribe(player.FieldAll)
	debouncer := NewBroadcastDebouncer(s.opts.ProgressWindow, func(player.Field) {
		s.broadcastState(s.engine.Snapshot(), true)
	})

	go func() {
		defer debouncer.Stop()
		defer sub.Close()

		log.Info().Dur("progressWindow", s.opts.ProgressWindow).Msg("Engine watcher started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("Engine watcher stopped")
				return
			case u, ok := <-sub.C:
				if !ok {
					log.Warn().Msg("Engine subscription closed")
					return
				}
				s.handleUpdate(u, debouncer)
			}
		}
	}()
}

// immediateFields are broadcast as soon as they change.
const immediateFields = player.FieldCurrent | player.FieldPlaying | player.FieldDuration |
	player.FieldCanPlayNext | player.FieldCanPlayPrevious | player.FieldQueue

func (s *Server) handleUpdate(u player.Update, debouncer *BroadcastDebouncer) {
	log.Debug().Stringer("changed", u.Changed).Uint64("seq", u.Snapshot.Seq).Msg("Engine update")

	if u.Changed.Has(player.FieldError) && u.Err != nil {
		s.BroadcastToast("error", "Playback error", u.Err.Error())
	}
	if u.Changed.Has(player.FieldQueue) {
		s.io.Emit("pushQueue", u.Snapshot.QueueToJSON())
	}
	if u.Changed.Has(player.FieldAmplitudes) {
		s.broadcastWaveform(u.Snapshot)
	}

	switch {
	case u.Changed.Has(immediateFields):
		s.broadcastState(u.Snapshot, false)
	case u.Changed.Has(player.FieldProgress | player.FieldPosition):
		debouncer.Trigger(u.Changed)
	}
}

// stateCompareKeys are the pushState fields that trigger a broadcast.
// Seek and progress are left out; clients interpolate them between pushes.
var stateCompareKeys = []string{
	"status", "position", "token", "trackId", "title", "artist", "uri",
	"albumart", "duration", "canPlayNext", "canPlayPrevious", "queueLength",
}

func (s *Server) saveLastState(state map[string]interface{}) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.lastState = state
}

func (s *Server) isStateSame(state map[string]interface{}) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if s.lastState == nil {
		return false
	}
	for _, key := range stateCompareKeys {
		if s.lastState[key] != state[key] {
			return false
		}
	}
	return true
}

func waveformPayload(snap player.Snapshot) map[string]interface{} {
	payload := map[string]interface{}{
		"token":      "",
		"trackId":    "",
		"amplitudes": snap.Amplitudes,
	}
	if snap.Current != nil {
		payload["token"] = snap.Current.Token
		payload["trackId"] = snap.Current.Track.ID
	}
	return payload
}

func toast(kind, title, message string) map[string]interface{} {
	return map[string]interface{}{
		"type":    kind,
		"title":   title,
		"message": message,
	}
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close closes the Socket.io server.
func (s *Server) Close() error {
	s.io.Close(nil)
	return nil
}
