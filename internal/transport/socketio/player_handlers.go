package socketio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/domain/player"
	"github.com/edumarques81/wavequeue/internal/infra/waveform"
)

// PlayerHandlers maps playback and queue events onto the engine.
type PlayerHandlers struct {
	engine *player.Engine
	server *Server
}

// NewPlayerHandlers creates a new PlayerHandlers instance.
func NewPlayerHandlers(engine *player.Engine, server *Server) *PlayerHandlers {
	return &PlayerHandlers{
		engine: engine,
		server: server,
	}
}

// RegisterHandlers registers the player and queue events for a client.
func (h *PlayerHandlers) RegisterHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	on := func(event string, fn func(args []any) error) {
		client.On(event, func(args ...any) {
			log.Debug().Str("id", clientID).Interface("data", args).Msg(event)
			if err := fn(args); err != nil {
				h.server.fail(client, event, err)
			}
		})
	}

	on("getState", func([]any) error {
		h.server.pushState(client, h.engine.Snapshot())
		return nil
	})
	on("getQueue", func([]any) error {
		h.server.pushQueue(client, h.engine.Snapshot())
		return nil
	})
	on("getWaveform", func(args []any) error {
		return h.handleGetWaveform(client, args)
	})

	on("play", h.handlePlay)
	on("pause", h.simple(h.engine.Pause))
	on("toggle", h.simple(h.engine.TogglePlayPause))
	on("stop", h.simple(h.engine.Stop))
	on("next", h.simple(h.engine.Next))
	on("prev", h.simple(h.engine.Previous))
	on("seek", h.handleSeek)

	on("addToQueue", h.handleAddToQueue)
	on("removeFromQueue", h.handleRemoveFromQueue)
	on("moveQueue", h.handleMoveQueue)
	on("clearQueue", h.simple(h.engine.CleanQueue))
	on("replaceQueue", h.handleReplaceQueue)
}

// simple adapts an engine command without arguments.
func (h *PlayerHandlers) simple(cmd func(context.Context) error) func([]any) error {
	return func([]any) error {
		ctx, cancel := h.server.commandContext()
		defer cancel()
		return cmd(ctx)
	}
}

// handlePlay plays {value: index}, or resumes without an index.
func (h *PlayerHandlers) handlePlay(args []any) error {
	ctx, cancel := h.server.commandContext()
	defer cancel()

	if idx, ok := numberArg(args); ok && idx >= 0 {
		return h.engine.PlayAt(ctx, int(idx))
	}
	return h.engine.Resume(ctx)
}

// handleSeek seeks to a position in milliseconds.
func (h *PlayerHandlers) handleSeek(args []any) error {
	ms, ok := numberArg(args)
	if !ok {
		return fmt.Errorf("%w: seek expects milliseconds", errBadPayload)
	}
	ctx, cancel := h.server.commandContext()
	defer cancel()
	return h.engine.SeekTo(ctx, int64(ms))
}

// handleAddToQueue resolves {id, playNow} through the library and enqueues it.
func (h *PlayerHandlers) handleAddToQueue(args []any) error {
	m := payload(args)
	id, ok := stringField(m, "id")
	if !ok {
		return fmt.Errorf("%w: addToQueue expects an id", errBadPayload)
	}
	lib, err := h.server.requireLibrary()
	if err != nil {
		return err
	}

	ctx, cancel := h.server.commandContext()
	defer cancel()

	track, err := lib.ResolveTrack(ctx, id)
	if err != nil {
		return err
	}
	entry, err := h.engine.Enqueue(ctx, track, boolField(m, "playNow"))
	if err != nil {
		return err
	}
	log.Info().Str("track", track.ID).Str("token", entry.Token).Msg("Added to queue")
	return nil
}

func (h *PlayerHandlers) handleRemoveFromQueue(args []any) error {
	idx, ok := intField(payload(args), "index")
	if !ok {
		return fmt.Errorf("%w: removeFromQueue expects an index", errBadPayload)
	}
	ctx, cancel := h.server.commandContext()
	defer cancel()
	return h.engine.RemoveAt(ctx, idx)
}

func (h *PlayerHandlers) handleMoveQueue(args []any) error {
	m := payload(args)
	from, okFrom := intField(m, "from")
	to, okTo := intField(m, "to")
	if !okFrom || !okTo {
		return fmt.Errorf("%w: moveQueue expects from and to", errBadPayload)
	}
	ctx, cancel := h.server.commandContext()
	defer cancel()
	return h.engine.ReorderQueue(ctx, from, to)
}

// handleReplaceQueue replaces the queue with {ids: [...]}, keeping the
// current entry playing when its track is still listed.
func (h *PlayerHandlers) handleReplaceQueue(args []any) error {
	ids, err := stringsField(payload(args), "ids")
	if err != nil {
		return err
	}
	lib, err := h.server.requireLibrary()
	if err != nil {
		return err
	}

	ctx, cancel := h.server.commandContext()
	defer cancel()

	tracks, err := lib.ResolveTracks(ctx, ids)
	if err != nil {
		return err
	}
	return h.engine.SetQueue(ctx, tracks)
}

// handleGetWaveform pushes the amplitudes of the current track, downsampled
// when {spikes: n, kind: "avg"|"max"|"min"} is given.
func (h *PlayerHandlers) handleGetWaveform(client *socket.Socket, args []any) error {
	snap := h.engine.Snapshot()
	out := waveformPayload(snap)

	spikes, err := waveformSpikes(snap, payload(args))
	if err != nil {
		return err
	}
	if spikes != nil {
		out["spikes"] = spikes
	}

	client.Emit("pushWaveform", out)
	return nil
}

// waveformSpikes downsamples snap's amplitudes as requested by m. It
// returns nil when no spikes were asked for.
func waveformSpikes(snap player.Snapshot, m map[string]interface{}) ([]int, error) {
	n, ok := intField(m, "spikes")
	if !ok || n <= 0 {
		return nil, nil
	}
	if n > waveform.MaxSpikes {
		return nil, fmt.Errorf("%w: spikes must be at most %d", errBadPayload, waveform.MaxSpikes)
	}

	kind := waveform.Max
	if name, ok := stringField(m, "kind"); ok {
		k, err := waveform.ParseAmplitudeType(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		kind = k
	}
	return waveform.Spikes(snap.Amplitudes, n, kind, waveform.DefaultScale), nil
}

// fail reports a failed client request back to that client.
func (s *Server) fail(client *socket.Socket, event string, err error) {
	kind := "error"
	switch {
	case errors.Is(err, player.ErrNoNext), errors.Is(err, player.ErrNoPrevious),
		errors.Is(err, errBadPayload), errors.Is(err, player.ErrIndexOutOfRange):
		kind = "warning"
		log.Debug().Err(err).Str("event", event).Msg("Request rejected")
	case errors.Is(err, library.ErrNotFound):
		kind = "warning"
		log.Warn().Err(err).Str("event", event).Msg("Track not found")
	default:
		log.Error().Err(err).Str("event", event).Msg("Request failed")
	}
	client.Emit("pushToast", toast(kind, event, err.Error()))
}
