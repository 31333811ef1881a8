package socketio

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/infra/cache"
)

var errNoLibrary = errors.New("no library configured")

// LibraryHandlers contains Socket.IO handlers for library operations.
type LibraryHandlers struct {
	libraryService *library.Service
	server         *Server
}

// NewLibraryHandlers creates a new LibraryHandlers instance.
func NewLibraryHandlers(libraryService *library.Service, server *Server) *LibraryHandlers {
	return &LibraryHandlers{
		libraryService: libraryService,
		server:         server,
	}
}

// RegisterHandlers registers all library-related Socket.IO handlers.
func (h *LibraryHandlers) RegisterHandlers(client *socket.Socket) {
	client.On("getLibrary", func(args ...interface{}) {
		h.handleGetLibrary(client, args...)
	})

	client.On("rescanLibrary", func(args ...interface{}) {
		h.handleRescan(client)
	})

	client.On("getCacheStatus", func(args ...interface{}) {
		h.handleCacheStatus(client)
	})
}

// handleGetLibrary handles getLibrary with an optional {query, page, limit}.
func (h *LibraryHandlers) handleGetLibrary(client *socket.Socket, args ...interface{}) {
	log.Debug().Msg("Received getLibrary")

	query := ""
	page, limit := 1, 0
	if m := payload(args); m != nil {
		query, _ = stringField(m, "query")
		if p, ok := intField(m, "page"); ok {
			page = p
		}
		if l, ok := intField(m, "limit"); ok {
			limit = l
		}
	}

	ctx, cancel := h.server.commandContext()
	defer cancel()

	resp, err := h.page(ctx, query, page, limit)
	if err != nil {
		h.server.fail(client, "getLibrary", err)
		return
	}
	client.Emit("pushLibrary", resp)
}

// page returns one page of matching tracks with its pagination block.
func (h *LibraryHandlers) page(ctx context.Context, query string, page, limit int) (map[string]interface{}, error) {
	if h.libraryService == nil {
		return nil, errNoLibrary
	}

	tracks, total, err := h.libraryService.Search(ctx, query, page, limit)
	if err != nil {
		return nil, err
	}

	pag := cache.NewPagination(page, limit)
	log.Debug().
		Str("query", query).
		Int("trackCount", len(tracks)).
		Int("total", total).
		Msg("Sending pushLibrary")

	return map[string]interface{}{
		"query":  query,
		"tracks": tracks,
		"pagination": map[string]interface{}{
			"page":  pag.Page,
			"limit": pag.Limit,
			"total": total,
		},
	}, nil
}

// handleRescan rebuilds the library in the background. Every client gets the
// new first page through the refresh listener.
func (h *LibraryHandlers) handleRescan(client *socket.Socket) {
	log.Info().Str("id", string(client.Id())).Msg("Received rescanLibrary")

	if h.libraryService == nil {
		h.server.fail(client, "rescanLibrary", errNoLibrary)
		return
	}

	go func() {
		count, err := h.libraryService.Refresh(context.Background())
		if err != nil {
			h.server.fail(client, "rescanLibrary", err)
			return
		}
		client.Emit("pushToast", toast("success", "Library", "Library rescanned"))
		log.Info().Int("tracks", count).Msg("Library rescan complete")
	}()
}

// handleCacheStatus reports the snapshot cache statistics.
func (h *LibraryHandlers) handleCacheStatus(client *socket.Socket) {
	if h.libraryService == nil {
		h.server.fail(client, "getCacheStatus", errNoLibrary)
		return
	}

	stats, err := h.libraryService.GetCacheStatus()
	if err != nil {
		if errors.Is(err, cache.ErrNotOpen) {
			client.Emit("pushCacheStatus", map[string]interface{}{"enabled": false})
			return
		}
		h.server.fail(client, "getCacheStatus", err)
		return
	}
	client.Emit("pushCacheStatus", map[string]interface{}{
		"enabled": true,
		"stats":   stats,
	})
}

// requireLibrary returns the library service or errNoLibrary.
func (s *Server) requireLibrary() (*library.Service, error) {
	if s.library == nil {
		return nil, errNoLibrary
	}
	return s.library, nil
}
