package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/audio"
	"github.com/edumarques81/wavequeue/internal/domain/artwork"
	"github.com/edumarques81/wavequeue/internal/domain/player"
	"github.com/edumarques81/wavequeue/internal/version"
)

// api serves the plain HTTP routes next to the Socket.io endpoint.
type api struct {
	engine    *player.Engine
	artwork   *artwork.Resolver
	thumbs    *artwork.ThumbnailGenerator
	audio     *audio.Controller // optional
	health    func() error      // optional
	socket    http.Handler      // optional
	staticDir string
}

// routes builds the mux, wrapped in the CORS middleware.
func (a *api) routes() http.Handler {
	mux := http.NewServeMux()

	if a.socket != nil {
		mux.Handle("/socket.io/", a.socket)
	}
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/api/v1/version", a.handleVersion)
	mux.HandleFunc("/api/v1/getState", a.handleGetState)
	mux.HandleFunc("/api/v1/getQueue", a.handleGetQueue)
	if a.audio != nil {
		mux.HandleFunc("/api/v1/audio", a.handleAudioStatus)
	}
	mux.HandleFunc("/albumart", a.handleAlbumArt)

	// Serve static files if directory specified (SPA mode)
	if a.staticDir != "" {
		log.Info().Str("dir", a.staticDir).Msg("Serving static files")
		mux.Handle("/", spaHandler(a.staticDir))
	}

	return corsMiddleware(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *api) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Snapshot().ToJSON())
}

func (a *api) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Snapshot().QueueToJSON())
}

func (a *api) handleAudioStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.audio.GetStatus())
}

// handleAlbumArt serves artwork for ?path=<audio source>, optionally scaled
// with size=small|medium|large.
func (a *api) handleAlbumArt(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "path parameter required", http.StatusBadRequest)
		return
	}
	size, err := artwork.ParseThumbnailSize(r.URL.Query().Get("size"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := a.artwork.Resolve(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Artwork resolution failed")
		http.Error(w, "album art unavailable", http.StatusInternalServerError)
		return
	}
	if result.Placeholder() {
		log.Debug().Str("path", path).Msg("Album art not found")
		http.Error(w, "album art not found", http.StatusNotFound)
		return
	}

	file, mime := result.FilePath, result.MimeType
	if size > 0 && a.thumbs != nil {
		thumb, err := a.thumbs.GenerateThumbnail(result.FilePath, artwork.ArtworkID(path), size)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Thumbnail failed, serving original")
		} else {
			file, mime = thumb, "image/jpeg"
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "album art unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400") // Cache for 1 day
	w.Write(data)
}

// spaHandler serves files from dir and falls back to index.html for
// unknown paths.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := filepath.FromSlash(strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/"))
		if _, err := os.Stat(filepath.Join(dir, rel)); errors.Is(err, os.ErrNotExist) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
