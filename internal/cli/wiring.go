package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/audio"
	"github.com/edumarques81/wavequeue/internal/config"
	"github.com/edumarques81/wavequeue/internal/domain/artwork"
	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/infra/cache"
	"github.com/edumarques81/wavequeue/internal/infra/mpd"
)

// stack holds the library collaborators built from the config.
type stack struct {
	service   *library.Service
	files     *library.FilesystemSource // nil for an MPD library without a music dir
	mpdClient *mpd.Client               // nil for a filesystem library
	cacheDB   *cache.DB
	artwork   *artwork.Resolver
	thumbs    *artwork.ThumbnailGenerator
}

// buildLibrary opens the configured source and snapshot cache.
func buildLibrary(cfg *config.Config) (*stack, error) {
	st := &stack{}

	var lib library.Library
	var providers []artwork.Provider

	switch cfg.Library.Source {
	case config.SourceMPD:
		client := mpd.NewClient(cfg.MPD.Host, cfg.MPD.Port, cfg.MPD.Password)
		if err := client.Connect(); err != nil {
			return nil, err
		}
		st.mpdClient = client
		lib = mpd.NewSource(client, cfg.MPD.MusicDir)
		if cfg.MPD.MusicDir != "" {
			st.files = library.NewFilesystemSource(cfg.MPD.MusicDir, audio.ProbeDuration)
			providers = append(providers, st.files.Finder())
		}
		providers = append(providers, client)
	default:
		st.files = library.NewFilesystemSource(cfg.Library.MusicDir, audio.ProbeDuration)
		lib = st.files
		providers = append(providers, st.files.Finder())
	}

	if cfg.Library.CacheDB != "" {
		db := cache.NewDB(cfg.Library.CacheDB)
		if err := db.Open(); err != nil {
			st.close()
			return nil, fmt.Errorf("open library cache: %w", err)
		}
		st.cacheDB = db
	}

	st.service = library.NewService(lib, st.cacheDB)
	st.artwork = artwork.NewResolver(cfg.Library.ArtworkDir, providers...)
	st.thumbs = artwork.NewThumbnailGenerator(cfg.Library.ArtworkDir)

	log.Info().
		Str("source", cfg.Library.Source).
		Bool("cache", st.cacheDB != nil).
		Msg("Library ready")
	return st, nil
}

func (st *stack) close() {
	if st.cacheDB != nil {
		if err := st.cacheDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close library cache")
		}
	}
	if st.mpdClient != nil {
		st.mpdClient.Close()
	}
}
