package library

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/edumarques81/wavequeue/internal/domain/player"
	"github.com/edumarques81/wavequeue/internal/infra/cache"
)

// Service is the library facade used by the engine and the socket server.
// With a cache, reads are served from the last snapshot and Refresh
// rebuilds it; without one every read goes to the source.
type Service struct {
	source Source
	opener player.StreamOpener

	cacheDB      *cache.DB
	cacheDAO     *cache.DAO
	cacheBuilder *cache.Builder

	refreshMu sync.Mutex

	mu        sync.Mutex
	listeners []func(count int)
}

// NewService creates a library service. cacheDB may be nil.
func NewService(lib Library, cacheDB *cache.DB) *Service {
	s := &Service{
		source: lib,
		opener: lib,
	}
	if cacheDB == nil {
		return s
	}

	s.cacheDB = cacheDB
	s.cacheDAO = cache.NewDAO(cacheDB)
	s.cacheBuilder = cache.NewBuilder(cacheDB, cache.TrackProviderFunc(s.provideTracks))
	return s
}

// IsCacheEnabled reports whether reads go through the snapshot cache.
func (s *Service) IsCacheEnabled() bool {
	return s.cacheDB != nil
}

// OnRefresh registers fn to run after each successful Refresh.
func (s *Service) OnRefresh(fn func(count int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Refresh rescans the source. With a cache the snapshot is replaced
// atomically; on failure the previous snapshot stays.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	var (
		n   int
		err error
	)
	if s.cacheBuilder != nil {
		n, err = s.cacheBuilder.FullBuild(ctx)
	} else {
		var tracks []player.Track
		tracks, err = s.source.ListTracks(ctx)
		n = len(tracks)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Library refresh failed")
		return 0, err
	}

	s.mu.Lock()
	listeners := append([]func(int){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
	return n, nil
}

func (s *Service) provideTracks(ctx context.Context) ([]cache.TrackData, error) {
	tracks, err := s.source.ListTracks(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(tracks, func(t player.Track, _ int) cache.TrackData {
		return cache.TrackData{
			ID:             t.ID,
			Title:          t.Title,
			Artist:         t.Artist,
			AudioSource:    t.AudioSource,
			ArtworkSource:  t.ArtworkSource,
			DurationMillis: t.DurationMillis,
		}
	}), nil
}

// cached returns the snapshot, or nil when there is no usable cache.
func (s *Service) cached() []player.Track {
	if s.cacheDAO == nil {
		return nil
	}
	rows, err := s.cacheDAO.ListTracks()
	if err != nil {
		log.Warn().Err(err).Msg("Cache read failed, falling back to source")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return lo.Map(rows, func(c *cache.CachedTrack, _ int) player.Track { return fromCache(c) })
}

// ListTracks returns every track, from the cache when it is populated.
func (s *Service) ListTracks(ctx context.Context) ([]player.Track, error) {
	if tracks := s.cached(); tracks != nil {
		return tracks, nil
	}
	log.Debug().Msg("Cache empty, listing source")
	return s.source.ListTracks(ctx)
}

// Search returns one page of tracks whose title or artist contains query,
// plus the total number of matches.
func (s *Service) Search(ctx context.Context, query string, page, limit int) ([]player.Track, int, error) {
	pag := cache.NewPagination(page, limit)

	if s.cacheDAO != nil {
		if stats, err := s.cacheDB.GetStats(); err == nil && stats.TrackCount > 0 {
			rows, total, err := s.cacheDAO.QueryTracks(query, pag)
			if err == nil {
				return lo.Map(rows, func(c *cache.CachedTrack, _ int) player.Track { return fromCache(c) }), total, nil
			}
			log.Warn().Err(err).Msg("Cache query failed, falling back to source")
		}
	}

	tracks, err := s.source.ListTracks(ctx)
	if err != nil {
		return nil, 0, err
	}
	if q := strings.ToLower(query); q != "" {
		tracks = lo.Filter(tracks, func(t player.Track, _ int) bool {
			return strings.Contains(strings.ToLower(t.Title), q) ||
				strings.Contains(strings.ToLower(t.Artist), q)
		})
	}
	total := len(tracks)
	if pag.Offset >= total {
		return []player.Track{}, total, nil
	}
	return tracks[pag.Offset:min(total, pag.Offset+pag.Limit)], total, nil
}

// ResolveTrack looks id up in the cache, then in the source.
func (s *Service) ResolveTrack(ctx context.Context, id string) (player.Track, error) {
	if s.cacheDAO != nil {
		if c, err := s.cacheDAO.GetTrack(id); err == nil && c != nil {
			return fromCache(c), nil
		}
	}
	return s.source.ResolveTrack(ctx, id)
}

// ResolveTracks resolves ids in order and fails on the first missing one.
func (s *Service) ResolveTracks(ctx context.Context, ids []string) ([]player.Track, error) {
	tracks := make([]player.Track, 0, len(ids))
	for _, id := range ids {
		t, err := s.ResolveTrack(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", id, err)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// OpenAudioStream opens the track's audio through the source.
func (s *Service) OpenAudioStream(ctx context.Context, track player.Track) (io.ReadCloser, error) {
	return s.opener.OpenAudioStream(ctx, track)
}

// GetCacheStatus returns cache statistics.
func (s *Service) GetCacheStatus() (*cache.CacheStats, error) {
	if s.cacheDB == nil {
		return nil, cache.ErrNotOpen
	}
	return s.cacheDB.GetStats()
}

func fromCache(c *cache.CachedTrack) player.Track {
	return player.Track{
		ID:             c.ID,
		Title:          c.Title,
		Artist:         c.Artist,
		AudioSource:    c.AudioSource,
		ArtworkSource:  c.ArtworkSource,
		DurationMillis: c.DurationMillis,
	}
}
