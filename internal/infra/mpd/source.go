package mpd

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/domain/library"
	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// Database is the part of the MPD protocol a Source reads.
type Database interface {
	ListAllInfo(uri string) ([]mpd.Attrs, error)
	FindFile(uri string) ([]mpd.Attrs, error)
}

// Source lists the songs in the MPD database. Audio is read from the MPD
// music directory on the local filesystem.
type Source struct {
	db    Database
	files *library.FilesystemSource // nil when the music dir is unknown

	mu    sync.RWMutex
	index map[string]player.Track
}

// NewSource creates a source. musicDir is MPD's music_directory; it may be
// empty, in which case tracks can be listed but not opened.
func NewSource(db Database, musicDir string) *Source {
	s := &Source{db: db}
	if musicDir != "" {
		s.files = library.NewFilesystemSource(musicDir, nil)
	}
	return s
}

// ListTracks returns every song in the database.
func (s *Source) ListTracks(ctx context.Context) ([]player.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	attrs, err := s.db.ListAllInfo("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", library.ErrScan, err)
	}

	tracks := make([]player.Track, 0, len(attrs))
	index := make(map[string]player.Track, len(attrs))
	for _, a := range attrs {
		// Directory entries carry "directory" instead of "file".
		if a["file"] == "" {
			continue
		}
		t := TrackFromAttrs(a)
		tracks = append(tracks, t)
		index[t.ID] = t
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	log.Info().Int("tracks", len(tracks)).Msg("MPD database listed")
	return tracks, nil
}

// ResolveTrack accepts a track ID or an MPD file URI.
func (s *Source) ResolveTrack(ctx context.Context, id string) (player.Track, error) {
	if t, ok := s.lookup(id); ok {
		return t, nil
	}

	if strings.Contains(id, "/") || path.Ext(id) != "" {
		attrs, err := s.db.FindFile(id)
		if err == nil && len(attrs) > 0 {
			return TrackFromAttrs(attrs[0]), nil
		}
	}

	if _, err := s.ListTracks(ctx); err != nil {
		return player.Track{}, err
	}
	if t, ok := s.lookup(id); ok {
		return t, nil
	}
	return player.Track{}, fmt.Errorf("%w: %s", library.ErrNotFound, id)
}

func (s *Source) lookup(id string) (player.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.index[id]
	return t, ok
}

// OpenAudioStream opens the song's file under the music directory.
func (s *Source) OpenAudioStream(ctx context.Context, track player.Track) (io.ReadCloser, error) {
	if s.files == nil {
		return nil, fmt.Errorf("%w: MPD music directory not configured", library.ErrNotFound)
	}
	return s.files.OpenAudioStream(ctx, track)
}

// TrackFromAttrs maps an MPD song entry to a Track.
func TrackFromAttrs(a mpd.Attrs) player.Track {
	file := a["file"]

	title := a["Title"]
	if title == "" {
		base := path.Base(file)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	artist := a["Artist"]
	if artist == "" {
		artist = a["AlbumArtist"]
	}
	if artist == "" {
		artist = library.UnknownArtist
	}

	return player.Track{
		ID:             library.TrackID(file),
		Title:          title,
		Artist:         artist,
		AudioSource:    file,
		ArtworkSource:  library.ArtworkURL(file),
		DurationMillis: durationMillis(a),
	}
}

// durationMillis prefers the fractional "duration" over the older "Time".
func durationMillis(a mpd.Attrs) int64 {
	if d := a["duration"]; d != "" {
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			return int64(math.Round(secs * 1000))
		}
	}
	if t := a["Time"]; t != "" {
		if secs, err := strconv.Atoi(t); err == nil {
			return int64(secs) * 1000
		}
	}
	return 0
}
