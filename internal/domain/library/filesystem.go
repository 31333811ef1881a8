package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/audio"
	"github.com/edumarques81/wavequeue/internal/domain/artwork"
	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// DurationProbe reports the duration of an audio file in milliseconds.
type DurationProbe func(path string) (int64, error)

// FilesystemSource serves the audio files found under a music directory.
// Track audio sources are slash-separated paths relative to that directory.
type FilesystemSource struct {
	root   string
	finder *artwork.FilesystemFinder
	probe  DurationProbe

	mu    sync.RWMutex
	index map[string]player.Track
}

// NewFilesystemSource creates a source rooted at musicDir. probe may be nil,
// in which case durations are left at 0.
func NewFilesystemSource(musicDir string, probe DurationProbe) *FilesystemSource {
	return &FilesystemSource{
		root:   musicDir,
		finder: artwork.NewFilesystemFinder(musicDir),
		probe:  probe,
	}
}

// Root returns the music directory.
func (s *FilesystemSource) Root() string {
	return s.root
}

// Finder returns the artwork finder for this directory.
func (s *FilesystemSource) Finder() *artwork.FilesystemFinder {
	return s.finder
}

type scanned struct {
	track   player.Track
	modTime time.Time
}

// ListTracks walks the music directory, newest files first.
func (s *FilesystemSource) ListTracks(ctx context.Context) ([]player.Track, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrScan, s.root)
	}

	var found []scanned
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == s.root {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := d.Name()
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, "._") || !audio.IsAudioFile(name) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		var modTime time.Time
		if fi, err := d.Info(); err == nil {
			modTime = fi.ModTime()
		}
		found = append(found, scanned{track: s.trackFor(filepath.ToSlash(rel)), modTime: modTime})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return found[i].track.AudioSource < found[j].track.AudioSource
	})

	tracks := make([]player.Track, len(found))
	index := make(map[string]player.Track, len(found))
	for i, f := range found {
		tracks[i] = f.track
		index[f.track.ID] = f.track
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	log.Info().Str("root", s.root).Int("tracks", len(tracks)).Msg("Music directory scanned")
	return tracks, nil
}

// ResolveTrack returns the track with id, rescanning once on a miss.
func (s *FilesystemSource) ResolveTrack(ctx context.Context, id string) (player.Track, error) {
	if t, ok := s.lookup(id); ok {
		return t, nil
	}
	if _, err := s.ListTracks(ctx); err != nil {
		return player.Track{}, err
	}
	if t, ok := s.lookup(id); ok {
		return t, nil
	}
	return player.Track{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *FilesystemSource) lookup(id string) (player.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.index[id]
	return t, ok
}

func (s *FilesystemSource) trackFor(rel string) player.Track {
	base := filepath.Base(rel)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	artist := UnknownArtist
	if dir := filepath.Dir(filepath.FromSlash(rel)); dir != "." {
		artist = filepath.Base(dir)
	}

	t := player.Track{
		ID:          TrackID(rel),
		Title:       title,
		Artist:      artist,
		AudioSource: rel,
	}

	if s.probe != nil {
		if ms, err := s.probe(filepath.Join(s.root, filepath.FromSlash(rel))); err == nil {
			t.DurationMillis = ms
		} else {
			log.Debug().Err(err).Str("path", rel).Msg("Duration probe failed")
		}
	}
	if art, _ := s.finder.FindArtwork(filepath.FromSlash(rel)); art != "" {
		t.ArtworkSource = ArtworkURL(rel)
	}
	return t
}

// Resolve maps an audio source to a file path under the music directory.
func (s *FilesystemSource) Resolve(audioSource string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}

	p := filepath.FromSlash(audioSource)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the music directory", ErrNotFound, audioSource)
	}
	return p, nil
}

// OpenAudioStream opens the track's file.
func (s *FilesystemSource) OpenAudioStream(ctx context.Context, track player.Track) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Resolve(track.AudioSource)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, track.AudioSource)
		}
		return nil, err
	}
	return f, nil
}
