package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// TrackData is a track as reported by a library source.
type TrackData struct {
	ID             string
	Title          string
	Artist         string
	AudioSource    string
	ArtworkSource  string
	DurationMillis int64
}

// TrackProvider supplies the full track list for a build.
type TrackProvider interface {
	ProvideTracks(ctx context.Context) ([]TrackData, error)
}

// TrackProviderFunc adapts a function to TrackProvider.
type TrackProviderFunc func(ctx context.Context) ([]TrackData, error)

// ProvideTracks calls f.
func (f TrackProviderFunc) ProvideTracks(ctx context.Context) ([]TrackData, error) {
	return f(ctx)
}

// Builder rebuilds the cache from a track provider.
type Builder struct {
	db       *DB
	dao      *DAO
	provider TrackProvider
}

// NewBuilder creates a new cache builder.
func NewBuilder(db *DB, provider TrackProvider) *Builder {
	return &Builder{
		db:       db,
		dao:      NewDAO(db),
		provider: provider,
	}
}

// FullBuild replaces the cached snapshot with the provider's current tracks.
// On failure the previous snapshot is left intact.
func (b *Builder) FullBuild(ctx context.Context) (int, error) {
	startTime := time.Now()
	log.Info().Msg("Starting full cache build")

	b.db.SetBuildingState(true, 0)
	defer b.db.SetBuildingState(false, 100)

	data, err := b.provider.ProvideTracks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tracks: %w", err)
	}
	b.db.SetBuildingState(true, 50)

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	tracks := make([]*CachedTrack, 0, len(data))
	seen := make(map[string]bool, len(data))
	for _, td := range data {
		if td.AudioSource == "" || seen[td.AudioSource] {
			continue
		}
		seen[td.AudioSource] = true

		id := td.ID
		if id == "" {
			id = generateTrackID(td.AudioSource)
		}
		tracks = append(tracks, &CachedTrack{
			ID:             id,
			Title:          td.Title,
			Artist:         td.Artist,
			AudioSource:    td.AudioSource,
			ArtworkSource:  td.ArtworkSource,
			DurationMillis: td.DurationMillis,
		})
	}

	if err := b.dao.ReplaceTracks(tracks); err != nil {
		return 0, fmt.Errorf("failed to store tracks: %w", err)
	}
	b.db.SetBuildingState(true, 90)

	if err := b.db.MarkBuildComplete(); err != nil {
		return 0, fmt.Errorf("failed to mark build complete: %w", err)
	}

	log.Info().
		Int("tracks", len(tracks)).
		Dur("duration", time.Since(startTime)).
		Msg("Cache build complete")
	return len(tracks), nil
}

func generateTrackID(uri string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(uri)))
}
