// Package library lists the tracks available to the queue and opens their audio.
package library

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"net/url"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

var (
	// ErrScan is returned when a source cannot be listed.
	ErrScan = errors.New("library scan failed")

	// ErrNotFound is returned when a track ID does not resolve.
	ErrNotFound = errors.New("track not found")
)

// UnknownArtist is used when a source has no artist for a track.
const UnknownArtist = "undefined"

// Source lists and resolves tracks.
type Source interface {
	ListTracks(ctx context.Context) ([]player.Track, error)
	ResolveTrack(ctx context.Context, id string) (player.Track, error)
}

// Library is a Source that can also open track audio.
type Library interface {
	Source
	player.StreamOpener
}

// TrackID derives a stable track ID from its audio source.
func TrackID(audioSource string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(audioSource)))
}

// ArtworkURL is the HTTP path serving the artwork of the track at path.
func ArtworkURL(path string) string {
	return "/albumart?path=" + url.QueryEscape(path)
}
