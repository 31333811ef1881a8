// Package artwork finds, caches and scales cover images for tracks.
package artwork

import "errors"

// ErrNoArtwork is returned when no artwork is found.
var ErrNoArtwork = errors.New("no artwork found")

// ResolveResult contains the result of artwork resolution.
type ResolveResult struct {
	FilePath string // Path to the artwork file, empty for a placeholder
	Source   string // 'cache', 'folder', 'mpd', 'embedded' or 'placeholder'
	MimeType string // MIME type of the artwork
	FileSize int    // File size in bytes
}

// Placeholder reports whether no artwork was found.
func (r *ResolveResult) Placeholder() bool {
	return r.FilePath == ""
}

// Provider fetches artwork bytes for a track URI.
type Provider interface {
	// AlbumArt retrieves folder-based album art (cover.jpg, folder.jpg, etc.)
	AlbumArt(uri string) ([]byte, error)
	// ReadPicture retrieves embedded artwork from audio file tags
	ReadPicture(uri string) ([]byte, error)
}
