package artwork

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const octetStream = "application/octet-stream"

// imageFormat maps a leading signature to a MIME type and cache extension.
// WebP is a RIFF container and is checked separately.
type imageFormat struct {
	mime  string
	ext   string
	magic []byte
}

var imageFormats = []imageFormat{
	{"image/jpeg", ".jpg", []byte{0xFF, 0xD8, 0xFF}},
	{"image/png", ".png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}},
	{"image/gif", ".gif", []byte("GIF8")},
	{"image/webp", ".webp", nil},
}

// Resolver looks artwork up in its disk cache, then asks each provider for
// folder art, then each provider for an embedded picture. The first hit is
// written to the cache under ArtworkID.
type Resolver struct {
	providers []Provider
	dir       string
}

// NewResolver creates a resolver caching under cacheDir.
func NewResolver(cacheDir string, providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		dir:       filepath.Join(cacheDir, "tracks"),
	}
}

// Resolve finds artwork for a track. A missing image yields a placeholder
// result, never an error.
func (r *Resolver) Resolve(trackURI string) (*ResolveResult, error) {
	id := ArtworkID(trackURI)
	if result := r.cached(id); result != nil {
		return result, nil
	}

	lookups := []struct {
		source string
		fetch  func(Provider) ([]byte, error)
	}{
		{"folder", func(p Provider) ([]byte, error) { return p.AlbumArt(trackURI) }},
		{"embedded", func(p Provider) ([]byte, error) { return p.ReadPicture(trackURI) }},
	}
	for _, l := range lookups {
		for _, p := range r.providers {
			if data, err := l.fetch(p); err == nil && len(data) > 0 {
				return r.store(id, data, l.source)
			}
		}
	}

	log.Debug().Str("trackURI", trackURI).Msg("No artwork, using placeholder")
	return &ResolveResult{Source: "placeholder"}, nil
}

func (r *Resolver) cached(id string) *ResolveResult {
	for _, f := range imageFormats {
		path := filepath.Join(r.dir, id+f.ext)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return &ResolveResult{FilePath: path, Source: "cache", MimeType: f.mime, FileSize: int(info.Size())}
	}
	return nil
}

func (r *Resolver) store(id string, data []byte, source string) (*ResolveResult, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	mime := DetectMimeType(data)
	path := filepath.Join(r.dir, id+ExtensionForMime(mime))

	err := writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write artwork file: %w", err)
	}

	log.Debug().Str("id", id).Str("source", source).Int("size", len(data)).Msg("Cached artwork")
	return &ResolveResult{FilePath: path, Source: source, MimeType: mime, FileSize: len(data)}, nil
}

// ArtworkID is the cache key for a track's artwork.
func ArtworkID(trackURI string) string {
	sum := md5.Sum([]byte(trackURI))
	return hex.EncodeToString(sum[:])
}

// DetectMimeType sniffs the image type from its leading bytes.
func DetectMimeType(data []byte) string {
	if len(data) < 4 {
		return octetStream
	}
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "image/webp"
	}
	for _, f := range imageFormats {
		if f.magic != nil && bytes.HasPrefix(data, f.magic) {
			return f.mime
		}
	}
	return octetStream
}

// ExtensionForMime returns the cache file extension for a MIME type.
func ExtensionForMime(mime string) string {
	for _, f := range imageFormats {
		if f.mime == mime {
			return f.ext
		}
	}
	return ".bin"
}
