package artwork

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ArtworkFilenames defines common artwork filenames in priority order.
var ArtworkFilenames = []string{
	"cover",
	"folder",
	"front",
	"album",
	"artwork",
}

// ArtworkExtensions defines supported image extensions.
var ArtworkExtensions = []string{
	".jpg",
	".jpeg",
	".png",
	".webp",
}

// candidates lists every filename tried before falling back to any image:
// lowercase, capitalized and uppercase spellings of each name/extension pair.
var candidates = lo.FlatMap(ArtworkFilenames, func(name string, _ int) []string {
	return lo.FlatMap(ArtworkExtensions, func(ext string, _ int) []string {
		return []string{
			name + ext,
			strings.ToUpper(name[:1]) + name[1:] + ext,
			strings.ToUpper(name + ext),
		}
	})
})

// FilesystemFinder searches for artwork files next to audio files.
type FilesystemFinder struct {
	musicDir  string // library root
	maxLevels int    // parent directories to search above the track (default: 3)
}

// NewFilesystemFinder creates a new filesystem artwork finder.
func NewFilesystemFinder(musicDir string) *FilesystemFinder {
	return &FilesystemFinder{
		musicDir:  musicDir,
		maxLevels: 3,
	}
}

// FindArtwork searches for an artwork file starting from the track's
// directory. trackURI is relative to the music directory. It returns the full
// path to the artwork, or "" when there is none.
func (f *FilesystemFinder) FindArtwork(trackURI string) (string, error) {
	if trackURI == "" {
		return "", nil
	}

	root, err := filepath.Abs(f.musicDir)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(filepath.Join(root, trackURI))

	for level := 0; level <= f.maxLevels; level++ {
		if !within(root, dir) {
			// Don't search outside music directory
			break
		}
		if artPath := f.searchDirectory(dir); artPath != "" {
			log.Debug().
				Str("trackURI", trackURI).
				Str("artPath", artPath).
				Int("level", level).
				Msg("Found artwork file")
			return artPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (f *FilesystemFinder) searchDirectory(dir string) string {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}

	// No standard name, take the first image file
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "._") {
			// AppleDouble resource forks look like images
			continue
		}
		if lo.Contains(ArtworkExtensions, strings.ToLower(filepath.Ext(entry.Name()))) {
			return filepath.Join(dir, entry.Name())
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ReadArtwork reads the artwork file and returns its data.
func (f *FilesystemFinder) ReadArtwork(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// AlbumArt returns the folder artwork for trackURI.
func (f *FilesystemFinder) AlbumArt(trackURI string) ([]byte, error) {
	path, err := f.FindArtwork(trackURI)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, ErrNoArtwork
	}
	return f.ReadArtwork(path)
}

// ReadPicture always fails: embedded tags are not parsed from disk.
func (f *FilesystemFinder) ReadPicture(string) ([]byte, error) {
	return nil, ErrNoArtwork
}
