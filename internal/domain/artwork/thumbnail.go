package artwork

import (
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// ThumbnailSize is the longest side of a thumbnail in pixels. Zero means the
// original image.
type ThumbnailSize int

const (
	ThumbSmall  ThumbnailSize = 150 // queue rows
	ThumbMedium ThumbnailSize = 300 // library grid
	ThumbLarge  ThumbnailSize = 500 // now playing
)

var thumbnailSizes = map[string]ThumbnailSize{
	"":       0,
	"full":   0,
	"small":  ThumbSmall,
	"medium": ThumbMedium,
	"large":  ThumbLarge,
}

// ParseThumbnailSize maps "small", "medium" and "large" to a size.
// "" and "full" return 0, meaning the original image.
func ParseThumbnailSize(s string) (ThumbnailSize, error) {
	size, ok := thumbnailSizes[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown thumbnail size %q", s)
	}
	return size, nil
}

// ThumbnailGenerator writes JPEG thumbnails under <cacheDir>/thumbs.
type ThumbnailGenerator struct {
	dir string
}

// NewThumbnailGenerator creates a generator caching under cacheDir.
func NewThumbnailGenerator(cacheDir string) *ThumbnailGenerator {
	return &ThumbnailGenerator{dir: filepath.Join(cacheDir, "thumbs")}
}

// GenerateThumbnail scales sourcePath to fit size and returns the JPEG's
// path. A thumbnail generated earlier for the same id and size is reused.
func (g *ThumbnailGenerator) GenerateThumbnail(sourcePath string, id string, size ThumbnailSize) (string, error) {
	path := filepath.Join(g.dir, fmt.Sprintf("%s_%d.jpg", id, size))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	img, err := decodeImage(sourcePath)
	if err != nil {
		return "", err
	}
	log.Debug().Str("source", sourcePath).Int("size", int(size)).Msg("Generating thumbnail")

	thumb := scaleToFit(img, int(size))
	err = writeAtomic(path, func(w io.Writer) error {
		return jpeg.Encode(w, thumb, &jpeg.Options{Quality: 85})
	})
	if err != nil {
		return "", fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return path, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// fitWithin returns w x h scaled so the longest side is limit, keeping the
// aspect ratio. Sizes already within limit, or a limit of zero, are
// returned unchanged.
func fitWithin(w, h, limit int) (int, int) {
	if limit <= 0 || (w <= limit && h <= limit) {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

func scaleToFit(src image.Image, limit int) image.Image {
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), limit)
	if w == b.Dx() && h == b.Dy() {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
