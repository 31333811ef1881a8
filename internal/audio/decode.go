package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for streams no decoder understands.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Kind identifies a container/codec handled by a decoder.
type Kind string

const (
	KindUnknown Kind = ""
	KindMP3     Kind = "mp3"
	KindWAV     Kind = "wav"
	KindFLAC    Kind = "flac"
)

// SniffLen is the number of header bytes Sniff needs.
const SniffLen = 12

// KindFromName picks a decoder from a file name extension.
func KindFromName(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return KindMP3
	case ".wav", ".wave":
		return KindWAV
	case ".flac":
		return KindFLAC
	default:
		return KindUnknown
	}
}

// Sniff picks a decoder from the magic bytes at the start of a stream.
func Sniff(header []byte) Kind {
	switch {
	case len(header) >= 4 && bytes.Equal(header[:4], []byte("fLaC")):
		return KindFLAC
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return KindWAV
	case len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")):
		return KindMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return KindMP3
	default:
		return KindUnknown
	}
}

// Decode decodes rc with the decoder for kind. Closing the returned
// streamer closes rc.
func Decode(rc io.ReadCloser, kind Kind) (beep.StreamSeekCloser, beep.Format, error) {
	switch kind {
	case KindMP3:
		return mp3.Decode(rc)
	case KindWAV:
		return wav.Decode(rc)
	case KindFLAC:
		return flac.Decode(rc)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}

// Open decodes a seekable stream, choosing the decoder from name and
// falling back to the stream header.
func Open(rs io.ReadSeekCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	kind := KindFromName(name)
	if kind == KindUnknown {
		header := make([]byte, SniffLen)
		n, err := io.ReadFull(rs, header)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			rs.Close()
			return nil, beep.Format{}, fmt.Errorf("read header: %w", err)
		}
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			rs.Close()
			return nil, beep.Format{}, fmt.Errorf("rewind: %w", err)
		}
		kind = Sniff(header[:n])
	}

	streamer, format, err := Decode(rs, kind)
	if err != nil {
		rs.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", name, err)
	}
	return streamer, format, nil
}

// Seekable returns rc as a seekable stream, buffering it in memory if needed.
func Seekable(rc io.ReadCloser) (io.ReadSeekCloser, error) {
	if rs, ok := rc.(io.ReadSeekCloser); ok {
		return rs, nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

// ProbeDuration returns the length of the audio file at path in milliseconds.
func ProbeDuration(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	streamer, format, err := Open(f, path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()).Milliseconds(), nil
}

// IsAudioFile reports whether path has an extension that can be decoded.
func IsAudioFile(path string) bool {
	return KindFromName(path) != KindUnknown
}

// nopCloser wraps a bytes.Reader to implement io.ReadSeekCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
