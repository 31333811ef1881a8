// Package waveform computes amplitude sequences from audio streams.
package waveform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/wavequeue/internal/audio"
)

// Defaults for Options.
const (
	DefaultBucketsPerSecond = 10
	DefaultScale            = 100
)

const chunkFrames = 4096

// Options configures a Processor.
type Options struct {
	BucketsPerSecond int // amplitudes emitted per second of audio
	Scale            int // value of a full-scale peak
}

// Processor decodes a stream and reports the peak level of each bucket.
type Processor struct {
	bucketsPerSecond int
	scale            int
}

// NewProcessor creates a processor.
func NewProcessor(opts Options) *Processor {
	if opts.BucketsPerSecond <= 0 {
		opts.BucketsPerSecond = DefaultBucketsPerSecond
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	return &Processor{
		bucketsPerSecond: opts.BucketsPerSecond,
		scale:            opts.Scale,
	}
}

// ProcessAudio decodes stream and returns one amplitude in [0, scale] per
// bucket. The format is detected from the stream header.
func (p *Processor) ProcessAudio(ctx context.Context, stream io.Reader) ([]int, error) {
	br := bufio.NewReaderSize(stream, 64*1024)
	header, err := br.Peek(audio.SniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	kind := audio.Sniff(header)
	if kind == audio.KindUnknown {
		return nil, audio.ErrUnsupportedFormat
	}

	streamer, format, err := audio.Decode(io.NopCloser(br), kind)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	defer streamer.Close()

	bucket := format.SampleRate.N(time.Second / time.Duration(p.bucketsPerSecond))
	if bucket <= 0 {
		bucket = 1
	}

	var (
		amps  []int
		peak  float64
		count int
		buf   = make([][2]float64, chunkFrames)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, ok := streamer.Stream(buf)
		for _, frame := range buf[:n] {
			peak = max(peak, math.Abs((frame[0]+frame[1])/2))
			count++
			if count == bucket {
				amps = append(amps, p.level(peak))
				peak, count = 0, 0
			}
		}
		if !ok {
			break
		}
	}
	if count > 0 {
		amps = append(amps, p.level(peak))
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("stream: %w", err)
	}

	log.Debug().
		Str("kind", string(kind)).
		Int("buckets", len(amps)).
		Msg("Waveform computed")

	if amps == nil {
		amps = []int{}
	}
	return amps, nil
}

func (p *Processor) level(peak float64) int {
	return int(math.Round(min(peak, 1) * float64(p.scale)))
}
