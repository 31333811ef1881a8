// Package audio provides decoding, audio output and output format status.
package audio

import (
	"strconv"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"
)

// AudioFormat describes a decoded stream as it reaches the output.
type AudioFormat struct {
	SampleRate   int    `json:"sampleRate"`   // Source sample rate in Hz (44100, 96000, 192000, etc.)
	BitDepth     int    `json:"bitDepth"`     // Bit depth (16, 24, 32)
	Channels     int    `json:"channels"`     // Number of channels (usually 2)
	Label        string `json:"label"`        // Display label, "44.1kHz/16-bit"
	IsBitPerfect bool   `json:"isBitPerfect"` // True if the output runs at the source rate
}

// AudioStatus represents the current audio output status.
type AudioStatus struct {
	Locked     bool         `json:"locked"`     // True while a transport is playing
	OutputRate int          `json:"outputRate"` // Speaker sample rate
	Format     *AudioFormat `json:"format"`     // Format of the loaded track (nil if none)
}

// Controller tracks what the speaker is currently playing. The last caller
// of Update owns the status; Release from any other caller is ignored.
type Controller struct {
	mu            sync.RWMutex
	owner         any
	isLocked      bool
	currentFormat *AudioFormat
	outputRate    int
}

// NewController creates a controller for a speaker running at outputRate Hz.
func NewController(outputRate int) *Controller {
	return &Controller{
		outputRate: outputRate,
	}
}

// GetStatus returns the current audio status.
func (c *Controller) GetStatus() AudioStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return AudioStatus{
		Locked:     c.isLocked,
		OutputRate: c.outputRate,
		Format:     c.currentFormat,
	}
}

// Update records the playing state and the format of the stream loaded by
// owner. A nil format means nothing is loaded. It reports whether anything
// changed.
func (c *Controller) Update(owner any, playing bool, format *beep.Format) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.owner = owner
	return c.set(playing, format)
}

// Release clears the status if owner made the last Update.
func (c *Controller) Release(owner any) (changed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner != owner {
		return false
	}
	c.owner = nil
	return c.set(false, nil)
}

func (c *Controller) set(playing bool, format *beep.Format) (changed bool) {
	wasLocked := c.isLocked
	c.isLocked = playing && format != nil

	var newFormat *AudioFormat
	if format != nil {
		newFormat = c.describe(*format)
	}

	formatChanged := !audioFormatEqual(c.currentFormat, newFormat)
	c.currentFormat = newFormat

	changed = (wasLocked != c.isLocked) || formatChanged

	if changed {
		log.Debug().
			Bool("locked", c.isLocked).
			Interface("format", c.currentFormat).
			Msg("Audio status changed")
	}

	return changed
}

// describe converts a beep format into an AudioFormat.
func (c *Controller) describe(f beep.Format) *AudioFormat {
	sampleRate := int(f.SampleRate)
	bitDepth := f.Precision * 8

	return &AudioFormat{
		SampleRate:   sampleRate,
		BitDepth:     bitDepth,
		Channels:     f.NumChannels,
		Label:        FormatSampleRate(sampleRate) + "/" + strconv.Itoa(bitDepth) + "-bit",
		IsBitPerfect: c.outputRate == sampleRate,
	}
}

// FormatSampleRate returns a human-readable sample rate string.
func FormatSampleRate(sampleRate int) string {
	if sampleRate >= 1000 {
		return strconv.FormatFloat(float64(sampleRate)/1000, 'f', -1, 64) + "kHz"
	}
	return strconv.Itoa(sampleRate) + "Hz"
}

// audioFormatEqual compares two AudioFormat pointers for equality.
func audioFormatEqual(a, b *AudioFormat) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
