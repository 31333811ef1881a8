package waveform

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
)

// AmplitudeType selects how a chunk of amplitudes collapses into one spike.
type AmplitudeType int

const (
	Avg AmplitudeType = iota
	Max
	Min
)

// MinSpikeHeight is the height of a spike for silent or missing input.
const MinSpikeHeight = 1

// MaxSpikes caps the n accepted by Spikes.
const MaxSpikes = 4096

// amplitudeMultiplier scales aggregated chunks before clamping.
const amplitudeMultiplier = 2

// ParseAmplitudeType parses "avg", "max" or "min".
func ParseAmplitudeType(s string) (AmplitudeType, error) {
	switch strings.ToLower(s) {
	case "avg", "":
		return Avg, nil
	case "max":
		return Max, nil
	case "min":
		return Min, nil
	default:
		return Avg, fmt.Errorf("unknown amplitude type %q", s)
	}
}

// Spikes reduces amplitudes to about n spikes no taller than maxHeight.
// n is capped at MaxSpikes. Empty input yields n minimum-height spikes;
// input shorter than n is returned unchanged.
func Spikes(amplitudes []int, n int, kind AmplitudeType, maxHeight int) []int {
	if n <= 0 {
		return []int{}
	}
	n = min(n, MaxSpikes)
	if len(amplitudes) == 0 {
		return lo.Times(n, func(int) int { return MinSpikeHeight })
	}
	if len(amplitudes) < n {
		return append([]int(nil), amplitudes...)
	}

	maxHeight = max(maxHeight, MinSpikeHeight)
	size := int(math.Ceil(float64(len(amplitudes)) / float64(n)))

	return lo.Map(lo.Chunk(amplitudes, size), func(chunk []int, _ int) int {
		var v float64
		switch kind {
		case Max:
			v = float64(lo.Max(chunk))
		case Min:
			v = float64(lo.Min(chunk))
		default:
			v = float64(lo.Sum(chunk)) / float64(len(chunk))
		}
		v *= amplitudeMultiplier
		return int(math.Round(min(max(v, MinSpikeHeight), float64(maxHeight))))
	})
}
