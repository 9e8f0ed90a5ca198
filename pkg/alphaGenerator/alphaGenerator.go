// Package alphaGenerator renders a bitstream as a sequence of overlay alpha
// values, one per display refresh tick. Each bit holds one of two tones for
// the symbol duration; the tone is a sinusoidal brightness modulation around
// a base alpha level, phase reset at every symbol boundary. The demodulator's
// band-energy feature extractor assumes exactly this waveform.
package alphaGenerator

import (
	"fmt"
	"math"

	"github.com/blinklink/blinklink/pkg/misc"
	"github.com/blinklink/blinklink/pkg/session"
)

// Render produces the full transmission, preamble followed by payload, as one
// alpha sample per refresh tick. The slice is the restartable frame sequence
// handed to the display collaborator.
func Render(p session.Params, payload []int) ([]float64, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for i, b := range payload {
		if b != 0 && b != 1 {
			return nil, &session.ConfigError{Field: "payload", Reason: fmt.Sprintf("bit %d is not 0/1", i)}
		}
	}
	preamble, err := p.PreambleBits()
	if err != nil {
		return nil, err
	}
	all := make([]int, 0, len(preamble)+len(payload))
	all = append(all, preamble...)
	all = append(all, payload...)
	return Waveform(p, all, p.RefreshRate), nil
}

// Waveform samples the symbol waveform for bits at an arbitrary rate. The
// receiver uses it to build the matched-filter preamble template, and the
// synthetic-channel tests use it in place of a real camera.
func Waveform(p session.Params, bits []int, rate float64) []float64 {
	var freq float64
	samplesPerSymbol := int(math.Round(p.BitDuration * rate))
	out := make([]float64, 0, len(bits)*samplesPerSymbol)

	for _, bit := range bits {
		switch bit {
		case 0:
			freq = p.Freq0
		default:
			freq = p.Freq1
		}

		for i := 0; i < samplesPerSymbol; i++ {
			t := float64(i) / rate
			alpha := p.BaseAlpha + p.DeltaAlpha*math.Sin(2*math.Pi*freq*t)
			out = append(out, misc.Clamp(alpha, 0.0, 1.0))
		}
	}

	return out
}
