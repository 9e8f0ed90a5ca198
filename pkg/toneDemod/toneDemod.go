// Package toneDemod classifies one symbol window at a time: Hann-window the
// samples, zero-pad into a power-of-2 FFT, and sum spectral magnitude within
// the tolerance band around each candidate tone. The tone with more energy
// wins; a ratio below the confidence margin marks the symbol as an erasure,
// still carrying the best-guess bit so output length is preserved.
package toneDemod

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/blinklink/blinklink/pkg/session"
)

type Decision struct {
	Tone    int // 0 or 1, the winning carrier
	Bit     int
	Erasure bool
	Energy0 float64
	Energy1 float64
	Ratio   float64 // winning energy over losing energy
}

type Demodulator struct {
	p session.Params
}

func New(p session.Params) *Demodulator {
	return &Demodulator{p: p}
}

// Classify decides the symbol carried by one window of intensity samples.
// rate is the effective sample rate the window was captured at.
func (d *Demodulator) Classify(samples []float64, rate float64) Decision {
	if len(samples) == 0 || rate <= 0 {
		return Decision{Erasure: true}
	}

	n := len(samples)
	// Zero-padding buys band interpolation, not resolution, but it lets the
	// tolerance band around each tone cover a stable number of bins.
	size := dsputils.NextPowerOf2(n * 8)
	buf := make([]float64, size)
	win := window.Hann(n)
	for i, s := range samples {
		buf[i] = s * win[i]
	}

	spectrum := fft.FFTReal(buf)

	var e0, e1 float64
	for k := 0; k <= size/2; k++ {
		freq := float64(k) * rate / float64(size)
		mag := cmplx.Abs(spectrum[k])
		if math.Abs(freq-d.p.Freq0) <= d.p.FreqTolerance {
			e0 += mag
		}
		if math.Abs(freq-d.p.Freq1) <= d.p.FreqTolerance {
			e1 += mag
		}
	}

	dec := Decision{Energy0: e0, Energy1: e1}
	hi, lo := e0, e1
	if e1 > e0 {
		dec.Tone = 1
		hi, lo = e1, e0
	}
	dec.Bit = BitFromTone(dec.Tone)

	switch {
	case dsputils.Float64Equal(hi, 0):
		// no tone energy at all, pure erasure
		dec.Ratio = 1
		dec.Erasure = true
	case dsputils.Float64Equal(lo, 0):
		dec.Ratio = math.Inf(1)
	default:
		dec.Ratio = hi / lo
		dec.Erasure = dec.Ratio < d.p.ErasureMargin
	}
	return dec
}

// BitFromTone is the bit decoder: a pure 1:1 mapping from the decided tone to
// the bit value, tone f0 carrying 0 and tone f1 carrying 1.
func BitFromTone(tone int) int {
	return tone
}
