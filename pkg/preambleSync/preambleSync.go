// Package preambleSync locates the known preamble pattern inside an intensity
// time series and tracks symbol boundaries from the lock point. The search is
// a matched filter: the expected preamble waveform is slid across the series
// at a grid of candidate rate scales, and the offset/scale pair with the
// highest normalized correlation above the confidence threshold wins. The
// scale estimate is what absorbs camera/display clock mismatch; within a
// transmission the symbol windows advance purely additively from the lock.
package preambleSync

import (
	"fmt"
	"math"

	"github.com/blinklink/blinklink/pkg/frameExtract"
	"github.com/blinklink/blinklink/pkg/session"
)

type SyncLostError struct {
	DecodedBits []int
	Resyncs     int
	Reason      string
}

func (e *SyncLostError) Error() string {
	return fmt.Sprintf("sync lost after %d resyncs (%d bits decoded): %s", e.Resyncs, len(e.DecodedBits), e.Reason)
}

// Lock is a successful preamble fix.
type Lock struct {
	Index            int     // sample index of the preamble start
	DataStart        int     // sample index of the first data symbol
	SamplesPerSymbol float64 // effective, estimated from the winning rate scale
	Score            float64 // normalized correlation at the lock point
}

// Searcher holds the precomputed preamble templates, one per rate-scale
// candidate.
type Searcher struct {
	p         session.Params
	templates []template
}

type template struct {
	samples []float64 // DC removed
	norm    float64
	sps     float64
}

func NewSearcher(p session.Params) (*Searcher, error) {
	bits, err := p.PreambleBits()
	if err != nil {
		return nil, err
	}

	s := &Searcher{p: p}
	steps := p.RateScaleSteps
	span := p.RateScaleSpan
	if steps < 0 {
		steps = 0
	}
	for k := -steps; k <= steps; k++ {
		scale := 1.0
		if steps > 0 {
			scale = 1.0 + span*float64(k)/float64(steps)
		}
		rate := p.CaptureRate * scale
		tmpl := sampleBits(p, bits, rate)
		removeDC(tmpl)
		s.templates = append(s.templates, template{
			samples: tmpl,
			norm:    norm(tmpl),
			sps:     p.BitDuration * rate,
		})
	}
	return s, nil
}

// Search scans offsets from..from+MaxSearchWindow for the best preamble fix.
// The boolean reports whether the best score cleared the confidence
// threshold; the Lock is returned either way for diagnostics.
func (s *Searcher) Search(series frameExtract.Series, from int) (Lock, bool) {
	samples := series.Samples
	best := Lock{Score: math.Inf(-1)}
	if from < 0 {
		from = 0
	}

	for _, t := range s.templates {
		last := len(samples) - len(t.samples)
		if s.p.MaxSearchWindow > 0 && from+s.p.MaxSearchWindow < last {
			last = from + s.p.MaxSearchWindow
		}
		for off := from; off <= last; off++ {
			score := correlate(samples[off:off+len(t.samples)], t.samples, t.norm)
			if score > best.Score {
				best = Lock{
					Index:            off,
					DataStart:        off + len(t.samples),
					SamplesPerSymbol: t.sps,
					Score:            score,
				}
			}
		}
	}
	return best, best.Score >= s.p.SyncThreshold
}

// sampleBits renders the expected tone waveform for bits at the given rate
// with fractional symbol boundaries, so templates at off-nominal rates
// genuinely stretch instead of snapping to whole samples per symbol.
func sampleBits(p session.Params, bits []int, rate float64) []float64 {
	total := int(math.Round(float64(len(bits)) * p.BitDuration * rate))
	out := make([]float64, total)
	for j := 0; j < total; j++ {
		t := float64(j) / rate
		idx := int(t / p.BitDuration)
		if idx >= len(bits) {
			idx = len(bits) - 1
		}
		freq := p.Freq0
		if bits[idx] == 1 {
			freq = p.Freq1
		}
		tLocal := t - float64(idx)*p.BitDuration
		out[j] = p.BaseAlpha + p.DeltaAlpha*math.Sin(2*math.Pi*freq*tLocal)
	}
	return out
}

func removeDC(v []float64) {
	if len(v) == 0 {
		return
	}
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	for i := range v {
		v[i] -= mean
	}
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// correlate computes normalized cross correlation between a series window and
// a DC-removed template. The window mean is removed locally so a bright or
// dark stretch of recording does not inflate the score.
func correlate(window, tmpl []float64, tmplNorm float64) float64 {
	mean := 0.0
	for _, x := range window {
		mean += x
	}
	mean /= float64(len(window))

	dot := 0.0
	winSq := 0.0
	for i := range window {
		w := window[i] - mean
		dot += w * tmpl[i]
		winSq += w * w
	}
	den := math.Sqrt(winSq) * tmplNorm
	if den == 0 {
		return 0
	}
	return dot / den
}
