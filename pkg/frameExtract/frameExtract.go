// Package frameExtract turns a recorded frame sequence into the scalar
// intensity time series the rest of the receiver works on. Frames are
// consumed once, in order, through the Source interface, so file-backed
// recordings and in-memory synthetic captures run through the same path.
package frameExtract

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/blinklink/blinklink/pkg/session"
)

// Center crop fractions used when no ROI rectangle is configured.
const (
	cropLo = 0.3
	cropHi = 0.7
)

type EmptyCaptureError struct {
	Frames int
	Needed int
}

func (e *EmptyCaptureError) Error() string {
	return fmt.Sprintf("capture too short: %d frames, need at least %d to cover the preamble", e.Frames, e.Needed)
}

// Frame is one captured video frame: 8-bit grayscale pixels, row major.
// Timestamp is the capture time in seconds, negative when the recording
// carries no timing information.
type Frame struct {
	Pixels    []uint8
	Width     int
	Height    int
	Timestamp float64
}

// Source yields captured frames in order. Next returns io.EOF when the
// recording is exhausted. Close must be called on every exit path.
type Source interface {
	Next() (Frame, error)
	Close() error
}

// Series is the intensity time series: one ROI-averaged scalar per frame.
// Temporal order is load bearing.
type Series struct {
	Samples     []float64
	Timestamps  []float64 // empty when the source had no timing info
	NominalRate float64
}

// EffectiveRate estimates the real frame rate from timestamps, falling back
// to the nominal rate when no usable timestamps were recorded.
func (s Series) EffectiveRate() float64 {
	n := len(s.Timestamps)
	if n >= 2 {
		span := s.Timestamps[n-1] - s.Timestamps[0]
		if span > 0 {
			return float64(n-1) / span
		}
	}
	return s.NominalRate
}

// Duration is the recording length in seconds at the effective rate.
func (s Series) Duration() float64 {
	rate := s.EffectiveRate()
	if rate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / rate
}

// Normalize returns a DC-removed, unit-variance copy of the series. A flat
// series comes back all zeros rather than dividing by a zero deviation.
func (s Series) Normalize() Series {
	out := Series{
		Samples:     make([]float64, len(s.Samples)),
		Timestamps:  s.Timestamps,
		NominalRate: s.NominalRate,
	}
	if len(s.Samples) == 0 {
		return out
	}
	mean := 0.0
	for _, v := range s.Samples {
		mean += v
	}
	mean /= float64(len(s.Samples))
	variance := 0.0
	for _, v := range s.Samples {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(s.Samples)))
	for i, v := range s.Samples {
		if std > 0 {
			out.Samples[i] = (v - mean) / std
		}
	}
	return out
}

// FromSamples wraps an already-extracted scalar series, the entry point for
// synthetic-channel tests.
func FromSamples(samples []float64, rate float64) Series {
	return Series{Samples: samples, NominalRate: rate}
}

// Extract drains the source, averages each frame over the ROI and returns the
// intensity series. The source is closed on every path. Fails with
// EmptyCaptureError when the recording cannot even contain the preamble at
// the nominal rate.
func Extract(src Source, p session.Params) (Series, error) {
	series := Series{NominalRate: p.CaptureRate}
	defer src.Close()

	sawTimestamps := true
	for {
		frame, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return series, fmt.Errorf("reading frame %d: %w", len(series.Samples), err)
		}
		series.Samples = append(series.Samples, roiMean(frame, p.ROI))
		if frame.Timestamp < 0 {
			sawTimestamps = false
		}
		if sawTimestamps {
			series.Timestamps = append(series.Timestamps, frame.Timestamp)
		}
	}
	if !sawTimestamps {
		series.Timestamps = nil
	}

	preamble, err := p.PreambleBits()
	if err != nil {
		return series, err
	}
	needed := int(math.Ceil(float64(len(preamble)) * p.SamplesPerSymbol()))
	if len(series.Samples) < needed {
		return series, &EmptyCaptureError{Frames: len(series.Samples), Needed: needed}
	}
	return series, nil
}

// roiMean averages pixel intensity over the configured rectangle, clipped to
// the frame. A zero ROI means center crop.
func roiMean(f Frame, roi session.ROI) float64 {
	x0, y0, x1, y1 := roiBounds(f, roi)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	sum := 0.0
	for y := y0; y < y1; y++ {
		row := f.Pixels[y*f.Width : (y+1)*f.Width]
		for x := x0; x < x1; x++ {
			sum += float64(row[x])
		}
	}
	return sum / float64((x1-x0)*(y1-y0))
}

func roiBounds(f Frame, roi session.ROI) (x0, y0, x1, y1 int) {
	if roi.IsZero() {
		x0 = int(cropLo * float64(f.Width))
		x1 = int(cropHi * float64(f.Width))
		y0 = int(cropLo * float64(f.Height))
		y1 = int(cropHi * float64(f.Height))
	} else {
		x0, y0 = roi.X, roi.Y
		x1, y1 = roi.X+roi.Width, roi.Y+roi.Height
	}
	x0 = max(x0, 0)
	y0 = max(y0, 0)
	x1 = min(x1, f.Width)
	y1 = min(y1, f.Height)
	return x0, y0, x1, y1
}
