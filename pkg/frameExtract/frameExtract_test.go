package frameExtract

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/blinklink/blinklink/pkg/session"
)

func testParams() session.Params {
	p := session.DefaultParams()
	p.BitDuration = 0.2
	p.PayloadBits = 10
	return p
}

// fillRect paints a rectangle of the frame with one value, everything else 0.
func fillRect(w, h, x0, y0, x1, y1 int, v uint8) Frame {
	px := make([]uint8, w*h)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			px[y*w+x] = v
		}
	}
	return Frame{Pixels: px, Width: w, Height: h, Timestamp: -1}
}

func TestRoiMeanExplicit(t *testing.T) {
	f := fillRect(10, 10, 2, 2, 6, 6, 200)
	got := roiMean(f, session.ROI{X: 2, Y: 2, Width: 4, Height: 4})
	if got != 200 {
		t.Fatalf("roiMean = %f, want 200", got)
	}
	// same frame averaged over everything dilutes
	full := roiMean(f, session.ROI{X: 0, Y: 0, Width: 10, Height: 10})
	if full != 200*16/100 {
		t.Fatalf("full-frame mean = %f, want 32", full)
	}
}

func TestRoiMeanCenterCropDefault(t *testing.T) {
	// zero ROI means the 0.3..0.7 center crop: x,y in [3,7) on a 10x10 frame
	f := fillRect(10, 10, 3, 3, 7, 7, 80)
	got := roiMean(f, session.ROI{})
	if got != 80 {
		t.Fatalf("center crop mean = %f, want 80", got)
	}
}

func TestRoiMeanClipsToFrame(t *testing.T) {
	f := fillRect(4, 4, 0, 0, 4, 4, 100)
	got := roiMean(f, session.ROI{X: 2, Y: 2, Width: 10, Height: 10})
	if got != 100 {
		t.Fatalf("clipped mean = %f, want 100", got)
	}
	empty := roiMean(f, session.ROI{X: 10, Y: 10, Width: 2, Height: 2})
	if empty != 0 {
		t.Fatalf("out-of-frame ROI mean = %f, want 0", empty)
	}
}

func TestExtractTooShort(t *testing.T) {
	p := testParams()
	src := &SliceSource{Frames: []Frame{
		fillRect(4, 4, 0, 0, 4, 4, 10),
		fillRect(4, 4, 0, 0, 4, 4, 20),
	}}
	_, err := Extract(src, p)
	var emptyErr *EmptyCaptureError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyCaptureError, got %v", err)
	}
	if emptyErr.Frames != 2 || emptyErr.Needed != 78 {
		t.Fatalf("unexpected error details: %+v", emptyErr)
	}
	if !src.closed {
		t.Fatalf("source not closed on the error path")
	}
}

func TestExtractSeries(t *testing.T) {
	p := testParams()
	frames := make([]Frame, 80)
	for i := range frames {
		f := fillRect(4, 4, 0, 0, 4, 4, uint8(i))
		f.Timestamp = float64(i) / 30
		frames[i] = f
	}
	src := &SliceSource{Frames: frames}

	series, err := Extract(src, p)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(series.Samples) != 80 {
		t.Fatalf("got %d samples, want 80", len(series.Samples))
	}
	if series.Samples[5] != 5 {
		t.Fatalf("sample 5 = %f, want 5", series.Samples[5])
	}
	if len(series.Timestamps) != 80 {
		t.Fatalf("timestamps dropped: %d", len(series.Timestamps))
	}
	if !src.closed {
		t.Fatalf("source not closed")
	}
}

func TestExtractDropsPartialTimestamps(t *testing.T) {
	p := testParams()
	frames := make([]Frame, 80)
	for i := range frames {
		f := fillRect(4, 4, 0, 0, 4, 4, 50)
		f.Timestamp = float64(i) / 30
		frames[i] = f
	}
	frames[40].Timestamp = -1 // one frame without timing poisons the lot

	series, err := Extract(&SliceSource{Frames: frames}, p)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if series.Timestamps != nil {
		t.Fatalf("expected no timestamps, got %d", len(series.Timestamps))
	}
}

func TestEffectiveRate(t *testing.T) {
	s := Series{NominalRate: 30}
	if s.EffectiveRate() != 30 {
		t.Fatalf("no timestamps should fall back to nominal")
	}
	s.Timestamps = make([]float64, 51)
	for i := range s.Timestamps {
		s.Timestamps[i] = float64(i) / 25
	}
	if got := s.EffectiveRate(); math.Abs(got-25) > 1e-9 {
		t.Fatalf("EffectiveRate = %f, want 25", got)
	}
}

func TestNormalize(t *testing.T) {
	s := FromSamples([]float64{1, 2, 3, 4, 5}, 30).Normalize()
	mean := 0.0
	for _, v := range s.Samples {
		mean += v
	}
	mean /= float64(len(s.Samples))
	if math.Abs(mean) > 1e-12 {
		t.Fatalf("normalized mean = %g, want 0", mean)
	}
	variance := 0.0
	for _, v := range s.Samples {
		variance += v * v
	}
	variance /= float64(len(s.Samples))
	if math.Abs(variance-1) > 1e-12 {
		t.Fatalf("normalized variance = %g, want 1", variance)
	}

	flat := FromSamples([]float64{0.5, 0.5, 0.5}, 30).Normalize()
	for i, v := range flat.Samples {
		if v != 0 {
			t.Fatalf("flat series sample %d = %f, want 0", i, v)
		}
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestRawLumaSource(t *testing.T) {
	// two full 2x2 frames plus a trailing partial one
	data := []byte{10, 20, 30, 40, 50, 60, 70, 80, 99, 99}
	rd := &closeTracker{Reader: bytes.NewReader(data)}
	src := NewRawLumaSource(rd, 2, 2, 30)

	f0, err := src.Next()
	if err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	if f0.Pixels[0] != 10 || f0.Pixels[3] != 40 {
		t.Fatalf("frame 0 pixels wrong: %v", f0.Pixels)
	}
	if f0.Timestamp != 0 {
		t.Fatalf("frame 0 timestamp = %f", f0.Timestamp)
	}

	f1, err := src.Next()
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if f1.Pixels[0] != 50 {
		t.Fatalf("frame 1 pixels wrong: %v", f1.Pixels)
	}
	if math.Abs(f1.Timestamp-1.0/30) > 1e-12 {
		t.Fatalf("frame 1 timestamp = %f", f1.Timestamp)
	}

	// the partial trailing frame is dropped, not surfaced as an error
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after partial frame, got %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !rd.closed {
		t.Fatalf("underlying reader not closed")
	}
}

func TestSliceSourceExhausts(t *testing.T) {
	src := &SliceSource{Frames: []Frame{fillRect(2, 2, 0, 0, 2, 2, 1)}}
	if _, err := src.Next(); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}
