package alphaGenerator

import (
	"errors"
	"testing"

	"github.com/blinklink/blinklink/pkg/session"
)

func testParams() session.Params {
	p := session.DefaultParams()
	p.BitDuration = 0.2
	p.PayloadBits = 10
	return p
}

func TestRenderLength(t *testing.T) {
	p := testParams()
	payload := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 0}

	out, err := Render(p, payload)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := (13 + len(payload)) * p.FramesPerSymbol()
	if len(out) != want {
		t.Fatalf("rendered %d frames, want %d", len(out), want)
	}
}

func TestRenderAlphaRange(t *testing.T) {
	p := testParams()
	p.BaseAlpha = 0.9
	p.DeltaAlpha = 0.5

	out, err := Render(p, []int{1, 0})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	maxSeen := 0.0
	for i, a := range out {
		if a < 0 || a > 1 {
			t.Fatalf("frame %d alpha %f outside [0,1]", i, a)
		}
		if a > maxSeen {
			maxSeen = a
		}
	}
	// 0.9 + 0.5 overshoots, the peak must be clamped to exactly 1
	if maxSeen != 1.0 {
		t.Fatalf("peak alpha %f, expected clamp at 1.0", maxSeen)
	}
}

func TestRenderRejectsBadPayload(t *testing.T) {
	p := testParams()
	_, err := Render(p, []int{1, 0, 2})
	var cfgErr *session.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for non-binary payload, got %v", err)
	}
}

func TestRenderRejectsBadParams(t *testing.T) {
	p := testParams()
	p.Freq1 = p.Freq0
	if _, err := Render(p, []int{1}); err == nil {
		t.Fatalf("expected error for invalid params")
	}
}

func TestWaveformTonesDiffer(t *testing.T) {
	p := testParams()
	zero := Waveform(p, []int{0}, p.CaptureRate)
	one := Waveform(p, []int{1}, p.CaptureRate)
	if len(zero) != len(one) {
		t.Fatalf("tone lengths differ: %d vs %d", len(zero), len(one))
	}
	same := true
	for i := range zero {
		if zero[i] != one[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("the two tones rendered identical waveforms")
	}
}

func TestWaveformPhaseResetsPerSymbol(t *testing.T) {
	p := testParams()
	out := Waveform(p, []int{1, 1}, p.CaptureRate)
	sps := int(p.SamplesPerSymbol())
	if out[0] != p.BaseAlpha {
		t.Fatalf("symbol 0 starts at %f, want base alpha %f", out[0], p.BaseAlpha)
	}
	if out[sps] != p.BaseAlpha {
		t.Fatalf("symbol 1 starts at %f, want base alpha %f", out[sps], p.BaseAlpha)
	}
}
