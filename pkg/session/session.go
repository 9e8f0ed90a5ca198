// Package session holds the out-of-band parameter set shared between the
// transmitter and receiver of one optical link session. Both sides must load
// the exact same parameters; a mismatch is a caller error, not something the
// decode pipeline can recover from.
package session

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/blinklink/blinklink/pkg/misc"
)

// Default preamble is a 13-bit Barker code. Its aperiodic autocorrelation
// sidelobes are all <= 1, so the matched filter peaks hard at the true offset.
const DefaultPreamble = "1111100110101"

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// ROI is the receiver crop rectangle in pixel coordinates. A zero ROI means
// "center crop", the 0.3..0.7 fraction window on both axes.
type ROI struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (r ROI) IsZero() bool {
	return r == ROI{}
}

type Params struct {
	Freq0       float64 `yaml:"freq0"`        // tone for bit 0, Hz
	Freq1       float64 `yaml:"freq1"`        // tone for bit 1, Hz
	BitDuration float64 `yaml:"bit_duration"` // seconds per symbol
	RefreshRate float64 `yaml:"refresh_rate"` // display ticks per second
	CaptureRate float64 `yaml:"capture_rate"` // nominal camera frames per second

	Preamble    string `yaml:"preamble"`
	PayloadBits int    `yaml:"payload_bits"` // data bit count, excluding preamble

	BaseAlpha  float64 `yaml:"base_alpha"`
	DeltaAlpha float64 `yaml:"delta_alpha"`

	ROI ROI `yaml:"roi"`

	FreqTolerance      float64 `yaml:"freq_tolerance"`        // Hz band summed around each tone
	ErasureMargin      float64 `yaml:"erasure_margin"`        // min tone energy ratio for a confident symbol
	SyncThreshold      float64 `yaml:"sync_threshold"`        // min normalized correlation for preamble lock
	MaxSearchWindow    int     `yaml:"max_search_window"`     // samples to scan for the preamble; 0 = whole series
	RateScaleSpan      float64 `yaml:"rate_scale_span"`       // +/- fraction searched around the nominal capture rate
	RateScaleSteps     int     `yaml:"rate_scale_steps"`      // grid steps on each side of nominal
	ErasureRunLimit    int     `yaml:"erasure_run_limit"`     // consecutive erasures before resync; 0 disables resync
	MaxResyncRetries   int     `yaml:"max_resync_retries"`
	LengthTolerance    int     `yaml:"length_tolerance"`      // allowed decoded/reference length difference
	MinFramesPerSymbol int     `yaml:"min_frames_per_symbol"` // robustness floor, default 3
}

func DefaultParams() Params {
	return Params{
		Freq0:              5.0,
		Freq1:              10.0,
		BitDuration:        0.4,
		RefreshRate:        60.0,
		CaptureRate:        30.0,
		Preamble:           DefaultPreamble,
		PayloadBits:        16,
		BaseAlpha:          0.5,
		DeltaAlpha:         0.1,
		FreqTolerance:      1.0,
		ErasureMargin:      1.15,
		SyncThreshold:      0.6,
		RateScaleSpan:      0.05,
		RateScaleSteps:     5,
		ErasureRunLimit:    5,
		MaxResyncRetries:   3,
		MinFramesPerSymbol: 3,
	}
}

// FramesPerSymbol is the rendered frame count per symbol at the display rate.
func (p Params) FramesPerSymbol() int {
	return int(math.Round(p.BitDuration * p.RefreshRate))
}

// SamplesPerSymbol is the nominal captured sample count per symbol. Kept as a
// float, the camera rate rarely divides the symbol duration cleanly.
func (p Params) SamplesPerSymbol() float64 {
	return p.BitDuration * p.CaptureRate
}

// PreambleBits returns the preamble pattern as a bit slice.
func (p Params) PreambleBits() ([]int, error) {
	bits, err := misc.ParseBits(p.Preamble)
	if err != nil {
		return nil, &ConfigError{Field: "preamble", Reason: err.Error()}
	}
	return bits, nil
}

func (p Params) Validate() error {
	if p.Freq0 <= 0 {
		return &ConfigError{Field: "freq0", Reason: "must be positive"}
	}
	if p.Freq1 <= 0 {
		return &ConfigError{Field: "freq1", Reason: "must be positive"}
	}
	if p.Freq0 == p.Freq1 {
		return &ConfigError{Field: "freq1", Reason: "tones must differ"}
	}
	if p.BitDuration <= 0 {
		return &ConfigError{Field: "bit_duration", Reason: "must be positive"}
	}
	if p.RefreshRate <= 0 {
		return &ConfigError{Field: "refresh_rate", Reason: "must be positive"}
	}
	if p.CaptureRate <= 0 {
		return &ConfigError{Field: "capture_rate", Reason: "must be positive"}
	}
	floor := p.MinFramesPerSymbol
	if floor <= 0 {
		floor = 3
	}
	if p.FramesPerSymbol() < floor {
		return &ConfigError{
			Field:  "bit_duration",
			Reason: fmt.Sprintf("%d frames per symbol is below the floor of %d", p.FramesPerSymbol(), floor),
		}
	}
	if p.SamplesPerSymbol() < float64(floor) {
		return &ConfigError{
			Field:  "capture_rate",
			Reason: fmt.Sprintf("%.2f samples per symbol is below the floor of %d", p.SamplesPerSymbol(), floor),
		}
	}
	hi := math.Max(p.Freq0, p.Freq1)
	if hi >= p.RefreshRate/2 {
		return &ConfigError{Field: "refresh_rate", Reason: fmt.Sprintf("tone %.1f Hz violates Nyquist at %.1f ticks/s", hi, p.RefreshRate)}
	}
	if hi >= p.CaptureRate/2 {
		return &ConfigError{Field: "capture_rate", Reason: fmt.Sprintf("tone %.1f Hz violates Nyquist at %.1f fps", hi, p.CaptureRate)}
	}
	if p.DeltaAlpha <= 0 {
		return &ConfigError{Field: "delta_alpha", Reason: "must be positive"}
	}
	if p.BaseAlpha < 0 || p.BaseAlpha > 1 {
		return &ConfigError{Field: "base_alpha", Reason: "must be within [0,1]"}
	}
	if p.PayloadBits < 1 {
		return &ConfigError{Field: "payload_bits", Reason: "must transmit at least one bit"}
	}
	if p.Preamble == "" {
		return &ConfigError{Field: "preamble", Reason: "must not be empty"}
	}
	if _, err := p.PreambleBits(); err != nil {
		return err
	}
	if p.ErasureMargin < 1 {
		return &ConfigError{Field: "erasure_margin", Reason: "ratio must be >= 1"}
	}
	if p.SyncThreshold <= 0 || p.SyncThreshold >= 1 {
		return &ConfigError{Field: "sync_threshold", Reason: "must be within (0,1)"}
	}
	return nil
}

// Load reads session parameters from a YAML file. Fields missing from the
// file keep their defaults.
func Load(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading session file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parsing session file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Save writes the parameter set as YAML, the file both sides share.
func (p Params) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding session file: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
