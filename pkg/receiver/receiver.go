// Package receiver wires the decode pipeline together: normalize the
// intensity series, acquire a preamble lock, walk symbol windows through the
// demodulator and collect bits plus diagnostics. Session-level failures
// (empty capture, sync loss) surface as errors carrying whatever was decoded
// before the failure; per-symbol low confidence is absorbed and counted.
package receiver

import (
	"github.com/blinklink/blinklink/pkg/frameExtract"
	"github.com/blinklink/blinklink/pkg/preambleSync"
	"github.com/blinklink/blinklink/pkg/session"
	"github.com/blinklink/blinklink/pkg/toneDemod"
)

type Diagnostics struct {
	Resyncs                   int
	Erasures                  int
	EffectiveSamplesPerSymbol float64
	LockIndex                 int
	LockScore                 float64
	SymbolsDecoded            int
	DataDuration              float64 // seconds spanned by the decoded data symbols
}

type Result struct {
	Bits []int
	Diag Diagnostics
}

type Options struct {
	// LockOverride skips the preamble search and installs known timing,
	// the operator-supplied counterpart to a manual ROI.
	LockOverride *preambleSync.Lock
}

// Decode runs the full receive pipeline over an extracted intensity series.
func Decode(series frameExtract.Series, p session.Params, opts Options) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	norm := series.Normalize()

	sync, err := preambleSync.New(p)
	if err != nil {
		return Result{}, err
	}
	if opts.LockOverride != nil {
		sync.Override(*opts.LockOverride)
	} else if err := sync.Acquire(norm); err != nil {
		return Result{}, err
	}

	lock := sync.Lock()
	dm := toneDemod.New(p)
	effRate := lock.SamplesPerSymbol / p.BitDuration

	bits := make([]int, 0, p.PayloadBits)
	erasures := 0
	firstSample := lock.DataStart
	lastSample := lock.DataStart

	for i := 0; i < p.PayloadBits; i++ {
		start, end, ok := sync.SymbolWindow(i, len(norm.Samples))
		if !ok {
			// input exhausted, decoded bitstream stays short
			break
		}
		lastSample = end

		dec := dm.Classify(norm.Samples[start:end], effRate)
		bits = append(bits, dec.Bit)
		if dec.Erasure {
			erasures++
		}

		if sync.Observe(dec.Erasure) {
			relocked := sync.Relock(norm, end, i+1)
			if sync.Exhausted() {
				diag := buildDiag(sync, lock, erasures, bits, series, firstSample, lastSample, p)
				return Result{Bits: bits, Diag: diag},
					&preambleSync.SyncLostError{
						DecodedBits: bits,
						Resyncs:     sync.Resyncs(),
						Reason:      "resync retry budget exhausted",
					}
			}
			if relocked {
				lock = sync.Lock()
				effRate = lock.SamplesPerSymbol / p.BitDuration
			}
		}
	}
	sync.Finish()

	diag := buildDiag(sync, lock, erasures, bits, series, firstSample, lastSample, p)
	return Result{Bits: bits, Diag: diag}, nil
}

// DecodeSource extracts the intensity series from a frame source and decodes
// it. The source is closed on every path.
func DecodeSource(src frameExtract.Source, p session.Params, opts Options) (Result, frameExtract.Series, error) {
	series, err := frameExtract.Extract(src, p)
	if err != nil {
		return Result{}, series, err
	}
	res, err := Decode(series, p, opts)
	return res, series, err
}

func buildDiag(sync *preambleSync.Synchronizer, lock preambleSync.Lock, erasures int, bits []int,
	series frameExtract.Series, firstSample, lastSample int, p session.Params) Diagnostics {

	diag := Diagnostics{
		Resyncs:                   sync.Resyncs(),
		Erasures:                  erasures,
		EffectiveSamplesPerSymbol: lock.SamplesPerSymbol,
		LockIndex:                 lock.Index,
		LockScore:                 lock.Score,
		SymbolsDecoded:            len(bits),
	}
	diag.DataDuration = dataDuration(series, firstSample, lastSample, len(bits), p)
	return diag
}

// dataDuration derives the elapsed time of the data window, preamble
// excluded, from capture timestamps when present and from the symbol clock
// otherwise.
func dataDuration(series frameExtract.Series, first, last, symbols int, p session.Params) float64 {
	if last > first && last <= len(series.Timestamps) && first < len(series.Timestamps) {
		rate := series.EffectiveRate()
		if rate > 0 {
			return series.Timestamps[last-1] - series.Timestamps[first] + 1/rate
		}
	}
	return float64(symbols) * p.BitDuration
}
