// Package ber aligns a decoded bitstream against the transmitted reference
// and reports bit error rate and effective data rate.
package ber

import (
	"fmt"

	"github.com/blinklink/blinklink/pkg/misc"
)

type LengthMismatchError struct {
	Decoded   int
	Reference int
	Tolerance int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("decoded length %d vs reference %d differs beyond tolerance %d", e.Decoded, e.Reference, e.Tolerance)
}

type Report struct {
	Compared      int
	Errors        int
	BER           float64 // errors / compared, in [0,1]
	BitsPerSecond float64 // reference bits over the elapsed data window
}

// Compare computes BER over the overlapping prefix of decoded and reference.
// elapsed is the recording time spanned by the data symbols, in seconds.
// Lengths differing by more than tolerance fail with LengthMismatchError
// rather than silently truncating; neither input is mutated.
func Compare(decoded, reference []int, elapsed float64, tolerance int) (Report, error) {
	if misc.Abs(len(decoded)-len(reference)) > tolerance {
		return Report{}, &LengthMismatchError{
			Decoded:   len(decoded),
			Reference: len(reference),
			Tolerance: tolerance,
		}
	}

	n := min(len(decoded), len(reference))
	rep := Report{Compared: n}
	if n == 0 {
		return rep, nil
	}
	rep.Errors = misc.CompareBits(decoded, reference)
	rep.BER = float64(rep.Errors) / float64(n)
	if elapsed > 0 {
		rep.BitsPerSecond = float64(len(reference)) / elapsed
	}
	return rep, nil
}
