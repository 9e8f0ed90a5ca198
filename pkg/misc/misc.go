package misc

import (
	"fmt"
	"time"

	"golang.org/x/exp/constraints"
)

// Function that converts a string of 1/0s to a bit slice, rejecting anything else
func ParseBits(s string) ([]int, error) {
	bits := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			bits[i] = 0
		case '1':
			bits[i] = 1
		default:
			return nil, fmt.Errorf("invalid bit %q at position %d", s[i], i)
		}
	}
	return bits, nil
}

// Function that converts a bit slice to a string of 1/0s
func FormatBits(bits []int) string {
	s := make([]byte, len(bits))
	for i, b := range bits {
		if b == 0 {
			s[i] = '0'
		} else {
			s[i] = '1'
		}
	}
	return string(s)
}

// Function that compares two bit slices over their overlapping prefix and returns the number of different bits
func CompareBits(a, b []int) int {
	n := min(len(a), len(b))
	diff := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diff++
		}
	}
	return diff
}

func Clamp[T constraints.Float](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func Log(level, msg string) {
	switch level {
	case "info":
		fmt.Printf("\x1b[32m%s [INFO] %s\x1b[0m\n", time.Now().Format("15:04:05"), msg)
	case "error":
		fmt.Printf("\x1b[31m%s [ERROR] %s\x1b[0m\n", time.Now().Format("15:04:05"), msg)
	case "warning":
		fmt.Printf("\x1b[33m%s [WARNING] %s\x1b[0m\n", time.Now().Format("15:04:05"), msg)
	case "debug":
		fmt.Printf("\x1b[36m%s [DEBUG] %s\x1b[0m\n", time.Now().Format("15:04:05"), msg)
	default:
		fmt.Printf("%s [UNKNOWN] %s\n", time.Now().Format("15:04:05"), msg)
	}
}
