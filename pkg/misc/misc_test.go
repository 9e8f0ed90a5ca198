package misc

import "testing"

func TestParseFormatBits(t *testing.T) {
	bits, err := ParseBits("1011001010")
	if err != nil {
		t.Fatalf("ParseBits failed: %v", err)
	}
	want := []int{1, 0, 1, 1, 0, 0, 1, 0, 1, 0}
	if len(bits) != len(want) {
		t.Fatalf("length %d, want %d", len(bits), len(want))
	}
	for i := range want {
		if bits[i] != want[i] {
			t.Fatalf("bit %d = %d, want %d", i, bits[i], want[i])
		}
	}
	if got := FormatBits(bits); got != "1011001010" {
		t.Fatalf("FormatBits = %q", got)
	}
}

func TestParseBitsRejectsGarbage(t *testing.T) {
	if _, err := ParseBits("10201"); err == nil {
		t.Fatalf("expected error for non-binary input")
	}
}

func TestCompareBits(t *testing.T) {
	a := []int{1, 0, 1, 1}
	b := []int{1, 1, 1, 0}
	if got := CompareBits(a, b); got != 2 {
		t.Fatalf("CompareBits = %d, want 2", got)
	}
	// overlapping prefix only
	if got := CompareBits(a, []int{0}); got != 1 {
		t.Fatalf("CompareBits short = %d, want 1", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Fatalf("Clamp high = %f", got)
	}
	if got := Clamp(-0.5, 0.0, 1.0); got != 0.0 {
		t.Fatalf("Clamp low = %f", got)
	}
	if got := Clamp(0.25, 0.0, 1.0); got != 0.25 {
		t.Fatalf("Clamp inside = %f", got)
	}
}
