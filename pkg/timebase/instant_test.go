package timebase

import (
	"testing"
	"time"
)

func TestInstant_Compose(t *testing.T) {
	tests := []struct {
		high uint16
		low  uint16
		want Instant
	}{
		{0, 0, 0},
		{0, 4, 0x00000004},
		{1, 4, 0x00010004},
		{0xFFFF, 0xFFFF, 0xFFFFFFFF},
		{0x1234, 0x5678, 0x12345678},
	}

	for _, tt := range tests {
		got := Compose(tt.high, tt.low)
		if got != tt.want {
			t.Errorf("Compose(%d, %d) = %s, want %s", tt.high, tt.low, got, tt.want)
		}
		if got.High() != tt.high {
			t.Errorf("%s.High() = %d, want %d", got, got.High(), tt.high)
		}
		if got.Low() != tt.low {
			t.Errorf("%s.Low() = %d, want %d", got, got.Low(), tt.low)
		}
	}
}

func TestInstant_AddWraps(t *testing.T) {
	i := Instant(0xFFFFFFFF)
	if got := i.Add(1); got != 0 {
		t.Errorf("0xFFFFFFFF + 1 = %s, want 0x00000000", got)
	}

	i = Instant(100)
	if got := i.Add(65536); got != Instant(65636) {
		t.Errorf("Add(65536) = %s, want %s", got, Instant(65636))
	}
}

func TestInstant_SubModulo(t *testing.T) {
	if d := Instant(150).Sub(100); d != 50 {
		t.Errorf("150 - 100 = %d, want 50", d)
	}

	// Elapsed across the 2^32 wrap
	if d := Instant(5).Sub(0xFFFFFFFB); d != 10 {
		t.Errorf("Wrapped elapsed = %d, want 10", d)
	}
}

func TestInstant_String(t *testing.T) {
	if s := Instant(0x00010004).String(); s != "0x00010004" {
		t.Errorf("String() = %q, want %q", s, "0x00010004")
	}
}

func TestDuration_AtRate(t *testing.T) {
	if got := Duration(32768).AtRate(32768); got != time.Second {
		t.Errorf("32768 ticks at 32768 Hz = %v, want 1s", got)
	}
	if got := Duration(16384).AtRate(32768); got != 500*time.Millisecond {
		t.Errorf("16384 ticks at 32768 Hz = %v, want 500ms", got)
	}
	if got := Duration(100).AtRate(0); got != 0 {
		t.Errorf("Zero rate should yield 0, got %v", got)
	}
}
