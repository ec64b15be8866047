package timebase

import (
	"fmt"
	"time"
)

// Instant is an absolute tick count since clock start, composed from a 16-bit
// high word and the 16-bit hardware counter. It wraps after 2^32 ticks; the
// wrap is accepted, application uptime is assumed far shorter. Instants are
// plain unsigned integers, so < and <= order them directly.
type Instant uint32

// Duration is a span of time in ticks, derived by subtracting two Instants
// modulo 2^32.
type Duration uint32

// Compose builds an Instant from a high word and a low counter reading.
func Compose(high, low uint16) Instant {
	return Instant(uint32(high)<<16 | uint32(low))
}

// High returns the upper 16 bits of the instant.
func (i Instant) High() uint16 {
	return uint16(uint32(i) >> 16)
}

// Low returns the lower 16 bits of the instant.
func (i Instant) Low() uint16 {
	return uint16(i)
}

// Add returns the instant shifted forward by d, wrapping modulo 2^32.
func (i Instant) Add(d Duration) Instant {
	return Instant(uint32(i) + uint32(d))
}

// Sub returns the tick count elapsed from earlier to i, modulo 2^32.
func (i Instant) Sub(earlier Instant) Duration {
	return Duration(uint32(i) - uint32(earlier))
}

// String renders the instant as its raw 32-bit value.
func (i Instant) String() string {
	return fmt.Sprintf("0x%08X", uint32(i))
}

// AtRate converts the duration to wall time at the given tick rate.
func (d Duration) AtRate(tickHz uint32) time.Duration {
	if tickHz == 0 {
		return 0
	}
	return time.Duration(uint64(d) * uint64(time.Second) / uint64(tickHz))
}
