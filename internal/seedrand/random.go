package seedrand

import "unicode/utf16"

// Version identifies the hash contract implemented by Float.
const Version = "mulberry32-javahash/1"

// Func is the signature shared by Float and test doubles.
type Func func(seed string) float64

// Float returns a deterministic value in [0,1) for seed. It hashes the UTF-16
// code units of seed with the 31-multiplier string hash and feeds the result
// through one mulberry32 step, matching the animation engine's random(seed).
func Float(seed string) float64 {
	return mulberry32(uint32(Hash(seed)))
}

// Keyed draws an independent value for one attribute of a base identity.
func Keyed(base, discriminator string) float64 {
	return Float(base + discriminator)
}

// Hash is the signed 32-bit string hash used to seed the generator.
func Hash(seed string) int32 {
	var h int32
	for _, unit := range utf16.Encode([]rune(seed)) {
		h = (h << 5) - h + int32(unit)
	}
	return h
}

// Index scales value into [0,n) and floors it. n must be positive.
func Index(value float64, n int) int {
	idx := int(value * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func mulberry32(a uint32) float64 {
	t := a + 0x6d2b79f5
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296
}
