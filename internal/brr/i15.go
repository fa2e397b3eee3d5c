// Package brr implements the S-DSP's BRR (Bit Rate Reduction) sample codec:
// PCM-to-BRR encoding with a best-block filter/shift search, and the matching
// decoder used to verify bit-exact round trips.
package brr

// I15 is a signed sample in [-16384, 16383], the range the S-DSP's decoder
// actually produces. Values outside this range never escape WrapAndClip.
type I15 int32

// FromPCM16 converts a 16-bit PCM sample to I15 by arithmetic right shift of
// one, matching the DSP's own truncation when it receives 16-bit source audio.
func FromPCM16(s int16) I15 {
	return I15(int32(s) >> 1)
}

// ToPCM16 restores a 16-bit PCM sample from I15 by left shift of one.
func (s I15) ToPCM16() int16 {
	return int16(int32(s) << 1)
}

// WrapAndClip reduces x modulo 2^15 into [-16384, 16383] by sign-extending
// the low 15 bits, the same wrap-around the hardware decoder exhibits on
// overflow instead of saturating.
func WrapAndClip(x int32) I15 {
	x &= 0x7FFF
	if x >= 0x4000 {
		x -= 0x8000
	}
	return I15(x)
}
