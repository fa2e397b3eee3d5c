package brr

// Filter is one of the S-DSP's four predictor filters.
type Filter uint8

const (
	Filter0 Filter = iota
	Filter1
	Filter2
	Filter3
)

// filterFn computes the predicted offset from the two most recently decoded
// samples. p1 is the sample immediately before the one being predicted, p2
// the one before that.
type filterFn func(p1, p2 I15) int32

func filter0(p1, p2 I15) int32 {
	return 0
}

// filter1 approximates p1 * 15/16, rounded toward negative infinity.
func filter1(p1, p2 I15) int32 {
	return int32(p1) + ((-int32(p1)) >> 4)
}

// filter2 approximates p1*61/32 - p2*15/16, as two separate arithmetic
// shifts (not one shift of a combined numerator — the two round
// independently, and hardware does too).
func filter2(p1, p2 I15) int32 {
	return 2*int32(p1) + ((-3 * int32(p1)) >> 5) - int32(p2) + (int32(p2) >> 4)
}

// filter3 approximates p1*115/64 - p2*13/16. Historical emulator docs give
// slightly different textual forms for this filter; this is the bit-exact
// one, confirmed against the BRR codec test scenarios rather than any one
// reference (see spec Open Questions).
func filter3(p1, p2 I15) int32 {
	return 2*int32(p1) + ((-13 * int32(p1)) >> 6) - int32(p2) + ((3 * int32(p2)) >> 4)
}

var filterFns = [4]filterFn{filter0, filter1, filter2, filter3}

func (f Filter) fn() filterFn {
	return filterFns[f]
}

// AsU8 returns the filter's 2-bit header encoding.
func (f Filter) AsU8() uint8 {
	return uint8(f)
}
