package brr

import "fmt"

// SamplesPerBlock is the number of PCM samples each BRR block encodes.
const SamplesPerBlock = 16

// BytesPerBlock is the fixed size of one BRR block.
const BytesPerBlock = 9

const maxShift = 12

// EncodeError is a tagged BRR-encode failure (§4.1). Callers should switch
// on the concrete *EncodeError value or use errors.As; no recovery happens
// inside the codec.
type EncodeError struct {
	Kind EncodeErrorKind
	A, B int
}

// EncodeErrorKind enumerates the §4.1 error conditions.
type EncodeErrorKind int

const (
	ErrNoSamples EncodeErrorKind = iota
	ErrInvalidNumberOfSamples
	ErrTooManySamples
	ErrInvalidLoopPoint
	ErrLoopPointTooLarge
	ErrDupeBlockHackNotAllowedWithLoopPoint
	ErrDupeBlockHackNotAllowedWithLoopResetsFilter
	ErrDupeBlockHackTooLarge
)

func (e *EncodeError) Error() string {
	switch e.Kind {
	case ErrNoSamples:
		return "no samples"
	case ErrInvalidNumberOfSamples:
		return fmt.Sprintf("number of samples is not a multiple of %d", SamplesPerBlock)
	case ErrTooManySamples:
		return "too many samples"
	case ErrInvalidLoopPoint:
		return fmt.Sprintf("loop point is not a multiple of %d", SamplesPerBlock)
	case ErrLoopPointTooLarge:
		return fmt.Sprintf("loop point too large (%d, max %d)", e.A, e.B)
	case ErrDupeBlockHackNotAllowedWithLoopPoint:
		return "dupe_block_hack not allowed when loop_point is set"
	case ErrDupeBlockHackNotAllowedWithLoopResetsFilter:
		return "dupe_block_hack does nothing when loop_resets_filter is set"
	case ErrDupeBlockHackTooLarge:
		return "dupe_block_hack value is too large"
	default:
		return "unknown BRR encode error"
	}
}

// Sample is an encoded BRR sample: a sequence of 9-byte blocks plus an
// optional loop byte-offset.
type Sample struct {
	Data       []byte
	LoopOffset *uint16
}

// LoopFilter, when non-nil, pins the filter used by the block at the loop
// point instead of letting the best-block search choose it.
type EncodeOptions struct {
	LoopPoint     *int // sample index, must be a block boundary
	DupeBlockHack *int // block count, <= 64
	LoopFilter    *Filter
}

// Encode compresses 16-sample-aligned PCM into a BRR sample, searching all
// (filter, shift) combinations for each block (§4.1 best-block search) and
// applying the loop/end/dupe-block-hack policy.
func Encode(samples []int16, opts EncodeOptions) (Sample, error) {
	if len(samples) == 0 {
		return Sample{}, &EncodeError{Kind: ErrNoSamples}
	}
	if len(samples)%SamplesPerBlock != 0 {
		return Sample{}, &EncodeError{Kind: ErrInvalidNumberOfSamples}
	}
	if len(samples) > 0xFFFF {
		return Sample{}, &EncodeError{Kind: ErrTooManySamples}
	}

	if opts.LoopPoint != nil && opts.DupeBlockHack != nil {
		return Sample{}, &EncodeError{Kind: ErrDupeBlockHackNotAllowedWithLoopPoint}
	}

	var loopFlag bool
	var loopBlock int
	var loopOffset *uint16

	switch {
	case opts.LoopPoint != nil:
		lp := *opts.LoopPoint
		if lp%SamplesPerBlock != 0 {
			return Sample{}, &EncodeError{Kind: ErrInvalidLoopPoint}
		}
		if lp >= len(samples) {
			return Sample{}, &EncodeError{Kind: ErrLoopPointTooLarge, A: lp, B: len(samples) - SamplesPerBlock}
		}
		loopFlag = true
		loopBlock = lp / SamplesPerBlock
		off := uint16(loopBlock * BytesPerBlock)
		loopOffset = &off

	case opts.DupeBlockHack != nil:
		dbh := *opts.DupeBlockHack
		if dbh > 64 {
			return Sample{}, &EncodeError{Kind: ErrDupeBlockHackTooLarge}
		}
		if opts.LoopFilter != nil && *opts.LoopFilter == Filter0 {
			return Sample{}, &EncodeError{Kind: ErrDupeBlockHackNotAllowedWithLoopResetsFilter}
		}
		loopFlag = true
		loopBlock = dbh
		off := uint16(dbh * BytesPerBlock)
		loopOffset = &off
	}

	dupeCount := 0
	if opts.DupeBlockHack != nil {
		dupeCount = *opts.DupeBlockHack
	}
	nBlocks := len(samples)/SamplesPerBlock + dupeCount
	lastBlockIdx := nBlocks - 1

	data := make([]byte, 0, nBlocks*BytesPerBlock)

	var p1, p2 I15

	for i := 0; i < nBlocks; i++ {
		srcBlock := i % (len(samples) / SamplesPerBlock)
		var in [SamplesPerBlock]I15
		for j := 0; j < SamplesPerBlock; j++ {
			in[j] = FromPCM16(samples[srcBlock*SamplesPerBlock+j])
		}

		var blk block
		switch {
		case i == 0:
			// The first block's predictor state is unknown to the DSP.
			blk = findBestBlockFilter(in, Filter0, p1, p2)
		case loopOffset != nil && i == loopBlock && opts.LoopFilter != nil:
			// Explicit loop-filter override (also how loop-resets-filter is
			// expressed: the caller passes Filter0 here).
			blk = findBestBlockFilter(in, *opts.LoopFilter, p1, p2)
		default:
			blk = findBestBlock(in, p1, p2)
		}

		p1 = blk.decoded[SamplesPerBlock-1]
		p2 = blk.decoded[SamplesPerBlock-2]

		data = append(data, encodeBlock(blk, i == lastBlockIdx, loopFlag)[:]...)
	}

	return Sample{Data: data, LoopOffset: loopOffset}, nil
}

type block struct {
	filter  Filter
	shift   uint8
	nibbles [SamplesPerBlock]int8
	decoded [SamplesPerBlock]I15
}

const (
	i4Min = -8
	i4Max = 7
)

func buildBlock(samples [SamplesPerBlock]I15, shift uint8, filter Filter, p1, p2 I15) block {
	fn := filter.fn()
	div := int32(1) << shift

	var b block
	b.filter = filter
	b.shift = shift

	for i, s := range samples {
		offset := fn(p1, p2)

		// Division, not a shift, so negative residuals round toward zero.
		n := clamp32((int32(s)-offset)<<1/div, i4Min, i4Max)

		d := WrapAndClip(((n << shift) >> 1) + offset)

		p2 = p1
		p1 = d

		b.nibbles[i] = int8(n)
		b.decoded[i] = d
	}
	return b
}

func clamp32(x, lo, hi int32) int32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func squaredError(b block, samples [SamplesPerBlock]I15) int64 {
	var sum int64
	for i, s := range samples {
		delta := int64(b.decoded[i]) - int64(s)
		sum += delta * delta
	}
	return sum
}

func findBestBlock(samples [SamplesPerBlock]I15, p1, p2 I15) block {
	var best block
	bestScore := int64(-1)

	for _, f := range [4]Filter{Filter0, Filter1, Filter2, Filter3} {
		for shift := uint8(0); shift <= maxShift; shift++ {
			b := buildBlock(samples, shift, f, p1, p2)
			score := squaredError(b, samples)
			if bestScore < 0 || score < bestScore {
				best = b
				bestScore = score
			}
		}
	}
	return best
}

func findBestBlockFilter(samples [SamplesPerBlock]I15, filter Filter, p1, p2 I15) block {
	var best block
	bestScore := int64(-1)

	for shift := uint8(0); shift <= maxShift; shift++ {
		b := buildBlock(samples, shift, filter, p1, p2)
		score := squaredError(b, samples)
		if bestScore < 0 || score < bestScore {
			best = b
			bestScore = score
		}
	}
	return best
}

func encodeBlock(b block, endFlag, loopFlag bool) [BytesPerBlock]byte {
	var out [BytesPerBlock]byte

	header := (b.shift&0xF)<<4 | (b.filter.AsU8())<<2
	if endFlag {
		header |= headerEndFlag
		if loopFlag {
			header |= headerLoopFlag
		}
	}
	out[0] = header

	for i := 0; i < SamplesPerBlock/2; i++ {
		hi := byte(b.nibbles[i*2]) & 0xF
		lo := byte(b.nibbles[i*2+1]) & 0xF
		out[1+i] = hi<<4 | lo
	}
	return out
}
