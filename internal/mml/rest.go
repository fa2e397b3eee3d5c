package mml

import "github.com/tadgo/tad/internal/bytecode"

// silenceKind selects which opcode family a span of silence compiles to.
type silenceKind int

const (
	silenceWait    silenceKind = iota // channel still sounding, no key-off pending
	silenceRest                       // channel already key-released, just idle
	silenceKeyoff                     // this span itself performs the key-off
)

// RestKeyoff emits L ticks of silence ending in a key-off, compressing
// into a loop when L is large enough to be worth it (§4.3.4).
func (g *Generator) RestKeyoff(total bytecode.Ticks) error {
	return g.emitSilence(total, silenceKeyoff)
}

// RestSilent emits L ticks of silence on a channel that has already keyed
// off (§4.3.4's `rest_many_keyoffs`/linear-rest flavor).
func (g *Generator) RestSilent(total bytecode.Ticks) error {
	return g.emitSilence(total, silenceRest)
}

// Wait emits L ticks with no key-off event, for a still-sounding channel
// (§4.3.4).
func (g *Generator) Wait(total bytecode.Ticks) error {
	return g.emitSilence(total, silenceWait)
}

func (g *Generator) emitSilence(total bytecode.Ticks, kind silenceKind) error {
	threshold := bytecode.Ticks(RestLoopThreshold)*MaxTicksNoKeyoff + 1
	if total < threshold || g.insideLoop > 0 {
		return g.emitSilenceLinear(total, kind)
	}

	n, bodyTicks, remainder, ok := bestLoopSplit(total)
	if !ok {
		return g.emitSilenceLinear(total, kind)
	}

	bodyKind := silenceWait
	if kind == silenceRest {
		bodyKind = silenceRest
	}

	if kind == silenceKeyoff && remainder == 0 {
		// The key-off must come last, so the final pass moves out of the loop.
		n--
		remainder = bodyTicks
	}

	if err := g.Asm.StartLoop(uint8(n)); err != nil {
		return toChannelErr(err)
	}
	g.insideLoop++
	err := g.emitSilenceLinear(bodyTicks, bodyKind)
	g.insideLoop--
	if err != nil {
		return err
	}
	if err := g.Asm.EndLoop(); err != nil {
		return toChannelErr(err)
	}
	if remainder == 0 {
		return nil
	}
	return g.emitSilenceLinear(remainder, kind)
}

// emitSilenceLinear emits total ticks as a chain of plain rest/wait
// instructions, each limited to the assembler's single-byte length
// encoding. Only the final chunk carries the key-off when kind is
// silenceKeyoff, since the key-off event fires once and the channel stays
// silent afterward.
func (g *Generator) emitSilenceLinear(total bytecode.Ticks, kind silenceKind) error {
	for total > 0 {
		chunk := total
		if chunk > MaxTicksNoKeyoff {
			chunk = MaxTicksNoKeyoff
		}
		total -= chunk
		last := total == 0

		var err error
		switch {
		case kind == silenceKeyoff && last:
			err = g.Asm.RestKeyoff(chunk)
		case kind == silenceKeyoff, kind == silenceRest:
			err = g.Asm.Rest(chunk)
		default:
			err = g.Asm.Wait(chunk)
		}
		if err != nil {
			return toChannelErr(err)
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// bestLoopSplit picks a loop count n minimising the number of encoded
// instructions needed to emit total ticks as start_loop(n){body}end_loop
// plus a linear remainder (§4.3.4).
func bestLoopSplit(total bytecode.Ticks) (n int, bodyTicks, remainder bytecode.Ticks, ok bool) {
	bestCost := -1
	bestN := 0
	maxPerInstr := int(MaxTicksNoKeyoff)

	for candidate := LoopCountMin; candidate <= LoopCountMax; candidate++ {
		body := int(total) / candidate
		if body < 1 {
			continue
		}
		rem := int(total) % candidate
		cost := ceilDiv(body, maxPerInstr) + ceilDiv(rem, maxPerInstr)
		if bestCost == -1 || cost < bestCost {
			bestCost = cost
			bestN = candidate
		}
	}
	if bestN == 0 {
		return 0, 0, 0, false
	}
	return bestN, bytecode.Ticks(int(total) / bestN), bytecode.Ticks(int(total) % bestN), true
}
