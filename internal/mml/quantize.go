package mml

import "github.com/tadgo/tad/internal/bytecode"

// Quantize emits a Q_n-shortened note: the note itself keys off early,
// followed by silence for the remainder of its nominal length (§8 Scenario
// E). playTicks = ceil(L*n/8) + 1, the +1 folding in the key-off tick
// already accounted for by bytecode.Assembler.PlayNote.
func (g *Generator) Quantize(n uint8, note uint8, length bytecode.Ticks) error {
	playTicks := bytecode.Ticks(ceilDiv(int(length)*int(n), 8)) + 1
	if playTicks > length {
		playTicks = length
	}
	if err := g.emitNote(note, true, playTicks); err != nil {
		return err
	}
	remainder := length - playTicks
	if remainder == 0 {
		return nil
	}
	return g.RestSilent(remainder)
}
