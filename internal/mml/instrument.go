package mml

import "github.com/tadgo/tad/internal/bytecode"

// InstrumentDefaults resolves an instrument id to the envelope it resets to
// on a bare set_instruction (§4.3.7).
type InstrumentDefaults interface {
	DefaultEnvelope(instrumentID uint8) (bytecode.Envelope, bool)
}

// SetInstrument applies the §4.3.7 smallest-delta rule: a bare
// set_instrument when the requested envelope matches the instrument's
// default, otherwise the combined set_instrument_and_adsr/_gain opcode.
func (g *Generator) SetInstrument(defaults InstrumentDefaults, id uint8, env bytecode.Envelope) {
	if d, ok := defaults.DefaultEnvelope(id); ok && d.Equal(env) {
		g.Asm.SetInstrument(id)
		return
	}
	if env.IsGain {
		g.Asm.SetInstrumentAndGain(id, env)
		return
	}
	g.Asm.SetInstrumentAndADSR(id, env)
}

// SetEnvelope changes only the envelope, keeping the current instrument
// (§4.3.7).
func (g *Generator) SetEnvelope(env bytecode.Envelope) {
	if env.IsGain {
		g.Asm.SetGain(env)
		return
	}
	g.Asm.SetADSR(env)
}
