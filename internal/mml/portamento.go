package mml

import (
	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/diagnostics"
)

// Portamento emits a pitch slide from note1 to note2 (§4.3.5). total is the
// combined tick length of the lead-in note plus the slide; delay postpones
// the start of the slide; tie extends the slide itself by tie ticks beyond
// the base portamento length. speedOverride, when non-nil, replaces the
// computed velocity's magnitude (the sign still follows note1 < note2).
func (g *Generator) Portamento(note1, note2 uint8, isSlur bool, speedOverride *uint8, total, delay, tie bytecode.Ticks) error {
	prev := g.Asm.State().PrevSlurredNote
	if !(prev.Kind == bytecode.SlurSlurred && prev.Note == note1) {
		leadIn := delay
		if leadIn < 1 {
			leadIn = 1
		}
		if err := g.emitNote(note1, false, leadIn); err != nil {
			return err
		}
	} else if delay > 0 {
		if err := toChannelErr(g.Asm.Wait(delay)); err != nil {
			return err
		}
	}

	note1Ticks := delay
	if note1Ticks < 1 {
		note1Ticks = 1
	}
	if int(total) <= int(note1Ticks) {
		return diagnostics.NewPortamentoDelayTooLong()
	}
	portamentoLength := total - note1Ticks

	velocity, err := g.portamentoVelocity(note1, note2, speedOverride, portamentoLength)
	if err != nil {
		return err
	}

	length := tie + portamentoLength
	lead, remainder := splitNote(length, isSlur)
	keyOff := !isSlur && remainder == 0
	if err := toChannelErr(g.Asm.Portamento(velocity, keyOff, lead)); err != nil {
		return err
	}
	if remainder == 0 {
		return nil
	}
	if isSlur {
		return g.Wait(remainder)
	}
	return g.RestKeyoff(remainder)
}

func (g *Generator) portamentoVelocity(note1, note2 uint8, override *uint8, length bytecode.Ticks) (int8, error) {
	if override != nil {
		mag := int(*override)
		if note1 >= note2 {
			mag = -mag
		}
		if mag > 127 || mag < -128 {
			return 0, diagnostics.NewPortamentoVelocityOutOfRange(mag)
		}
		return int8(mag), nil
	}

	instID, ok := g.currentInstrument()
	if !ok {
		return 0, diagnostics.NewPortamentoRequiresInstrument()
	}
	p1, err := g.Pitch.Pitch(instID, note1)
	if err != nil {
		return 0, toChannelErr(err)
	}
	p2, err := g.Pitch.Pitch(instID, note2)
	if err != nil {
		return 0, toChannelErr(err)
	}
	raw := (int(p2) - int(p1)) / int(length)
	if raw > 127 || raw < -128 {
		return 0, diagnostics.NewPortamentoVelocityOutOfRange(raw)
	}
	return int8(raw), nil
}
