package mml

import (
	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/diagnostics"
	"github.com/tadgo/tad/internal/pitch"
)

// MpKind selects the channel's current vibrato policy (§4.3.2).
type MpKind int

const (
	MpDisabled MpKind = iota
	MpManual
	MpActive
)

// MpMode is the generator's transient vibrato policy, tracked alongside
// (but separate from) the assembler's own vibrato state.
type MpMode struct {
	Kind MpKind
	Cents int
	Qwt   uint8
}

// Generator drives a bytecode.Assembler from semantic MML commands. It
// owns only the transient state the assembler does not: the MP-vibrato
// policy and the pending loop-point offset (§4.3).
type Generator struct {
	Asm   *bytecode.Assembler
	Pitch pitch.Table

	mpMode        MpMode
	loopPointSet  bool
	loopPointOffs int
	insideLoop    int // nesting depth, to gate loop-compressed rests
}

// NewGenerator creates a channel generator writing through asm, resolving
// vibrato/portamento pitches from table.
func NewGenerator(asm *bytecode.Assembler, table pitch.Table) *Generator {
	return &Generator{Asm: asm, Pitch: table, mpMode: MpMode{Kind: MpDisabled}}
}

// SetMpVibrato switches the generator's vibrato policy (§4.3.2).
func (g *Generator) SetMpVibrato(mode MpMode) {
	g.mpMode = mode
}

func (g *Generator) currentInstrument() (uint8, bool) {
	return g.Asm.State().Instrument.ID()
}

// SetLoopPoint records the song's loop point at the assembler's current
// offset; may only be called once per channel (§4.3 loop-point rule).
func (g *Generator) SetLoopPoint() error {
	if g.loopPointSet {
		return diagnostics.NewLoopPointAlreadySet()
	}
	g.loopPointSet = true
	g.loopPointOffs = g.Asm.Offset()
	return nil
}

// LoopPointOffset returns the recorded loop point, if any.
func (g *Generator) LoopPointOffset() (int, bool) {
	return g.loopPointOffs, g.loopPointSet
}

// splitNote implements the §4.3.1 length-split rule, returning the leading
// play_note's total tick cost and the trailing remainder (0 if none).
func splitNote(length bytecode.Ticks, isSlur bool) (lead bytecode.Ticks, remainder bytecode.Ticks) {
	switch {
	case !isSlur && length <= MaxTicksKeyoff:
		return length, 0
	case length <= MaxTicksNoKeyoff:
		return length, 0
	case length >= MaxTicksNoKeyoff+MinTicksKeyoff:
		return MaxTicksNoKeyoff, length - MaxTicksNoKeyoff
	default:
		return MaxTicksNoKeyoff - 1, length - (MaxTicksNoKeyoff - 1)
	}
}

// PlayNoteWithMP emits `note` for `length` ticks, applying the generator's
// current MP-vibrato policy and splitting the length into a leading
// play_note plus a trailing rest/wait/rest_keyoff as needed (§4.3.1,
// §4.3.2).
func (g *Generator) PlayNoteWithMP(note uint8, length bytecode.Ticks, isSlur bool) error {
	lead, remainder := splitNote(length, isSlur)
	keyOff := !isSlur && remainder == 0

	if err := g.emitNote(note, keyOff, lead); err != nil {
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

// emitNote applies the MP-vibrato contract (§4.3.2) before delegating the
// actual opcode emission to the assembler.
func (g *Generator) emitNote(note uint8, keyOff bool, length bytecode.Ticks) error {
	switch g.mpMode.Kind {
	case MpManual:
		return toChannelErr(g.Asm.PlayNote(note, keyOff, length))

	case MpDisabled:
		v := g.Asm.State().Vibrato
		if v.Kind == bytecode.VibratoDisabled || v.Kind == bytecode.VibratoUnchanged {
			return toChannelErr(g.Asm.PlayNote(note, keyOff, length))
		}
		if err := toChannelErr(g.Asm.SetVibratoDepthAndPlayNote(0, note, keyOff, length)); err != nil {
			return err
		}
		if g.insideLoop == 0 {
			g.mpMode = MpMode{Kind: MpManual}
		}
		return nil

	case MpActive:
		instID, ok := g.currentInstrument()
		if !ok {
			return diagnostics.NewCannotUseMpWithoutInstrument()
		}
		p, err := g.Pitch.Pitch(instID, note)
		if err != nil {
			return diagnostics.NewBytecodeError(err)
		}
		po, err := pitch.MpPitchOffset(g.mpMode.Cents, g.mpMode.Qwt, p)
		if err != nil {
			return mapMpError(err)
		}
		v := g.Asm.State().Vibrato
		switch {
		case v.Equal(po, g.mpMode.Qwt):
			return toChannelErr(g.Asm.PlayNote(note, keyOff, length))
		case v.Kind == bytecode.VibratoSet && v.Qwt == g.mpMode.Qwt:
			return toChannelErr(g.Asm.SetVibratoDepthAndPlayNote(po, note, keyOff, length))
		default:
			g.Asm.SetVibrato(po, g.mpMode.Qwt)
			return toChannelErr(g.Asm.PlayNote(note, keyOff, length))
		}

	default:
		return toChannelErr(g.Asm.PlayNote(note, keyOff, length))
	}
}

func mapMpError(err error) error {
	if perr, ok := err.(*pitch.MpPitchOffsetError); ok {
		switch perr.Kind {
		case pitch.MpOffsetDepthZero:
			return diagnostics.NewMpDepthZero()
		case pitch.MpOffsetTooLarge:
			return diagnostics.NewMpPitchOffsetTooLarge(perr.Value)
		}
	}
	return diagnostics.NewBytecodeError(err)
}

func toChannelErr(err error) error {
	if err == nil {
		return nil
	}
	return diagnostics.NewBytecodeError(err)
}
