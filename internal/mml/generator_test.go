package mml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/pitch"
)

type fakeSubroutines map[string]int

func (f fakeSubroutines) Lookup(name string) (int, bool) {
	off, ok := f[name]
	return off, ok
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	asm := bytecode.NewAssembler(fakeSubroutines{}, false)
	asm.SetInstrument(1)
	table := &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000}
	return NewGenerator(asm, table)
}

// Scenario D: "c d e f g a b" and "n60 n62 n64 n65 n67 n69 n71" must produce
// byte-identical bytecode. Since note-name/number parsing is outside this
// package's scope, both "sources" collapse to the same sequence of
// PlayNoteWithMP calls; the assertion that matters is that two independently
// built generators driven by that sequence agree byte-for-byte.
func TestScenarioD_CMajorScaleByteIdentical(t *testing.T) {
	notes := []uint8{60, 62, 64, 65, 67, 69, 71}

	build := func() []byte {
		g := newTestGenerator(t)
		for _, n := range notes {
			require.NoError(t, g.PlayNoteWithMP(n, 24, false))
		}
		bc, _, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
		require.NoError(t, err)
		return bc
	}

	a := build()
	b := build()
	assert.Equal(t, a, b)
	assert.Len(t, a, 2+7*2+1) // set_instrument + 7 play_note(opcode,len) pairs + disable_channel
}

func TestScenarioE_QuantizeQ4(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.Quantize(4, 60, 80))
	bc, state, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	opcode, err := bytecode.EncodeNote(60, true)
	require.NoError(t, err)
	// play_note for 41 ticks with key-off: encoded length 40, plus the key-off tick.
	assert.Equal(t, []byte{byte(bytecode.OpSetInstrument), 1, opcode, 40, byte(bytecode.OpRest), 39, byte(bytecode.OpDisableChannel)}, bc)
	assert.Equal(t, uint32(80), state.TickCounter)
}

func TestScenarioF_LongNoteWrap(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.PlayNoteWithMP(69, 600, false))
	bc, state, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	opcode, err := bytecode.EncodeNote(69, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(bytecode.OpSetInstrument), 1,
		opcode, 0, // play_note NoKeyOff 256 (0 means 256)
		byte(bytecode.OpRest), 0, // rest 256
		byte(bytecode.OpRestKeyoff), 88, // rest_keyoff 88
		byte(bytecode.OpDisableChannel),
	}, bc)
	assert.Equal(t, uint32(600), state.TickCounter)
}

func TestScenarioF_LongNoteWrapSlurred(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.PlayNoteWithMP(69, 600, true))
	bc, _, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	opcode, err := bytecode.EncodeNote(69, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(bytecode.OpSetInstrument), 1,
		opcode, 0,
		byte(bytecode.OpWait), 0,
		byte(bytecode.OpWait), 88,
		byte(bytecode.OpDisableChannel),
	}, bc)
}

func TestScenarioG_RestBelowThresholdIsLinear(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.RestSilent(600))
	bc, _, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(bytecode.OpSetInstrument), 1,
		byte(bytecode.OpRest), 0,
		byte(bytecode.OpRest), 0,
		byte(bytecode.OpRest), 88,
		byte(bytecode.OpDisableChannel),
	}, bc)
}

func TestScenarioG_RestAboveThresholdCompressesIntoLoop(t *testing.T) {
	g := newTestGenerator(t)
	total := bytecode.Ticks(RestLoopThreshold)*MaxTicksNoKeyoff + 1
	require.NoError(t, g.Wait(total))
	bc, state, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)
	assert.Equal(t, byte(bytecode.OpStartLoop), bc[2]) // after set_instrument
	assert.Equal(t, uint32(total), state.TickCounter)
}

func TestScenarioH_Portamento(t *testing.T) {
	g := newTestGenerator(t)
	speed := uint8(10)
	require.NoError(t, g.Portamento(62, 65, false, &speed, 24, 0, 0))
	bc, state, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	leadOpcode, err := bytecode.EncodeNote(62, false)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(bytecode.OpSetInstrument), 1,
		leadOpcode, 1, // play_note d NoKeyOff 1 tick
		byte(bytecode.OpPortamento), 10, 22, // portamento velocity=+10, encoded length=22 (23 ticks, keyoff)
		byte(bytecode.OpDisableChannel),
	}, bc)
	assert.Equal(t, uint32(24), state.TickCounter)
}

func TestBrokenChordTickAccounting(t *testing.T) {
	g := newTestGenerator(t)
	notes := []uint8{60, 62, 64}
	require.NoError(t, g.BrokenChord(notes, 30, 4, false))
	assert.Equal(t, uint32(30), g.Asm.State().TickCounter)
}

func TestAdjustVolumeSplitsLargeDelta(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, g.AdjustVolume(200))
	bc, _, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)
	assert.Equal(t, []byte{
		byte(bytecode.OpSetInstrument), 1,
		byte(bytecode.OpAdjustVolume), 127,
		byte(bytecode.OpAdjustVolume), 73,
		byte(bytecode.OpDisableChannel),
	}, bc)
}

func TestMpVibratoPromotesToManualAfterDisable(t *testing.T) {
	g := newTestGenerator(t)
	g.SetMpVibrato(MpMode{Kind: MpActive, Cents: 50, Qwt: 4})
	require.NoError(t, g.PlayNoteWithMP(60, 24, false))
	assert.Equal(t, MpActive, g.mpMode.Kind)

	g.SetMpVibrato(MpMode{Kind: MpDisabled})
	require.NoError(t, g.PlayNoteWithMP(60, 24, false))
	assert.Equal(t, MpManual, g.mpMode.Kind)
}
