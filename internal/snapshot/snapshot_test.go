package snapshot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/interpreter"
)

type emptySubroutines struct{}

func (emptySubroutines) Lookup(name string) (int, bool) { return 0, false }

func buildOutput(t *testing.T, songDataAddr uint16) interpreter.InterpreterOutput {
	t.Helper()
	asm := bytecode.NewAssembler(emptySubroutines{}, false)
	asm.SetInstrument(1)
	asm.SetPan(64)
	asm.EnableEcho()
	bc, _, err := asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	it := interpreter.NewInterpreter(bc, nil)
	it.SongDataAddr = songDataAddr
	it.StartChannel(0, 0)
	out, err := it.ProcessTicks(1)
	require.NoError(t, err)
	return out
}

func primedTarget(songDataAddr uint16) *MapTarget {
	mt := NewMapTarget()
	binary.LittleEndian.PutUint16(mt.Memory[SongPtr:], songDataAddr)
	return mt
}

func TestWriteRejectsSongPtrMismatch(t *testing.T) {
	out := buildOutput(t, 0x1234)
	mt := NewMapTarget() // SONG_PTR left at 0, does not match

	err := Write(mt, out)
	require.Error(t, err)
	var snapErr *Error
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, SongPtrMismatch, snapErr.Kind)
}

func TestWritePopulatesChannelStateAndDspShadow(t *testing.T) {
	const songDataAddr = 0x4000
	out := buildOutput(t, songDataAddr)
	mt := primedTarget(songDataAddr)

	require.NoError(t, Write(mt, out))

	snap := out.Channels[0]
	require.NotNil(t, snap)
	base := channelBase(0)
	assert.Equal(t, byte(snap.InstructionPtr), mt.Memory[base+offInstructionPtrL])
	assert.Equal(t, byte(snap.InstructionPtr>>8), mt.Memory[base+offInstructionPtrH])
	assert.Equal(t, snap.Pan.Value, mt.Memory[base+offPan])

	shadow := out.DspShadow[0]
	require.NotNil(t, shadow)
	assert.Equal(t, shadow.VolL, mt.DSPRegisters[dspVoiceRegister(0, dspVolL)])
	assert.Equal(t, shadow.VolR, mt.DSPRegisters[dspVoiceRegister(0, dspVolR)])
	assert.Equal(t, shadow.Adsr1, mt.DSPRegisters[dspVoiceRegister(0, dspAdsr1)])

	// Channel 0 enabled echo, so its bit must be set in both the RAM shadow
	// and the DSP's EON register.
	assert.Equal(t, uint8(1), mt.Memory[EonShadowMusic])
	assert.Equal(t, uint8(1), mt.DSPRegisters[dspEon])

	assert.Equal(t, out.TickClock, mt.SMPRegisters[smpTimer0Reload])
}

func TestWriteRejectsPanAboveMax(t *testing.T) {
	const songDataAddr = 0x4000
	out := buildOutput(t, songDataAddr)
	out.Channels[0].Pan.Value = interpreter.MaxPan + 1
	mt := primedTarget(songDataAddr)

	err := Write(mt, out)
	require.Error(t, err)
	var snapErr *Error
	require.ErrorAs(t, err, &snapErr)
	assert.Equal(t, PanOutOfRange, snapErr.Kind)
}
