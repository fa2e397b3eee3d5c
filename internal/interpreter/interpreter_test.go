package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/bytecode"
)

type fakeInstruments map[uint8]Instrument

func (f fakeInstruments) Instrument(id uint8) (Instrument, bool) {
	inst, ok := f[id]
	return inst, ok
}

func buildChannelBytecode(t *testing.T, build func(asm *bytecode.Assembler)) []byte {
	t.Helper()
	asm := bytecode.NewAssembler(emptySubroutines{}, false)
	build(asm)
	bc, _, err := asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)
	return bc
}

type emptySubroutines struct{}

func (emptySubroutines) Lookup(name string) (int, bool) { return 0, false }

func TestPlayNoteAdvancesTicksWithKeyOff(t *testing.T) {
	bc := buildChannelBytecode(t, func(asm *bytecode.Assembler) {
		asm.SetInstrument(1)
		require.NoError(t, asm.PlayNote(10, true, 24))
	})

	it := NewInterpreter(bc, fakeInstruments{1: {SampleSourceNumber: 3}})
	it.StartChannel(0, 0)

	out, err := it.ProcessTicks(24)
	require.NoError(t, err)
	assert.Equal(t, uint32(24), it.CurrentTick)
	assert.NotNil(t, out.Channels[0])

	_, err = it.ProcessTicks(1) // lets the channel reach its disable_channel terminator
	require.NoError(t, err)
	assert.True(t, it.Channels[0].Disabled)
}

func TestRestResetsTempGainWaitDoesNot(t *testing.T) {
	bc := buildChannelBytecode(t, func(asm *bytecode.Assembler) {
		require.NoError(t, asm.Wait(10))
		require.NoError(t, asm.Rest(10))
	})
	it := NewInterpreter(bc, nil)
	it.StartChannel(0, 0)
	it.Channels[0].TempGain = 5

	_, err := it.ProcessTicks(10)
	require.NoError(t, err)
	assert.Equal(t, uint8(5), it.Channels[0].TempGain, "wait must not reset temp_gain")

	_, err = it.ProcessTicks(10)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), it.Channels[0].TempGain, "rest must reset temp_gain")
}

func TestLoopExecutesBodyCountTimes(t *testing.T) {
	bc := buildChannelBytecode(t, func(asm *bytecode.Assembler) {
		require.NoError(t, asm.StartLoop(3))
		require.NoError(t, asm.Wait(10))
		require.NoError(t, asm.EndLoop())
	})
	it := NewInterpreter(bc, nil)
	it.StartChannel(0, 0)

	_, err := it.ProcessTicks(30)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), it.Channels[0].Ticks)
}

func TestSkipLastLoopShortensFinalIteration(t *testing.T) {
	asm := bytecode.NewAssembler(emptySubroutines{}, false)
	require.NoError(t, asm.StartLoop(3))
	require.NoError(t, asm.Wait(5))
	skipPos, err := asm.SkipLastLoop()
	require.NoError(t, err)
	require.NoError(t, asm.Wait(5)) // only played on non-final iterations
	require.NoError(t, asm.EndLoop())
	require.NoError(t, asm.PatchSkipDistance(skipPos))
	bc, _, err := asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	it := NewInterpreter(bc, nil)
	it.StartChannel(0, 0)

	// Stop after the first wait of the loop's third and final pass, before
	// its skip_last_loop has run.
	_, err = it.ProcessTicks(21)
	require.NoError(t, err)
	assert.False(t, it.Channels[0].Disabled)
	assert.Equal(t, uint32(25), it.Channels[0].Ticks)

	// Target 26 lets the channel step again: skip_last_loop jumps past the
	// second wait and end_loop straight to disable_channel. Without the skip
	// the second wait would run instead and leave the channel enabled.
	_, err = it.ProcessTicks(5)
	require.NoError(t, err)
	assert.True(t, it.Channels[0].Disabled)
}

func TestCallAndReturnSubroutine(t *testing.T) {
	subAsm := bytecode.NewAssembler(emptySubroutines{}, true)
	require.NoError(t, subAsm.Wait(7))
	subBC, _, err := subAsm.Bytecode(bytecode.TermReturnFromSubroutine, "")
	require.NoError(t, err)

	lookup := fixedLookup{"verse": 0}
	mainAsm := bytecode.NewAssembler(lookup, false)
	require.NoError(t, mainAsm.CallSubroutine("verse"))
	require.NoError(t, mainAsm.Wait(3))
	mainBC, _, err := mainAsm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)

	song := append(append([]byte{}, subBC...), mainBC...)
	mainOffset := uint16(len(subBC))

	it := NewInterpreter(song, nil)
	it.StartChannel(0, mainOffset)

	_, err = it.ProcessTicks(10)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), it.Channels[0].Ticks)
}

type fixedLookup map[string]int

func (f fixedLookup) Lookup(name string) (int, bool) {
	v, ok := f[name]
	return v, ok
}

func TestDisabledChannelPinsTicksToMax(t *testing.T) {
	bc := buildChannelBytecode(t, func(asm *bytecode.Assembler) {})
	it := NewInterpreter(bc, nil)
	it.StartChannel(0, 0)

	_, err := it.ProcessTicks(5)
	require.NoError(t, err)
	assert.True(t, it.Channels[0].Disabled)
	assert.Equal(t, TickMax, it.Channels[0].Ticks)
}

func TestWatchdogStopsRunawayLoop(t *testing.T) {
	bc := buildChannelBytecode(t, func(asm *bytecode.Assembler) {
		require.NoError(t, asm.StartLoop(255))
		require.NoError(t, asm.EndLoop())
	})
	it := NewInterpreter(bc, nil)
	it.WatchdogInstructions = 10
	it.StartChannel(0, 0)

	_, err := it.ProcessTicks(1_000_000)
	require.Error(t, err)
	assert.IsType(t, &ErrWatchdogExceeded{}, err)
}

func TestCountdownTimerDerivation(t *testing.T) {
	ch := &Channel{Ticks: 110}
	countdown, keyOff := countdownTimer(ch, 100)
	assert.Equal(t, uint8(11), countdown)
	assert.Equal(t, uint8(0), keyOff)

	ch = &Channel{Ticks: 100 + 0xFF}
	countdown, keyOff = countdownTimer(ch, 100)
	assert.Equal(t, uint8(0), countdown)
	assert.Equal(t, uint8(0), keyOff)

	ch = &Channel{Ticks: 100 + 0x100}
	countdown, keyOff = countdownTimer(ch, 100)
	assert.Equal(t, uint8(0), countdown)
	assert.Equal(t, uint8(0xFF), keyOff)

	ch = &Channel{Disabled: true, Ticks: TickMax}
	countdown, keyOff = countdownTimer(ch, 100)
	assert.Equal(t, uint8(1), countdown)
	assert.Equal(t, uint8(0), keyOff)
}

func TestStereoVolumePanDerivation(t *testing.T) {
	it := NewInterpreter(nil, nil)
	it.Stereo = true
	ch := NewChannel(0)
	ch.Volume.SetValue(255)
	ch.Pan.SetValue(MaxPan)
	snap := it.channelSnapshot(ch, 0)
	shadow := it.dspShadow(snap, ch)
	assert.Equal(t, uint8(0), shadow.VolL, "fully panned right silences the left channel")
	assert.Equal(t, uint8(127), shadow.VolR)
}

func TestPanVolSlideReachesTarget(t *testing.T) {
	pv := NewPanVol(255, 0)
	pv.SlideUp(10, fixedPointOffset(255, 10), 0)
	pv.Finalize(10)
	assert.Equal(t, uint8(255), pv.Value)
	assert.Equal(t, DirNone, pv.Dir)
}

func TestPanVolTriangleOscillates(t *testing.T) {
	pv := NewPanVol(255, 128)
	pv.Triangle(4, fixedPointOffset(64, 4), 0)
	pv.Finalize(4)
	assert.NotEqual(t, uint8(128), pv.Value)
}
