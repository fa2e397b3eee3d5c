// Package snapshot writes an interpreter.InterpreterOutput into a target's
// APU RAM image and S-DSP/S-SMP registers (§4.5). It is the last stage
// before a driver tick's state is actually audible: everything upstream
// only ever mutates in-memory replay state.
package snapshot

// Driver RAM layout. Addresses are symbolic offsets into the 64KB APU
// address space the real bytecode driver runs in (§6 "Persisted driver RAM
// layout"); the exact values only need to be internally consistent, since
// nothing outside this package and its Target implementations reads them.
const (
	SongPtr           = 0x0010
	SongTickCounter   = 0x0012
	LoaderDataType    = 0x0014
	EonShadowMusic    = 0x0015

	channelStateBase  = 0x0100
	channelStateSize  = 24
)

// Per-channel field offsets within a channel's channelStateSize-byte block.
const (
	offInstructionPtrL = 0
	offInstructionPtrH = 1
	offStackPointer    = 2
	offLoopStackPointer = 3
	offCountdownTimer  = 4
	offNextEventKeyOff = 5
	offPitchOffsetL    = 6
	offPitchOffsetH    = 7
	offVolume          = 8
	offSubVolume       = 9
	offPan             = 10
	offSubPan          = 11
	offVibratoPitchOffsetPerTick = 12
	offVibratoQwtTicks = 13
	offPrevTempGain    = 14
	offEarlyReleaseCmp = 15
	offEarlyReleaseMinTicks = 16
	offEarlyReleaseGain = 17
)

func channelBase(i int) uint16 {
	return channelStateBase + uint16(i)*channelStateSize
}

// S-DSP per-voice register offsets (real hardware layout: a voice's
// registers live at (voice<<4)|reg).
const (
	dspVolL  = 0x00
	dspVolR  = 0x01
	dspScrn  = 0x04
	dspAdsr1 = 0x05
	dspAdsr2OrGain = 0x06

	// dspEon is the global echo-enable bitmask register, one bit per voice.
	dspEon = 0x4D
)

func dspVoiceRegister(voice int, reg byte) byte {
	return byte(voice<<4) | reg
}
