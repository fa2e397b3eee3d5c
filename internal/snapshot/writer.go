package snapshot

import (
	"encoding/binary"

	"github.com/tadgo/tad/internal/interpreter"
)

// smpTimer0Reload is the S-SMP timer 0 reload register (SPC700 $FA);
// tick_clock reloads it so the driver's tick rate tracks the song's tempo.
const smpTimer0Reload = 0xFA

// Write applies an InterpreterOutput to target, mutating its APU RAM image
// and pushing the per-voice DSP register shadow and timer reload the real
// hardware reads every tick (§4.5).
func Write(target Target, out interpreter.InterpreterOutput) error {
	ram := target.ApuRAM()

	if got := binary.LittleEndian.Uint16(ram[SongPtr:]); got != out.SongDataAddr {
		return &Error{Kind: SongPtrMismatch, Got: int(got), Want: int(out.SongDataAddr)}
	}

	binary.LittleEndian.PutUint16(ram[SongTickCounter:], out.SongTick)

	var eon uint8
	for i := 0; i < len(out.Channels); i++ {
		snap := out.Channels[i]
		shadow := out.DspShadow[i]
		if snap == nil || shadow == nil {
			continue
		}

		if snap.Pan.Value > interpreter.MaxPan {
			return &Error{Kind: PanOutOfRange, Channel: i, Got: int(snap.Pan.Value)}
		}
		if int(snap.StackPointer) > interpreter.StackCapacity || int(snap.LoopStackPointer) > interpreter.StackCapacity {
			return &Error{Kind: StackPointerOverflow, Channel: i, Got: int(snap.StackPointer)}
		}

		writeChannelState(ram, i, snap)

		t := dspVoiceRegister(i, 0)
		target.WriteDSPRegister(t|dspVolL, shadow.VolL)
		target.WriteDSPRegister(t|dspVolR, shadow.VolR)
		target.WriteDSPRegister(t|dspScrn, shadow.Scrn)
		target.WriteDSPRegister(t|dspAdsr1, shadow.Adsr1)
		target.WriteDSPRegister(t|dspAdsr2OrGain, shadow.Adsr2OrGain)

		if shadow.EchoEnabled {
			eon |= 1 << uint(i)
		}
	}

	ram[EonShadowMusic] = eon
	target.WriteDSPRegister(dspEon, eon)
	target.WriteSMPRegister(smpTimer0Reload, out.TickClock)

	return nil
}

func writeChannelState(ram *[65536]byte, channel int, snap *interpreter.ChannelSnapshot) {
	base := channelBase(channel)
	ram[base+offInstructionPtrL] = byte(snap.InstructionPtr)
	ram[base+offInstructionPtrH] = byte(snap.InstructionPtr >> 8)
	ram[base+offStackPointer] = snap.StackPointer
	ram[base+offLoopStackPointer] = snap.LoopStackPointer
	ram[base+offCountdownTimer] = snap.CountdownTimer
	ram[base+offNextEventKeyOff] = snap.NextEventIsKeyOff
	ram[base+offPitchOffsetL] = byte(snap.PitchOffset)
	ram[base+offPitchOffsetH] = byte(snap.PitchOffset >> 8)
	ram[base+offVolume] = snap.Volume.Value
	ram[base+offSubVolume] = snap.Volume.SubValue
	ram[base+offPan] = snap.Pan.Value
	ram[base+offSubPan] = snap.Pan.SubValue
	ram[base+offVibratoPitchOffsetPerTick] = snap.VibratoPitchOffsetPerTick
	ram[base+offVibratoQwtTicks] = snap.VibratoQwtTicks
	ram[base+offPrevTempGain] = snap.TempGain
	ram[base+offEarlyReleaseCmp] = snap.EarlyReleaseCmp
	ram[base+offEarlyReleaseMinTicks] = snap.EarlyReleaseMinTicks
	ram[base+offEarlyReleaseGain] = snap.EarlyReleaseGain
}
