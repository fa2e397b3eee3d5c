package interpreter

// ChannelSnapshot is one channel's slice of the finalised InterpreterOutput
// (§4.4.5's per-channel SoA fields).
type ChannelSnapshot struct {
	CountdownTimer    uint8
	NextEventIsKeyOff uint8
	InstructionPtr    uint16 // instruction_ptr + song_ptr, absolute
	StackPointer      uint8  // StackCapacity minus bytes in use (the stack grows down)
	LoopStackPointer  uint8

	SampleSourceNumber uint8
	PitchOffset        uint16
	Adsr1              uint8
	Adsr2OrGain        uint8

	Volume PanVol
	Pan    PanVol

	VibratoPitchOffsetPerTick uint8
	VibratoQwtTicks           uint8

	EarlyReleaseCmp      uint8
	EarlyReleaseMinTicks uint8
	EarlyReleaseGain     uint8

	TempGain uint8
}

// ChannelDspShadow is the per-voice DSP register shadow the snapshot writer
// applies (§4.4.5).
type ChannelDspShadow struct {
	VolL, VolR  uint8
	Scrn        uint8
	Adsr1       uint8
	Adsr2OrGain uint8
	TempGain    uint8
	EchoEnabled bool
}

// InterpreterOutput is the fully finalised snapshot produced by
// ProcessTicks (§4.4.5).
type InterpreterOutput struct {
	Channels     [8]*ChannelSnapshot
	DspShadow    [8]*ChannelDspShadow
	TickClock    uint8
	SongTick     uint16 // low 16 bits of the song tick counter
	SongDataAddr uint16
	Stereo       bool
}

func (it *Interpreter) snapshot(targetTicks uint32) InterpreterOutput {
	out := InterpreterOutput{
		TickClock:    it.TickClock,
		SongTick:     uint16(targetTicks),
		Stereo:       it.Stereo,
		SongDataAddr: it.SongDataAddr,
	}
	for i, ch := range it.Channels {
		if ch == nil {
			continue
		}
		out.Channels[i] = it.channelSnapshot(ch, targetTicks)
		out.DspShadow[i] = it.dspShadow(out.Channels[i], ch)
	}
	return out
}

func (it *Interpreter) channelSnapshot(ch *Channel, targetTicks uint32) *ChannelSnapshot {
	countdown, keyOff := countdownTimer(ch, targetTicks)

	var scrn uint8
	var pitchOffset uint16
	var adsr1, adsr2 uint8
	if ch.hasInstrument && it.Instruments != nil {
		if inst, ok := it.Instruments.Instrument(ch.Instrument); ok {
			scrn = inst.SampleSourceNumber
			pitchOffset = inst.PitchOffset
			adsr1, adsr2 = inst.Adsr1, inst.Adsr2OrGain
		}
	}
	if ch.EnvelopeOverride != nil {
		env := ch.EnvelopeOverride
		if env.IsGain {
			adsr1 = 0
			adsr2 = env.Gain
		} else {
			adsr1 = 0x80 | (env.A << 4) | env.D
			adsr2 = (env.S << 5) | env.R
		}
	}

	return &ChannelSnapshot{
		CountdownTimer:            countdown,
		NextEventIsKeyOff:         keyOff,
		InstructionPtr:            ch.InstructionPtr + it.SongDataAddr,
		StackPointer:              uint8(StackCapacity - ch.stack.depth()),
		LoopStackPointer:          uint8(StackCapacity - ch.stack.depthAtTopLoop()),
		SampleSourceNumber:        scrn,
		PitchOffset:               pitchOffset,
		Adsr1:                     adsr1,
		Adsr2OrGain:               adsr2,
		Volume:                    ch.Volume,
		Pan:                       ch.Pan,
		VibratoPitchOffsetPerTick: ch.VibratoPitchOffsetPerTick,
		VibratoQwtTicks:           ch.VibratoQwtTicks,
		EarlyReleaseCmp:           ch.EarlyReleaseCmp,
		EarlyReleaseMinTicks:      ch.EarlyReleaseMinTicks,
		EarlyReleaseGain:          ch.EarlyReleaseGain,
		TempGain:                  ch.TempGain,
	}
}

// countdownTimer derives the DSP countdown-timer register pair from a
// channel's remaining tick delay (§4.4.5).
func countdownTimer(ch *Channel, targetTicks uint32) (countdown uint8, nextEventIsKeyOff uint8) {
	if ch.Disabled {
		return 1, 0
	}
	delay := ch.Ticks - targetTicks
	switch {
	case delay <= 0xFE:
		return uint8(delay) + 1, 0
	case delay == 0xFF:
		return 0, 0
	default: // 0x100
		return 0, 0xFF
	}
}

func (it *Interpreter) dspShadow(snap *ChannelSnapshot, ch *Channel) *ChannelDspShadow {
	var volL, volR uint8
	if it.Stereo {
		volL = uint8((uint16(snap.Volume.Value) * uint16(MaxPan-snap.Pan.Value)) >> 8)
		volR = uint8((uint16(snap.Volume.Value) * uint16(snap.Pan.Value)) >> 8)
	} else {
		v := snap.Volume.Value >> 2
		volL, volR = v, v
	}
	return &ChannelDspShadow{
		VolL:        volL,
		VolR:        volR,
		Scrn:        snap.SampleSourceNumber,
		Adsr1:       snap.Adsr1,
		Adsr2OrGain: snap.Adsr2OrGain,
		TempGain:    ch.TempGain,
		EchoEnabled: ch.Echo,
	}
}
