package interpreter

import "github.com/tadgo/tad/internal/bytecode"

func (it *Interpreter) execPlayNote(ch *Channel, op byte) {
	note, keyOff := bytecode.DecodeNote(op)
	lengthByte, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ticks := uint32(bytecode.DecodeTicks(lengthByte))
	if keyOff {
		ticks++
	}
	ch.Ticks += ticks
	if keyOff {
		ch.TempGain = 0
	}
	_ = note // note selection only affects DSP pitch registers, not replay state
}

// execRest handles both rest and rest_keyoff: both advance ticks and reset
// temp_gain, unlike wait (§4.4.4).
func (it *Interpreter) execRest(ch *Channel) {
	lengthByte, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Ticks += uint32(bytecode.DecodeTicks(lengthByte))
	ch.TempGain = 0
}

func (it *Interpreter) execWait(ch *Channel) {
	lengthByte, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Ticks += uint32(bytecode.DecodeTicks(lengthByte))
}

func (it *Interpreter) execPortamento(ch *Channel) {
	if _, ok := it.readByte(ch); !ok { // velocity
		ch.disable()
		return
	}
	lengthByte, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Ticks += uint32(bytecode.DecodeTicks(lengthByte))
}

func (it *Interpreter) execSetVibrato(ch *Channel) {
	po, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	qwt, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.VibratoPitchOffsetPerTick = po
	ch.VibratoQwtTicks = qwt
}

func (it *Interpreter) execSetVibratoDepthAndPlayNote(ch *Channel) {
	po, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.VibratoPitchOffsetPerTick = po
	noteOp, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	it.execPlayNote(ch, noteOp)
}

func (it *Interpreter) execStartLoop(ch *Channel) {
	count, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	if ch.stack.depth()+3 > StackCapacity {
		ch.disable()
		return
	}
	ch.stack.pushLoop(count, ch.InstructionPtr)
}

func (it *Interpreter) execEndLoop(ch *Channel) {
	// Distance operand only matters to a hardware interpreter jumping
	// relative to its own position; this replayer keeps the loop body's
	// start address on the frame and jumps there directly.
	if _, ok := it.readByte(ch); !ok {
		ch.disable()
		return
	}
	f, ok := ch.stack.topLoop()
	if !ok {
		ch.disable()
		return
	}
	f.counter--
	if f.counter != 0 {
		ch.InstructionPtr = f.pc
		return
	}
	ch.stack.popLoop()
}

func (it *Interpreter) execSkipLastLoop(ch *Channel) {
	nBytes, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	f, ok := ch.stack.topLoop()
	if !ok {
		ch.disable()
		return
	}
	if f.counter == 1 {
		ch.InstructionPtr += uint16(nBytes)
		ch.stack.popLoop()
	}
}

func (it *Interpreter) readOffset(ch *Channel) (uint16, bool) {
	lo, ok := it.readByte(ch)
	if !ok {
		return 0, false
	}
	hi, ok := it.readByte(ch)
	if !ok {
		return 0, false
	}
	return uint16(lo) | uint16(hi)<<8, true
}

func (it *Interpreter) execCallSubroutine(ch *Channel, disableVibrato bool) {
	target, ok := it.readOffset(ch)
	if !ok {
		ch.disable()
		return
	}
	if ch.stack.depth()+2 > StackCapacity {
		ch.disable()
		return
	}
	ch.stack.pushCall(ch.InstructionPtr)
	ch.CallStackDepth++
	if ch.CallStackDepth == 1 {
		ch.TopmostReturnPos = ch.InstructionPtr
	}
	ch.InstructionPtr = target
	if disableVibrato {
		ch.VibratoPitchOffsetPerTick = 0
		ch.VibratoQwtTicks = 0
	}
}

func (it *Interpreter) execReturn(ch *Channel, disableVibrato bool) {
	// An empty stack here means this channel's own top-level bytecode
	// issued a bare return with nothing to return to (§4.4.4's "stack
	// empty" case) — distinct from CallStackDepth merely reaching zero
	// after a normal topmost-subroutine return, which just resumes the
	// channel's own flow.
	returnPos, ok := ch.stack.popCall()
	if !ok {
		ch.disable()
		return
	}
	if ch.CallStackDepth > 0 {
		ch.CallStackDepth--
	}
	ch.InstructionPtr = returnPos
	if disableVibrato {
		ch.VibratoPitchOffsetPerTick = 0
		ch.VibratoQwtTicks = 0
	}
}

func (it *Interpreter) execTailCall(ch *Channel) {
	target, ok := it.readOffset(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.InstructionPtr = target
}

func (it *Interpreter) execGoto(ch *Channel) {
	target, ok := it.readOffset(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.InstructionPtr = target
}

func (it *Interpreter) execGotoRelative(ch *Channel) {
	lo, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	hi, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	rel := int16(uint16(lo) | uint16(hi)<<8)
	next := int32(ch.InstructionPtr) + int32(rel)
	if next < 0 {
		ch.disable()
		return
	}
	ch.InstructionPtr = uint16(next)
}

func (it *Interpreter) execSetInstrument(ch *Channel) {
	id, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Instrument = id
	ch.hasInstrument = true
	ch.EnvelopeOverride = nil
}

func (it *Interpreter) execSetInstrumentAndADSR(ch *Channel) {
	id, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	env, ok := it.readEnvelopeADSR(ch)
	if !ok {
		return
	}
	ch.Instrument = id
	ch.hasInstrument = true
	ch.EnvelopeOverride = &env
}

func (it *Interpreter) execSetInstrumentAndGain(ch *Channel) {
	id, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	gain, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Instrument = id
	ch.hasInstrument = true
	env := bytecode.GainEnv(gain)
	ch.EnvelopeOverride = &env
}

func (it *Interpreter) execSetADSR(ch *Channel) {
	env, ok := it.readEnvelopeADSR(ch)
	if !ok {
		return
	}
	ch.EnvelopeOverride = &env
}

func (it *Interpreter) execSetGain(ch *Channel) {
	gain, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	env := bytecode.GainEnv(gain)
	ch.EnvelopeOverride = &env
}

func (it *Interpreter) readEnvelopeADSR(ch *Channel) (bytecode.Envelope, bool) {
	a, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return bytecode.Envelope{}, false
	}
	d, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return bytecode.Envelope{}, false
	}
	s, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return bytecode.Envelope{}, false
	}
	r, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return bytecode.Envelope{}, false
	}
	return bytecode.ADSR(a, d, s, r), true
}

func (it *Interpreter) execSetPanAndVolume(ch *Channel) {
	pan, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	vol, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Pan.SetValue(pan)
	ch.Volume.SetValue(vol)
}

func (it *Interpreter) execSetPan(ch *Channel) {
	pan, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Pan.SetValue(pan)
}

func (it *Interpreter) execSetVolume(ch *Channel) {
	vol, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Volume.SetValue(vol)
}

func (it *Interpreter) execAdjustPan(ch *Channel) {
	delta, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Pan.AdjustValue(int8(delta), ch.Ticks)
}

func (it *Interpreter) execAdjustVolume(ch *Channel) {
	delta, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ch.Volume.AdjustValue(int8(delta), ch.Ticks)
}

func (it *Interpreter) execSlide(ch *Channel, pv *PanVol, up bool) {
	ticksByte, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	amount, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	ticks := bytecode.DecodeTicks(ticksByte)
	offset := fixedPointOffset(uint32(amount), ticks)
	if up {
		pv.SlideUp(uint8(ticks), offset, ch.Ticks)
	} else {
		pv.SlideDown(uint8(ticks), offset, ch.Ticks)
	}
}

func (it *Interpreter) execTriangle(ch *Channel, pv *PanVol) {
	qwt, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	amplitude, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	offset := fixedPointOffset(uint32(amplitude), bytecode.Ticks(qwt))
	pv.Triangle(qwt, offset, ch.Ticks)
}

// fixedPointOffset derives the per-tick 8.8 fixed-point magnitude that
// covers amount (a 0..255 full-scale delta) over the given tick span.
func fixedPointOffset(amount uint32, ticks bytecode.Ticks) uint32 {
	t := uint32(ticks)
	if t == 0 {
		t = 256
	}
	return ((amount << 8) + t - 1) / t
}

func (it *Interpreter) execSetSongTickClock(ch *Channel) {
	timer, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}
	it.TickClock = timer
}
