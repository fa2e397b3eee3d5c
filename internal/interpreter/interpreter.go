// Package interpreter replays compiled channel bytecode tick-by-tick the way
// the real S-SMP driver would, so playback can resume from an arbitrary tick
// count on real hardware or an emulator (§4.4).
package interpreter

import (
	"github.com/tadgo/tad/internal/bytecode"
)

// DefaultWatchdogInstructions bounds how many opcodes a single ProcessTicks
// call will execute before giving up, protecting against runaway user MML
// (a loop that never advances ticks) turning into an infinite loop (§4.4.1).
const DefaultWatchdogInstructions = 2_000_000

// ErrWatchdogExceeded is returned when a ProcessTicks call exhausts its
// instruction budget without every channel reaching the target tick.
type ErrWatchdogExceeded struct{}

func (e *ErrWatchdogExceeded) Error() string {
	return "interpreter: watchdog instruction bound exceeded"
}

// Interpreter replays one song's worth of channel bytecode.
type Interpreter struct {
	Song        []byte
	Instruments InstrumentTable

	Channels     [8]*Channel
	CurrentTick  uint32
	TickClock    uint8
	Stereo       bool
	SongDataAddr uint16

	WatchdogInstructions int
}

// NewInterpreter creates an interpreter over a compiled song's bytecode
// buffer (song-relative offsets, as produced by internal/song.Builder).
func NewInterpreter(song []byte, instruments InstrumentTable) *Interpreter {
	return &Interpreter{
		Song:                 song,
		Instruments:          instruments,
		Stereo:               true,
		WatchdogInstructions: DefaultWatchdogInstructions,
	}
}

// StartChannel arms channel index to begin executing at the given
// song-relative offset (e.g. a channel's compiled entry point).
func (it *Interpreter) StartChannel(index int, offset uint16) {
	it.Channels[index] = NewChannel(offset)
}

func (it *Interpreter) readByte(ch *Channel) (byte, bool) {
	if int(ch.InstructionPtr) >= len(it.Song) {
		return 0, false
	}
	b := it.Song[ch.InstructionPtr]
	ch.InstructionPtr++
	return b, true
}

// ProcessTicks advances every active channel by round-robin scheduling
// (smallest ticks first) until each channel's ticks reach targetTicks or it
// disables itself, then finalises pan/volume state to targetTicks and
// returns a snapshot (§4.4.1, §4.4.5).
func (it *Interpreter) ProcessTicks(delta uint32) (InterpreterOutput, error) {
	target := it.CurrentTick + delta
	budget := it.WatchdogInstructions
	if budget <= 0 {
		budget = DefaultWatchdogInstructions
	}

	for {
		ch := it.pickNext(target)
		if ch == nil {
			break
		}
		if budget <= 0 {
			return InterpreterOutput{}, &ErrWatchdogExceeded{}
		}
		budget--
		it.step(ch)
	}

	for _, ch := range it.Channels {
		if ch == nil {
			continue
		}
		ch.Volume.Finalize(target)
		ch.Pan.Finalize(target)
	}

	it.CurrentTick = target
	return it.snapshot(target), nil
}

// pickNext returns the non-disabled channel with the smallest ticks that is
// still below target, or nil if none remain to advance.
func (it *Interpreter) pickNext(target uint32) *Channel {
	var best *Channel
	for _, ch := range it.Channels {
		if ch == nil || ch.Disabled || ch.Ticks >= target {
			continue
		}
		if best == nil || ch.Ticks < best.Ticks {
			best = ch
		}
	}
	return best
}

// step executes exactly one bytecode instruction on ch (§4.4.4).
func (it *Interpreter) step(ch *Channel) {
	op, ok := it.readByte(ch)
	if !ok {
		ch.disable()
		return
	}

	if bytecode.IsPlayNote(op) {
		it.execPlayNote(ch, op)
		return
	}

	switch bytecode.Opcode(op) {
	case bytecode.OpRest:
		it.execRest(ch)
	case bytecode.OpRestKeyoff:
		it.execRest(ch)
	case bytecode.OpWait:
		it.execWait(ch)
	case bytecode.OpPortamento:
		it.execPortamento(ch)
	case bytecode.OpSetVibrato:
		it.execSetVibrato(ch)
	case bytecode.OpSetVibratoDepthAndPlayNote:
		it.execSetVibratoDepthAndPlayNote(ch)
	case bytecode.OpDisableVibrato:
		ch.VibratoPitchOffsetPerTick = 0
		ch.VibratoQwtTicks = 0
	case bytecode.OpStartLoop:
		it.execStartLoop(ch)
	case bytecode.OpEndLoop:
		it.execEndLoop(ch)
	case bytecode.OpSkipLastLoop:
		it.execSkipLastLoop(ch)
	case bytecode.OpCallSubroutine:
		it.execCallSubroutine(ch, false)
	case bytecode.OpCallSubroutineAndDisableVibrato:
		it.execCallSubroutine(ch, true)
	case bytecode.OpSetInstrument:
		it.execSetInstrument(ch)
	case bytecode.OpSetInstrumentAndADSR:
		it.execSetInstrumentAndADSR(ch)
	case bytecode.OpSetInstrumentAndGain:
		it.execSetInstrumentAndGain(ch)
	case bytecode.OpSetADSR:
		it.execSetADSR(ch)
	case bytecode.OpSetGain:
		it.execSetGain(ch)
	case bytecode.OpSetPanAndVolume:
		it.execSetPanAndVolume(ch)
	case bytecode.OpSetPan:
		it.execSetPan(ch)
	case bytecode.OpSetVolume:
		it.execSetVolume(ch)
	case bytecode.OpAdjustPan:
		it.execAdjustPan(ch)
	case bytecode.OpAdjustVolume:
		it.execAdjustVolume(ch)
	case bytecode.OpVolumeSlideUp:
		it.execSlide(ch, &ch.Volume, true)
	case bytecode.OpVolumeSlideDown:
		it.execSlide(ch, &ch.Volume, false)
	case bytecode.OpPanSlideUp:
		it.execSlide(ch, &ch.Pan, true)
	case bytecode.OpPanSlideDown:
		it.execSlide(ch, &ch.Pan, false)
	case bytecode.OpTremolo:
		it.execTriangle(ch, &ch.Volume)
	case bytecode.OpPanbrello:
		it.execTriangle(ch, &ch.Pan)
	case bytecode.OpSetSongTickClock:
		it.execSetSongTickClock(ch)
	case bytecode.OpEnableEcho:
		ch.Echo = true
	case bytecode.OpDisableEcho:
		ch.Echo = false
	case bytecode.OpGotoRelative:
		it.execGotoRelative(ch)
	case bytecode.OpDisableChannel:
		ch.disable()
	case bytecode.OpGoto:
		it.execGoto(ch)
	case bytecode.OpReturnFromSubroutine:
		it.execReturn(ch, false)
	case bytecode.OpReturnFromSubroutineAndDisableVibrato:
		it.execReturn(ch, true)
	case bytecode.OpTailSubroutineCall:
		it.execTailCall(ch)
	default:
		ch.disable()
	}
}
