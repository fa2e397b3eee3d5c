package bytecode

// DefaultStackCapacity is the number of bytes reserved for a channel's
// combined loop/call frame stack when the caller does not override it
// (§4.2, "channel's stack capacity").
const DefaultStackCapacity = 32

const (
	bytesPerLoopFrame = 3
	bytesPerCallFrame = 2
)

// Terminator selects how Bytecode() closes out the instruction stream
// (§3 "five terminator types").
type Terminator int

const (
	TermDisableChannel Terminator = iota
	TermGoto
	TermReturnFromSubroutine
	TermReturnFromSubroutineAndDisableVibrato
	TermTailSubroutineCall
)

// SubroutineTarget resolves a subroutine name to its bytecode offset, used
// by call_subroutine and tail-call terminators.
type SubroutineTarget interface {
	Lookup(name string) (offset int, ok bool)
}

// Assembler emits opcode bytes for one channel's bytecode stream while
// tracking the abstract state needed to validate and optimise each
// operation (§4.2). It never looks at MML source; the generator package is
// responsible for translating source constructs into calls here.
type Assembler struct {
	buf   []byte
	state State

	stackCapacity int
	stackDepth    int // bytes currently reserved on the simulated stack
	isSubroutine  bool

	subroutines SubroutineTarget
}

// NewAssembler creates an assembler for one channel's bytecode. isSubroutine
// marks a block compiled for a subroutine body, which changes which
// terminators are legal to close it with.
func NewAssembler(subroutines SubroutineTarget, isSubroutine bool) *Assembler {
	return &Assembler{
		stackCapacity: DefaultStackCapacity,
		isSubroutine:  isSubroutine,
		subroutines:   subroutines,
	}
}

// SetStackCapacity overrides the default channel stack capacity.
func (a *Assembler) SetStackCapacity(n int) { a.stackCapacity = n }

// Offset returns the current write position, used by the generator to
// remember loop/subroutine entry points.
func (a *Assembler) Offset() int { return len(a.buf) }

// State returns a copy of the assembler's current abstract state, for
// merge-point reconciliation (e.g. after a broken chord's branches rejoin).
func (a *Assembler) State() State { return a.state }

func (a *Assembler) emit(b ...byte) {
	a.buf = append(a.buf, b...)
}

func (a *Assembler) reserveStack(n int) error {
	a.stackDepth += n
	if a.stackDepth > a.stackCapacity {
		return &AssemblerError{Kind: ErrLoopStackOverflow, Int: a.stackDepth}
	}
	if a.stackDepth > a.state.MaxStackDepth {
		a.state.MaxStackDepth = a.stackDepth
	}
	return nil
}

func (a *Assembler) releaseStack(n int) {
	a.stackDepth -= n
	if a.stackDepth < 0 {
		a.stackDepth = 0
	}
}

// --- instrument / envelope -------------------------------------------------

// SetInstrument emits set_instrument unless the channel is already known to
// have instrument id set (§4.3.7 smallest-delta emission).
func (a *Assembler) SetInstrument(id uint8) {
	if a.state.Instrument.EqualsKnown(id) {
		return
	}
	a.emit(byte(OpSetInstrument), id)
	a.state.Instrument = KnownInstrument(id)
	a.state.Envelope = UnknownEnvelope()
}

// SetInstrumentAndADSR emits the combined opcode when both the instrument
// and envelope need to change, saving a byte over two separate operations.
func (a *Assembler) SetInstrumentAndADSR(id uint8, env Envelope) {
	if a.state.Instrument.EqualsKnown(id) {
		a.SetADSR(env)
		return
	}
	if a.state.Envelope.EqualsKnown(env) {
		a.SetInstrument(id)
		return
	}
	a.emit(byte(OpSetInstrumentAndADSR), id, env.A, env.D, env.S, env.R)
	a.state.Instrument = KnownInstrument(id)
	a.state.Envelope = KnownEnvelope(env)
}

func (a *Assembler) SetInstrumentAndGain(id uint8, env Envelope) {
	if a.state.Instrument.EqualsKnown(id) {
		a.SetGain(env)
		return
	}
	if a.state.Envelope.EqualsKnown(env) {
		a.SetInstrument(id)
		return
	}
	a.emit(byte(OpSetInstrumentAndGain), id, env.Gain)
	a.state.Instrument = KnownInstrument(id)
	a.state.Envelope = KnownEnvelope(env)
}

func (a *Assembler) SetADSR(env Envelope) {
	if a.state.Envelope.EqualsKnown(env) {
		return
	}
	a.emit(byte(OpSetADSR), env.A, env.D, env.S, env.R)
	a.state.Envelope = KnownEnvelope(env)
}

func (a *Assembler) SetGain(env Envelope) {
	if a.state.Envelope.EqualsKnown(env) {
		return
	}
	a.emit(byte(OpSetGain), env.Gain)
	a.state.Envelope = KnownEnvelope(env)
}

// --- notes / rests / waits --------------------------------------------------

// PlayNote emits a play_note instruction. totalTicks is the full DSP tick
// cost of the note, including the extra key-off tick when keyOff is set
// (§4.4.4: ticks = encoded_length + (key_off ? 1 : 0)); the encoded length
// byte is derived here so callers never have to think about the offset.
func (a *Assembler) PlayNote(note uint8, keyOff bool, totalTicks Ticks) error {
	if a.state.Instrument.IsUnknown() {
		return &AssemblerError{Kind: ErrArgumentOutOfRange, Str: "play_note before set_instrument"}
	}
	opcode, err := EncodeNote(note, keyOff)
	if err != nil {
		return err
	}
	encoded := totalTicks
	if keyOff {
		encoded--
	}
	lb, err := EncodeTicks(encoded)
	if err != nil {
		return err
	}
	a.emit(opcode, lb)
	a.state.addTicks(uint32(totalTicks))
	if keyOff {
		a.state.PrevSlurredNote = SlurredNote{Kind: SlurNone}
	} else {
		a.state.PrevSlurredNote = SlurredNote{Kind: SlurSlurred, Note: note}
	}
	return nil
}

func (a *Assembler) Rest(length Ticks) error {
	b, err := EncodeTicks(length)
	if err != nil {
		return err
	}
	a.emit(byte(OpRest), b)
	a.state.addTicks(uint32(length))
	return nil
}

func (a *Assembler) RestKeyoff(length Ticks) error {
	b, err := EncodeTicks(length)
	if err != nil {
		return err
	}
	a.emit(byte(OpRestKeyoff), b)
	a.state.addTicks(uint32(length))
	a.state.PrevSlurredNote = SlurredNote{Kind: SlurNone}
	return nil
}

func (a *Assembler) Wait(length Ticks) error {
	b, err := EncodeTicks(length)
	if err != nil {
		return err
	}
	a.emit(byte(OpWait), b)
	a.state.addTicks(uint32(length))
	return nil
}

// --- vibrato / portamento ----------------------------------------------------

func (a *Assembler) SetVibrato(pitchOffsetPerTick, qwt uint8) {
	if a.state.Vibrato.Equal(pitchOffsetPerTick, qwt) {
		return
	}
	a.emit(byte(OpSetVibrato), pitchOffsetPerTick, qwt)
	a.state.Vibrato = VibratoState{Kind: VibratoSet, PitchOffsetPerTick: pitchOffsetPerTick, Qwt: qwt}
}

func (a *Assembler) SetVibratoDepthAndPlayNote(pitchOffsetPerTick uint8, note uint8, keyOff bool, totalTicks Ticks) error {
	if !a.state.Vibrato.IsActive() {
		return &AssemblerError{Kind: ErrArgumentOutOfRange, Str: "set_vibrato_depth_and_play_note without active vibrato"}
	}
	opcode, err := EncodeNote(note, keyOff)
	if err != nil {
		return err
	}
	encoded := totalTicks
	if keyOff {
		encoded--
	}
	lb, err := EncodeTicks(encoded)
	if err != nil {
		return err
	}
	a.emit(byte(OpSetVibratoDepthAndPlayNote), pitchOffsetPerTick, opcode, lb)
	a.state.Vibrato.PitchOffsetPerTick = pitchOffsetPerTick
	a.state.addTicks(uint32(totalTicks))
	if keyOff {
		a.state.PrevSlurredNote = SlurredNote{Kind: SlurNone}
	} else {
		a.state.PrevSlurredNote = SlurredNote{Kind: SlurSlurred, Note: note}
	}
	return nil
}

func (a *Assembler) DisableVibrato() {
	if a.state.Vibrato.Kind == VibratoDisabled {
		return
	}
	a.emit(byte(OpDisableVibrato))
	a.state.Vibrato = VibratoState{Kind: VibratoDisabled}
}

// Portamento emits a pitch slide instruction. totalTicks is the full tick
// cost of this segment, including the implicit key-off tick when keyOff is
// set — the same length/key-off convention play_note uses, since
// portamento has no spare opcode bit to carry the flag separately.
func (a *Assembler) Portamento(velocity int8, keyOff bool, totalTicks Ticks) error {
	encoded := totalTicks
	if keyOff {
		encoded--
	}
	lb, err := EncodeTicks(encoded)
	if err != nil {
		return err
	}
	a.emit(byte(OpPortamento), byte(velocity), lb)
	a.state.addTicks(uint32(totalTicks))
	if keyOff {
		a.state.PrevSlurredNote = SlurredNote{Kind: SlurNone}
	}
	return nil
}

// --- loops -------------------------------------------------------------------

// StartLoop emits start_loop(count) and pushes a loop frame, erroring if
// doing so would exceed the channel's stack capacity (§4.2).
func (a *Assembler) StartLoop(count uint8) error {
	if err := a.reserveStack(bytesPerLoopFrame); err != nil {
		return err
	}
	a.emit(byte(OpStartLoop), count)
	frame := LoopFrame{
		StartOffset:             len(a.buf),
		CounterBytePos:          len(a.buf) - 1,
		KnownTickCounterAtStart: a.state.TickCounter,
	}
	a.state.LoopStack = append(a.state.LoopStack, frame)
	return nil
}

// EndLoop closes the innermost loop, emitting a relative jump back to the
// first instruction of its body (just after start_loop).
func (a *Assembler) EndLoop() error {
	n := len(a.state.LoopStack)
	if n == 0 {
		return &AssemblerError{Kind: ErrEndLoopWithNoMatchingStart}
	}
	frame := a.state.LoopStack[n-1]
	a.state.LoopStack = a.state.LoopStack[:n-1]
	a.releaseStack(bytesPerLoopFrame)

	// The body's ticks were counted once as it was emitted; the loop plays
	// it count times (a count byte of 0 means 256).
	count := uint32(a.buf[frame.CounterBytePos])
	if count == 0 {
		count = 256
	}
	a.state.addTicks((a.state.TickCounter - frame.KnownTickCounterAtStart) * (count - 1))

	backDistance := len(a.buf) + 2 - frame.StartOffset
	a.emit(byte(OpEndLoop), byte(backDistance))
	return nil
}

// SkipLastLoop emits skip_last_loop with a placeholder byte count and
// returns the byte offset of that operand, since the actual distance to
// the matching end_loop is only known once the rest of the loop body has
// been emitted. Callers patch it with PatchSkipDistance once the matching
// EndLoop call has been made (§3 "Skip last loop").
func (a *Assembler) SkipLastLoop() (patchPos int, err error) {
	if len(a.state.LoopStack) == 0 {
		return 0, &AssemblerError{Kind: ErrEndLoopWithNoMatchingStart}
	}
	a.emit(byte(OpSkipLastLoop), 0)
	return len(a.buf) - 1, nil
}

// PatchSkipDistance fills in a skip_last_loop operand recorded by
// SkipLastLoop with the number of bytes from just after that operand to the
// current end of the buffer, so calling it right after EndLoop makes the
// final iteration skip past end_loop's own bytes.
func (a *Assembler) PatchSkipDistance(patchPos int) error {
	distance := len(a.buf) - (patchPos + 1)
	if distance < 0 || distance > 255 {
		return &AssemblerError{Kind: ErrArgumentOutOfRange, Str: "skip_last_loop distance"}
	}
	a.buf[patchPos] = byte(distance)
	return nil
}

// --- subroutine calls ---------------------------------------------------------

func (a *Assembler) callSubroutine(op Opcode, name string) error {
	offset, ok := a.subroutines.Lookup(name)
	if !ok {
		return &AssemblerError{Kind: ErrUnknownSubroutine, Str: name}
	}
	if err := a.reserveStack(bytesPerCallFrame); err != nil {
		return &AssemblerError{Kind: ErrCallStackOverflow, Str: name}
	}
	a.releaseStack(bytesPerCallFrame) // call frame lives on the real stack only while the subroutine runs
	// offset is song-relative, since the final load address isn't known at
	// compile time; the interpreter also keeps its instruction pointer
	// song-relative and adds the song data address only in its snapshots.
	a.emit(byte(op), byte(offset), byte(offset>>8))
	a.state.Instrument = UnknownInstrument()
	a.state.Envelope = UnknownEnvelope()
	return nil
}

func (a *Assembler) CallSubroutine(name string) error {
	return a.callSubroutine(OpCallSubroutine, name)
}

func (a *Assembler) CallSubroutineAndDisableVibrato(name string) error {
	if err := a.callSubroutine(OpCallSubroutineAndDisableVibrato, name); err != nil {
		return err
	}
	a.state.Vibrato = VibratoState{Kind: VibratoDisabled}
	return nil
}

// --- pan / volume --------------------------------------------------------------

func (a *Assembler) SetPanAndVolume(pan, volume uint8) {
	a.emit(byte(OpSetPanAndVolume), pan, volume)
}

func (a *Assembler) SetPan(pan uint8) {
	a.emit(byte(OpSetPan), pan)
}

func (a *Assembler) SetVolume(volume uint8) {
	a.emit(byte(OpSetVolume), volume)
}

func (a *Assembler) AdjustPan(delta int8) {
	a.emit(byte(OpAdjustPan), byte(delta))
}

func (a *Assembler) AdjustVolume(delta int8) {
	a.emit(byte(OpAdjustVolume), byte(delta))
}

func (a *Assembler) VolumeSlideUp(ticks Ticks, amount uint8) error {
	b, err := EncodeTicks(ticks)
	if err != nil {
		return err
	}
	a.emit(byte(OpVolumeSlideUp), b, amount)
	return nil
}

func (a *Assembler) VolumeSlideDown(ticks Ticks, amount uint8) error {
	b, err := EncodeTicks(ticks)
	if err != nil {
		return err
	}
	a.emit(byte(OpVolumeSlideDown), b, amount)
	return nil
}

func (a *Assembler) PanSlideUp(ticks Ticks, amount uint8) error {
	b, err := EncodeTicks(ticks)
	if err != nil {
		return err
	}
	a.emit(byte(OpPanSlideUp), b, amount)
	return nil
}

func (a *Assembler) PanSlideDown(ticks Ticks, amount uint8) error {
	b, err := EncodeTicks(ticks)
	if err != nil {
		return err
	}
	a.emit(byte(OpPanSlideDown), b, amount)
	return nil
}

func (a *Assembler) Tremolo(qwt uint8, amplitude uint8) {
	a.emit(byte(OpTremolo), qwt, amplitude)
}

func (a *Assembler) Panbrello(qwt uint8, amplitude uint8) {
	a.emit(byte(OpPanbrello), qwt, amplitude)
}

// --- misc channel opcodes -------------------------------------------------------

func (a *Assembler) SetSongTickClock(timer uint8) {
	a.emit(byte(OpSetSongTickClock), timer)
	a.state.TempoChanges = append(a.state.TempoChanges, TempoChange{Tick: a.state.TickCounter, NewTimer: timer})
}

func (a *Assembler) EnableEcho() { a.emit(byte(OpEnableEcho)) }

func (a *Assembler) DisableEcho() { a.emit(byte(OpDisableEcho)) }

// --- terminators -----------------------------------------------------------------

// Bytecode closes the channel's instruction stream with the given
// terminator and returns the finished bytes together with the final
// abstract state (§3 "five terminator types").
func (a *Assembler) Bytecode(term Terminator, gotoTarget string) ([]byte, State, error) {
	if len(a.state.LoopStack) != 0 {
		return nil, State{}, &AssemblerError{Kind: ErrEndLoopWithNoMatchingStart, Str: "unclosed loop at end of block"}
	}
	subroutineTerm := term == TermReturnFromSubroutine || term == TermReturnFromSubroutineAndDisableVibrato || term == TermTailSubroutineCall
	if subroutineTerm != a.isSubroutine {
		return nil, State{}, &AssemblerError{Kind: ErrArgumentOutOfRange, Str: "terminator not valid for this block"}
	}
	switch term {
	case TermDisableChannel:
		a.emit(byte(OpDisableChannel))
	case TermGoto:
		offset, ok := a.subroutines.Lookup(gotoTarget)
		if !ok {
			return nil, State{}, &AssemblerError{Kind: ErrUnknownSubroutine, Str: gotoTarget}
		}
		a.emit(byte(OpGoto), byte(offset), byte(offset>>8))
	case TermReturnFromSubroutine:
		a.emit(byte(OpReturnFromSubroutine))
	case TermReturnFromSubroutineAndDisableVibrato:
		a.emit(byte(OpReturnFromSubroutineAndDisableVibrato))
	case TermTailSubroutineCall:
		offset, ok := a.subroutines.Lookup(gotoTarget)
		if !ok {
			return nil, State{}, &AssemblerError{Kind: ErrUnknownSubroutine, Str: gotoTarget}
		}
		a.emit(byte(OpTailSubroutineCall), byte(offset), byte(offset>>8))
	}
	return a.buf, a.state, nil
}
