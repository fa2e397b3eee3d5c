package bytecode

// InstrumentState is the assembler's tri-state knowledge of the channel's
// current instrument (§3). Maybe arises after a conditional merge (e.g.
// skip-last-loop) where two code paths could have left different values.
type InstrumentState struct {
	known   bool
	maybe   bool
	id      uint8
	hasID   bool
}

func UnknownInstrument() InstrumentState { return InstrumentState{} }

func KnownInstrument(id uint8) InstrumentState {
	return InstrumentState{known: true, hasID: true, id: id}
}

func MaybeInstrument(id uint8) InstrumentState {
	return InstrumentState{maybe: true, hasID: true, id: id}
}

// EqualsKnown reports whether the state is Known(id) with a matching id —
// the only case §4.3.7's smallest-delta emission is allowed to skip.
func (s InstrumentState) EqualsKnown(id uint8) bool {
	return s.known && s.hasID && s.id == id
}

func (s InstrumentState) IsUnknown() bool { return !s.known && !s.maybe }

// ID returns the instrument id this state carries, if any (Known or
// Maybe). Callers needing a pitch-table lookup use this rather than
// EqualsKnown, since a Maybe state still names a candidate instrument.
func (s InstrumentState) ID() (uint8, bool) {
	return s.id, s.hasID
}

// Envelope is ADSR(a,d,s,r) or Gain(g).
type Envelope struct {
	IsGain bool
	A, D, S, R uint8
	Gain       uint8
}

func ADSR(a, d, s, r uint8) Envelope { return Envelope{A: a, D: d, S: s, R: r} }
func GainEnv(g uint8) Envelope       { return Envelope{IsGain: true, Gain: g} }

func (e Envelope) Equal(o Envelope) bool {
	if e.IsGain != o.IsGain {
		return false
	}
	if e.IsGain {
		return e.Gain == o.Gain
	}
	return e.A == o.A && e.D == o.D && e.S == o.S && e.R == o.R
}

// EnvelopeState mirrors InstrumentState's tri-state tracking.
type EnvelopeState struct {
	known bool
	maybe bool
	value Envelope
	has   bool
}

func UnknownEnvelope() EnvelopeState { return EnvelopeState{} }
func KnownEnvelope(e Envelope) EnvelopeState {
	return EnvelopeState{known: true, has: true, value: e}
}
func MaybeEnvelope(e Envelope) EnvelopeState {
	return EnvelopeState{maybe: true, has: true, value: e}
}

func (s EnvelopeState) EqualsKnown(e Envelope) bool {
	return s.known && s.has && s.value.Equal(e)
}

func (s EnvelopeState) IsUnknown() bool { return !s.known && !s.maybe }

// VibratoState is the assembler's knowledge of the channel's current
// vibrato depth/qwt (§3).
type VibratoState struct {
	Kind VibratoKind
	PitchOffsetPerTick uint8
	Qwt                uint8
}

type VibratoKind int

const (
	VibratoUnchanged VibratoKind = iota
	VibratoUnknown
	VibratoDisabled
	VibratoSet
)

func (v VibratoState) Equal(po, qwt uint8) bool {
	return v.Kind == VibratoSet && v.PitchOffsetPerTick == po && v.Qwt == qwt
}

func (v VibratoState) IsActive() bool {
	return v.Kind == VibratoSet
}

// SlurredNote is the assembler's knowledge of whether the last emitted note
// was slurred into a particular note value (§3, used by portamento's
// lead-in check).
type SlurredNote struct {
	Kind SlurredKind
	Note uint8
}

type SlurredKind int

const (
	SlurNone SlurredKind = iota
	SlurUnknown
	SlurSlurred
)

// TempGainState tracks the channel's temp-gain byte tri-state.
type TempGainState struct {
	known bool
	maybe bool
	value uint8
	has   bool
}

func UnknownTempGain() TempGainState { return TempGainState{} }

// LoopFrame is one entry on the assembler's simulated loop stack (§4.2).
type LoopFrame struct {
	StartOffset         int
	CounterBytePos      int
	KnownTickCounterAtStart uint32
}

// State is the full per-channel abstract state the assembler tracks
// alongside the byte buffer (§3 "Channel bytecode state").
type State struct {
	TickCounter     uint32
	Instrument      InstrumentState
	Envelope        EnvelopeState
	Vibrato         VibratoState
	PrevSlurredNote SlurredNote
	PrevTempGain    TempGainState
	LoopStack       []LoopFrame
	TempoChanges    []TempoChange
	MaxStackDepth   int
}

// TempoChange records a set_song_tick_clock emission (§4.3.12 supplement).
type TempoChange struct {
	Tick     uint32
	NewTimer uint8
}

// addTicks advances the tick counter, saturating at uint32 max (§3).
func (s *State) addTicks(n uint32) {
	if s.TickCounter > ^uint32(0)-n {
		s.TickCounter = ^uint32(0)
		return
	}
	s.TickCounter += n
}
