// Package mml implements the channel bytecode generator: it consumes a
// stream of semantic MML commands plus a pitch-table oracle and drives a
// bytecode.Assembler to emit a channel's instruction stream (§4.3). It does
// not define MML source syntax; callers hand it already-parsed commands.
package mml

import "github.com/tadgo/tad/internal/bytecode"

// Single-byte tick-length limits used by the note-splitting rule (§4.3.1).
const (
	MaxTicksNoKeyoff bytecode.Ticks = 256 // M: largest play_note length without a key-off
	MaxTicksKeyoff   bytecode.Ticks = 257 // K: largest play_note length with a key-off
	MinTicksKeyoff   bytecode.Ticks = 2   // k_min: smallest trailing rest_keyoff
)

// Rest/wait loop-compression tuning (§4.3.4).
const (
	RestLoopThreshold = 3 // at least this many single instructions justify a loop
	LoopCountMin      = 2
	LoopCountMax      = 255
)

// MaxBrokenChordNotes is the largest number of notes a {{...}} broken chord
// may contain (§4.3.6).
const MaxBrokenChordNotes = 128
