// Package song orchestrates subroutine and channel bytecode compilation
// into a linked song image: it resolves subroutine names to absolute
// offsets, tracks tail-call eligibility and tempo changes across channels,
// and serialises the fixed-size song header (§4.3.9/§4.3.10, §6 "Compiled
// song data").
package song

import (
	"encoding/binary"

	"github.com/tadgo/tad/internal/bytecode"
)

// MaxMusicChannels bounds the channel table the header can address.
const MaxMusicChannels = 8

// Subroutine is one compiled subroutine's linkage record (§3 "Subroutine").
type Subroutine struct {
	Identifier       string
	BytecodeOffset   int
	Index            uint8
	TerminalState    bytecode.State
	ChangesSongTempo bool
}

// Channel is one compiled music channel (§3 "Song").
type Channel struct {
	BytecodeOffset int
	LoopPoint      *int
	TickCounter    uint32
	MaxStackDepth  int
	TempoChanges   []bytecode.TempoChange
}

// Table resolves subroutine names to their song-relative byte offset,
// implementing bytecode.SubroutineTarget for the assembler/generator.
type Table struct {
	subs   []Subroutine
	byName map[string]int
}

// NewTable builds an (initially empty) subroutine table. Entries are
// appended with Add once each subroutine's body has been compiled.
func NewTable() *Table {
	return &Table{byName: make(map[string]int)}
}

func (t *Table) Add(s Subroutine) {
	t.byName[s.Identifier] = len(t.subs)
	t.subs = append(t.subs, s)
}

func (t *Table) Lookup(name string) (offset int, ok bool) {
	idx, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.subs[idx].BytecodeOffset, true
}

func (t *Table) Get(name string) (Subroutine, bool) {
	idx, ok := t.byName[name]
	if !ok {
		return Subroutine{}, false
	}
	return t.subs[idx], true
}

func (t *Table) Len() int { return len(t.subs) }

func (t *Table) All() []Subroutine { return t.subs }

// Song is the fully compiled output: subroutine table, channel bytecode
// offsets/state, and the bytecode buffer they index into (§3 "Song").
type Song struct {
	Subroutines   *Table
	Channels      [MaxMusicChannels]*Channel
	Bytecode      []byte
	TickClockDefault uint8
	EchoBufferSize   uint8
}

// Header serialises the fixed-size song header described in §6 "Compiled
// song data": subroutine count, low/high byte tables of subroutine entry
// pointers, the channel offset table, tick-clock default, and echo buffer
// config. Offsets are absolute addresses relative to loadAddr.
func (s *Song) Header(loadAddr uint16) []byte {
	subs := s.Subroutines.All()
	n := len(subs)

	size := 2 + n*2 + MaxMusicChannels*2 + 2
	buf := make([]byte, size)

	buf[0] = uint8(n)
	buf[1] = s.TickClockDefault

	off := 2
	for i, sub := range subs {
		addr := loadAddr + uint16(sub.BytecodeOffset)
		buf[off+i] = uint8(addr)
		buf[off+n+i] = uint8(addr >> 8)
	}
	off += n * 2

	for _, ch := range s.Channels {
		var addr uint16
		if ch != nil {
			addr = loadAddr + uint16(ch.BytecodeOffset)
		}
		binary.LittleEndian.PutUint16(buf[off:], addr)
		off += 2
	}

	buf[off] = s.EchoBufferSize
	buf[off+1] = 0

	return buf
}
