package song

import (
	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
	"github.com/tadgo/tad/internal/pitch"
)

// Builder accumulates subroutine and channel bytecode into one contiguous
// song buffer, assigning each block its song-relative offset as it is
// compiled (§4.3.9/§4.3.10, §3 "Song"). Subroutines must be compiled before
// any channel or subroutine that calls them — the table has no forward-
// reference resolution, so callers needing a forward call must compile
// subroutines in dependency order.
type Builder struct {
	table *Table
	buf   []byte
	pitch pitch.Table
}

func NewBuilder(table *Table, pitchTable pitch.Table) *Builder {
	return &Builder{table: table, pitch: pitchTable}
}

// SubroutineBody is called with a fresh generator writing a subroutine's
// instructions; it returns a pending tail call if the subroutine's last
// command was itself eligible for tail-call conversion (§4.3.10).
type SubroutineBody func(g *mml.Generator) (*mml.PendingTailCall, error)

// CompileSubroutine compiles one subroutine body and records it in the
// builder's table at its final song offset.
func (b *Builder) CompileSubroutine(identifier string, body SubroutineBody) error {
	asm := bytecode.NewAssembler(b.table, true)
	g := mml.NewGenerator(asm, b.pitch)

	tailCall, err := body(g)
	if err != nil {
		return err
	}
	bc, state, err := g.FinishSubroutine(tailCall)
	if err != nil {
		return err
	}

	offset := len(b.buf)
	b.buf = append(b.buf, bc...)

	idx := uint8(b.table.Len())
	b.table.Add(Subroutine{
		Identifier:       identifier,
		BytecodeOffset:   offset,
		Index:            idx,
		TerminalState:    state,
		ChangesSongTempo: len(state.TempoChanges) > 0,
	})
	return nil
}

// ChannelBody is called with a fresh generator writing one music channel's
// instructions, returning the terminator to close the block with.
type ChannelBody func(g *mml.Generator) (bytecode.Terminator, string, error)

// CompileChannel compiles one music channel and returns its record. index
// selects the channel's slot (0-based) in the song's channel table.
func (b *Builder) CompileChannel(index int, body ChannelBody) (*Channel, error) {
	asm := bytecode.NewAssembler(b.table, false)
	g := mml.NewGenerator(asm, b.pitch)

	term, gotoTarget, err := body(g)
	if err != nil {
		return nil, err
	}
	bc, state, err := asm.Bytecode(term, gotoTarget)
	if err != nil {
		return nil, err
	}

	offset := len(b.buf)
	b.buf = append(b.buf, bc...)

	loopOffset, hasLoop := g.LoopPointOffset()
	ch := &Channel{
		BytecodeOffset: offset,
		TickCounter:    state.TickCounter,
		MaxStackDepth:  state.MaxStackDepth,
		TempoChanges:   state.TempoChanges,
	}
	if hasLoop {
		abs := offset + loopOffset
		ch.LoopPoint = &abs
	}
	return ch, nil
}

// Bytecode returns the accumulated song bytecode buffer.
func (b *Builder) Bytecode() []byte { return b.buf }
