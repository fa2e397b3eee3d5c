package song

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
	"github.com/tadgo/tad/internal/pitch"
)

func testPitchTable() pitch.Table {
	return &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000}
}

func TestBuilderCompileSubroutineThenChannelCall(t *testing.T) {
	table := NewTable()
	b := NewBuilder(table, testPitchTable())

	err := b.CompileSubroutine("verse", func(g *mml.Generator) (*mml.PendingTailCall, error) {
		g.Asm.SetInstrument(1)
		require.NoError(t, g.PlayNoteWithMP(60, 24, false))
		return nil, nil
	})
	require.NoError(t, err)

	sub, ok := table.Get("verse")
	require.True(t, ok)
	assert.Equal(t, 0, sub.BytecodeOffset)

	ch, err := b.CompileChannel(0, func(g *mml.Generator) (bytecode.Terminator, string, error) {
		require.NoError(t, g.Call(mml.CallAsm, "verse", false))
		return bytecode.TermDisableChannel, "", nil
	})
	require.NoError(t, err)
	assert.Greater(t, ch.BytecodeOffset, sub.BytecodeOffset)
}

func TestBuilderCallUnknownSubroutineFails(t *testing.T) {
	table := NewTable()
	b := NewBuilder(table, testPitchTable())

	_, err := b.CompileChannel(0, func(g *mml.Generator) (bytecode.Terminator, string, error) {
		err := g.Call(mml.CallAsm, "missing", false)
		return bytecode.TermDisableChannel, "", err
	})
	require.Error(t, err)
}

func TestHeaderLayout(t *testing.T) {
	table := NewTable()
	table.Add(Subroutine{Identifier: "a", BytecodeOffset: 10})
	table.Add(Subroutine{Identifier: "b", BytecodeOffset: 20})

	s := &Song{
		Subroutines:      table,
		TickClockDefault: 64,
		EchoBufferSize:   4,
	}
	s.Channels[0] = &Channel{BytecodeOffset: 100}

	hdr := s.Header(0x0200)
	assert.Equal(t, uint8(2), hdr[0])
	assert.Equal(t, uint8(64), hdr[1])

	// Subroutine pointers: a table of low bytes, then a table of high bytes.
	addrA := uint16(hdr[2]) | uint16(hdr[4])<<8
	assert.Equal(t, uint16(0x0200+10), addrA)
	addrB := uint16(hdr[3]) | uint16(hdr[5])<<8
	assert.Equal(t, uint16(0x0200+20), addrB)

	chTableOff := 2 + 2*2
	addrCh0 := binary.LittleEndian.Uint16(hdr[chTableOff : chTableOff+2])
	assert.Equal(t, uint16(0x0200+100), addrCh0)
}

func TestTailCallTerminator(t *testing.T) {
	table := NewTable()
	b := NewBuilder(table, testPitchTable())

	err := b.CompileSubroutine("inner", func(g *mml.Generator) (*mml.PendingTailCall, error) {
		g.Asm.SetInstrument(1)
		require.NoError(t, g.PlayNoteWithMP(60, 24, false))
		return nil, nil
	})
	require.NoError(t, err)

	err = b.CompileSubroutine("outer", func(g *mml.Generator) (*mml.PendingTailCall, error) {
		g.Asm.SetInstrument(1)
		require.NoError(t, g.PlayNoteWithMP(62, 24, false))
		return &mml.PendingTailCall{Target: "inner"}, nil
	})
	require.NoError(t, err)

	bc := b.Bytecode()
	assert.Equal(t, byte(bytecode.OpTailSubroutineCall), bc[len(bc)-3])
}
