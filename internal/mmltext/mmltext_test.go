package mmltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
	"github.com/tadgo/tad/internal/pitch"
)

type fakeSubroutines map[string]int

func (f fakeSubroutines) Lookup(name string) (int, bool) {
	off, ok := f[name]
	return off, ok
}

func newGenerator() *mml.Generator {
	asm := bytecode.NewAssembler(fakeSubroutines{}, false)
	table := &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000}
	return mml.NewGenerator(asm, table)
}

func TestCompileBasicCommands(t *testing.T) {
	g := newGenerator()
	err := Compile(g, `
; comment line, should be skipped
inst 1
note 60 24
wait 10
pan 64
vol 200
`)
	require.NoError(t, err)

	bc, _, err := g.Asm.Bytecode(bytecode.TermDisableChannel, "")
	require.NoError(t, err)
	assert.NotEmpty(t, bc)
	assert.Equal(t, byte(bytecode.OpDisableChannel), bc[len(bc)-1])
}

func TestCompileUnknownCommandReportsLine(t *testing.T) {
	g := newGenerator()
	err := Compile(g, "inst 1\nbogus 5")

	require.Error(t, err)
	var textErr *Error
	require.ErrorAs(t, err, &textErr)
	assert.Equal(t, 2, textErr.Line)
}

func TestCompileLoop(t *testing.T) {
	g := newGenerator()
	err := Compile(g, `
inst 1
loopstart 3
wait 10
loopend
`)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), g.Asm.State().TickCounter)
}
