package pitch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTableLookup(t *testing.T) {
	tbl := NewStaticTable(map[uint8][]Value{
		1: {100, 110, 120},
	})
	v, err := tbl.Pitch(1, 1)
	require.NoError(t, err)
	assert.Equal(t, Value(110), v)

	_, err = tbl.Pitch(2, 0)
	require.Error(t, err)

	_, err = tbl.Pitch(1, 5)
	require.Error(t, err)
}

func TestEqualTemperedTableOctave(t *testing.T) {
	tbl := &EqualTemperedTable{AnchorNote: 60, AnchorPitch: 1000}
	v, err := tbl.Pitch(0, 72)
	require.NoError(t, err)
	assert.Equal(t, Value(2000), v)

	v, err = tbl.Pitch(0, 48)
	require.NoError(t, err)
	assert.Equal(t, Value(500), v)
}

func TestMpPitchOffsetZeroDepthErrors(t *testing.T) {
	_, err := MpPitchOffset(0, 4, 1000)
	require.Error(t, err)
	var perr *MpPitchOffsetError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, MpOffsetDepthZero, perr.Kind)
}

func TestMpPitchOffsetMonotonicInDepth(t *testing.T) {
	small, err := MpPitchOffset(10, 4, 1000)
	require.NoError(t, err)
	large, err := MpPitchOffset(100, 4, 1000)
	require.NoError(t, err)
	assert.Greater(t, int(large), int(small))
}

func TestMpPitchOffsetTooLarge(t *testing.T) {
	_, err := MpPitchOffset(1200, 1, 16000)
	require.Error(t, err)
	var perr *MpPitchOffsetError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, MpOffsetTooLarge, perr.Kind)
}

func TestMpPitchOffsetMinimumIsOne(t *testing.T) {
	po, err := MpPitchOffset(1, 200, 100)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), po)
}
