package project

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadgo/tad/internal/pitch"
)

func writeTempProject(t *testing.T, dir string) string {
	t.Helper()
	content := `{
		"instruments": [{"name": "kick", "source": "samples/kick.brr", "pitch_offset": 10, "adsr1": 159, "adsr2_or_gain": 224}],
		"songs": [{"name": "title", "source": "songs/title.txt"}],
		"sound_effects": ["kick", "snare"],
		"sound_effect_file": "sfx.txt"
	}`
	path := filepath.Join(dir, "project.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeTempProject(t, dir)

	p, err := Load(path)
	require.NoError(t, err)
	require.Len(t, p.Instruments, 1)
	assert.Equal(t, "kick", p.Instruments[0].Name)

	resolved := p.ResolvePath(p.Instruments[0].Source)
	assert.Equal(t, filepath.Join(dir, "samples/kick.brr"), resolved)

	assert.Equal(t, filepath.Join(dir, "sfx.txt"), p.ResolvePath(p.SoundEffectFile))
}

func TestParseSoundEffectFileHeaderAndSections(t *testing.T) {
	text := `tick_clock=16
echo_buffer_size=4

#kick
inst 0
note 36 24

#snare
inst 1
note 38 24
`
	f, err := ParseSoundEffectFile(text)
	require.NoError(t, err)

	v, ok := f.HeaderValue("tick_clock")
	require.True(t, ok)
	assert.Equal(t, "16", v)

	require.Len(t, f.Sections, 2)
	assert.Equal(t, "kick", f.Sections[0].Name)
	assert.Equal(t, "snare", f.Sections[1].Name)
}

func TestParseSoundEffectFileRejectsDuplicateSection(t *testing.T) {
	_, err := ParseSoundEffectFile("#kick\nnote 36 24\n#kick\nnote 38 24\n")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrDuplicateSoundEffectSection, perr.Kind)
}

func TestCompileSoundEffectsAndCommonAudioData(t *testing.T) {
	f, err := ParseSoundEffectFile("#kick\ninst 0\nnote 36 24\n")
	require.NoError(t, err)

	table := &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000}
	sfx, err := CompileSoundEffects(f, table)
	require.NoError(t, err)
	require.Len(t, sfx, 1)
	assert.NotEmpty(t, sfx[0].Bytecode)

	data := &CommonAudioData{
		Instruments: []CompiledInstrument{{Scrn: 3, PitchOffset: 10, Adsr1: 0x9F, Adsr2OrGain: 0xE0}},
		SampleBank:  []byte{1, 2, 3, 4},
		SoundEffects: sfx,
	}
	var buf bytes.Buffer
	n, err := data.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	out := buf.Bytes()
	assert.Equal(t, []byte{3, 10, 0x9F, 0xE0}, out[:BytesPerInstrument])
	assert.Equal(t, []byte{1, 2, 3, 4}, out[BytesPerInstrument:BytesPerInstrument+4])

	sfxTableStart := BytesPerInstrument + 4
	ptr := uint16(out[sfxTableStart]) | uint16(out[sfxTableStart+1])<<8
	assert.Equal(t, uint16(BytesPerSoundEffect*len(sfx)), ptr)
}

func TestRuntimeInstrumentsWidensPitchOffset(t *testing.T) {
	rt := RuntimeInstruments{Instruments: []CompiledInstrument{{Scrn: 5, PitchOffset: 200, Adsr1: 1, Adsr2OrGain: 2}}}
	inst, ok := rt.Instrument(0)
	require.True(t, ok)
	assert.Equal(t, uint16(200), inst.PitchOffset)

	_, ok = rt.Instrument(1)
	assert.False(t, ok)
}
