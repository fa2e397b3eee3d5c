package project

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/interpreter"
	"github.com/tadgo/tad/internal/mml"
	"github.com/tadgo/tad/internal/mmltext"
	"github.com/tadgo/tad/internal/pitch"
)

// BytesPerInstrument is the instrument SoA table's stride: scrn,
// pitch_offset, adsr1, adsr2_or_gain (§6 "Compiled common audio data").
const BytesPerInstrument = 4

// BytesPerSoundEffect is the sound-effect table's entry size: a single
// little-endian pointer into the trailing sound-effect bytecode blob.
const BytesPerSoundEffect = 2

// CompiledInstrument is one instrument's 4-byte common-data record.
type CompiledInstrument struct {
	Scrn        uint8
	PitchOffset uint8
	Adsr1       uint8
	Adsr2OrGain uint8
}

// CompiledSoundEffect is one sound effect's compiled bytecode, keyed by its
// section name for table-ordering lookups.
type CompiledSoundEffect struct {
	Name     string
	Bytecode []byte
}

// CommonAudioData is the packed blob described in §6: instrument table,
// sample bank, and an optional sound-effect pointer table plus bytecode.
type CommonAudioData struct {
	Instruments   []CompiledInstrument
	SampleBank    []byte
	SoundEffects  []CompiledSoundEffect
}

// WriteTo serialises the blob in the layout the driver expects: the
// instrument table, the sample bank, then (when there are sound effects)
// the pointer table and their bytecode, each appended in turn to one buffer.
func (c *CommonAudioData) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	for _, inst := range c.Instruments {
		buf.WriteByte(inst.Scrn)
		buf.WriteByte(inst.PitchOffset)
		buf.WriteByte(inst.Adsr1)
		buf.WriteByte(inst.Adsr2OrGain)
	}

	buf.Write(c.SampleBank)

	if len(c.SoundEffects) > 0 {
		sfxDataStart := len(c.SoundEffects) * BytesPerSoundEffect
		var sfxData bytes.Buffer
		ptrs := make([]uint16, len(c.SoundEffects))
		for i, sfx := range c.SoundEffects {
			ptrs[i] = uint16(sfxDataStart + sfxData.Len())
			sfxData.Write(sfx.Bytecode)
		}
		for _, p := range ptrs {
			if err := binary.Write(&buf, binary.LittleEndian, p); err != nil {
				return 0, err
			}
		}
		buf.Write(sfxData.Bytes())
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// CompileSoundEffects compiles every section of file into bytecode, in
// file order, using the minimal mmltext command set.
func CompileSoundEffects(file *SoundEffectFile, pitchTable pitch.Table) ([]CompiledSoundEffect, error) {
	out := make([]CompiledSoundEffect, 0, len(file.Sections))
	for _, section := range file.Sections {
		asm := bytecode.NewAssembler(noSubroutines{}, false)
		g := mml.NewGenerator(asm, pitchTable)
		if err := mmltext.Compile(g, section.Body); err != nil {
			return nil, err
		}
		bc, _, err := asm.Bytecode(bytecode.TermDisableChannel, "")
		if err != nil {
			return nil, err
		}
		out = append(out, CompiledSoundEffect{Name: section.Name, Bytecode: bc})
	}
	return out, nil
}

type noSubroutines struct{}

func (noSubroutines) Lookup(name string) (int, bool) { return 0, false }

// RuntimeInstruments adapts a compiled instrument table to
// interpreter.InstrumentTable, widening the on-disk single-byte tuning
// field to the interpreter's 16-bit pitch-offset representation.
type RuntimeInstruments struct {
	Instruments []CompiledInstrument
}

func (r RuntimeInstruments) Instrument(id uint8) (interpreter.Instrument, bool) {
	if int(id) >= len(r.Instruments) {
		return interpreter.Instrument{}, false
	}
	ci := r.Instruments[id]
	return interpreter.Instrument{
		SampleSourceNumber: ci.Scrn,
		PitchOffset:        uint16(ci.PitchOffset),
		Adsr1:              ci.Adsr1,
		Adsr2OrGain:        ci.Adsr2OrGain,
	}, true
}
