package mml

import (
	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/diagnostics"
)

// BrokenChord emits a `{{notes}}` broken chord: notes cycle in order for
// total ticks, each held for noteLength ticks except a final partial note
// (§4.3.6).
func (g *Generator) BrokenChord(notes []uint8, totalLength, noteLength bytecode.Ticks, isSlur bool) error {
	if len(notes) == 0 {
		return diagnostics.NewNoNotesInBrokenChord()
	}
	if len(notes) > MaxBrokenChordNotes {
		return diagnostics.NewTooManyNotesInBrokenChord(len(notes))
	}
	if noteLength == 0 {
		return diagnostics.NewBrokenChordTickCountMismatch()
	}

	startTicks := g.Asm.State().TickCounter

	lastNoteTicks := totalLength % noteLength
	if isSlur && lastNoteTicks == 0 {
		lastNoteTicks = noteLength
	} else if lastNoteTicks != 0 && lastNoteTicks < MinTicksKeyoff {
		lastNoteTicks += noteLength
	}

	notesInLoop := (totalLength - lastNoteTicks) / noteLength
	breakPoint := int(notesInLoop) % len(notes)
	nLoops := int(notesInLoop) / len(notes)
	if breakPoint != 0 {
		nLoops++
	}
	if nLoops < 2 {
		return diagnostics.NewBrokenChordTickCountMismatch()
	}

	if err := g.Asm.StartLoop(uint8(nLoops)); err != nil {
		return toChannelErr(err)
	}
	skipPatchPos := -1
	for i, note := range notes {
		if breakPoint != 0 && i == breakPoint {
			pos, err := g.Asm.SkipLastLoop()
			if err != nil {
				return toChannelErr(err)
			}
			skipPatchPos = pos
		}
		if err := toChannelErr(g.Asm.PlayNote(note, false, noteLength)); err != nil {
			return err
		}
	}
	if err := g.Asm.EndLoop(); err != nil {
		return toChannelErr(err)
	}
	if skipPatchPos >= 0 {
		// Patched after EndLoop so the skip distance carries the final
		// iteration past end_loop entirely, rather than landing on it.
		if err := g.Asm.PatchSkipDistance(skipPatchPos); err != nil {
			return toChannelErr(err)
		}
	}

	if lastNoteTicks > 0 {
		finalNote := notes[breakPoint%len(notes)]
		if err := toChannelErr(g.Asm.PlayNote(finalNote, true, lastNoteTicks)); err != nil {
			return err
		}
	}

	if g.Asm.State().TickCounter != startTicks+uint32(totalLength) {
		return diagnostics.NewBrokenChordTickCountMismatch()
	}
	return nil
}
