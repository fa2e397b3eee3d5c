// Package mmltext provides a minimal line-oriented front end over
// internal/mml's command set. It is deliberately not an MML grammar: there
// is no note-letter/octave/duration-shorthand parsing, no macros, and no
// expression language. Each line names exactly one generator command and
// its numeric arguments, so a sound-effect file or a reference song source
// can drive internal/mml.Generator without hand-writing Go.
package mmltext

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
)

// Error is a tagged command-text compile failure.
type Error struct {
	Line int
	Text string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mmltext: line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// MaxInstructions bounds how many commands a single Compile call will
// execute, mirroring the MML-compile-of-prefix watchdog (§5: 8,000
// bytecode instructions max per compile). Each command line emits
// approximately one bytecode instruction, so the line count is a close
// proxy for the real instruction count without threading a counter through
// the assembler.
const MaxInstructions = 8000

// Compile runs source (one command per line, blank lines and lines starting
// with ';' ignored) against g. Recognized commands: inst, adsr, gain,
// note, restkeyoff, restsilent, wait, pan, vol, panvol, loopstart, loopend.
func Compile(g *mml.Generator, source string) error {
	executed := 0
	for i, rawLine := range strings.Split(source, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		executed++
		if executed > MaxInstructions {
			return &Error{Line: i + 1, Text: line, Err: fmt.Errorf("exceeded %d instructions in this compile", MaxInstructions)}
		}
		fields := strings.Fields(line)
		if err := compileLine(g, fields[0], fields[1:]); err != nil {
			return &Error{Line: i + 1, Text: line, Err: err}
		}
	}
	return nil
}

func compileLine(g *mml.Generator, cmd string, args []string) error {
	switch cmd {
	case "inst":
		id, err := u8(args, 0)
		if err != nil {
			return err
		}
		g.Asm.SetInstrument(id)
		return nil
	case "adsr":
		a, err := u8(args, 0)
		if err != nil {
			return err
		}
		d, err := u8(args, 1)
		if err != nil {
			return err
		}
		s, err := u8(args, 2)
		if err != nil {
			return err
		}
		r, err := u8(args, 3)
		if err != nil {
			return err
		}
		g.Asm.SetADSR(bytecode.ADSR(a, d, s, r))
		return nil
	case "gain":
		gain, err := u8(args, 0)
		if err != nil {
			return err
		}
		g.Asm.SetGain(bytecode.GainEnv(gain))
		return nil
	case "note":
		note, err := u8(args, 0)
		if err != nil {
			return err
		}
		length, err := ticks(args, 1)
		if err != nil {
			return err
		}
		slur := len(args) > 2 && args[2] == "slur"
		return g.PlayNoteWithMP(note, length, slur)
	case "restkeyoff":
		length, err := ticks(args, 0)
		if err != nil {
			return err
		}
		return g.RestKeyoff(length)
	case "restsilent":
		length, err := ticks(args, 0)
		if err != nil {
			return err
		}
		return g.RestSilent(length)
	case "wait":
		length, err := ticks(args, 0)
		if err != nil {
			return err
		}
		return g.Wait(length)
	case "pan":
		v, err := u8(args, 0)
		if err != nil {
			return err
		}
		g.SetPan(v)
		return nil
	case "vol":
		v, err := u8(args, 0)
		if err != nil {
			return err
		}
		g.SetVolume(v)
		return nil
	case "panvol":
		pan, err := u8(args, 0)
		if err != nil {
			return err
		}
		vol, err := u8(args, 1)
		if err != nil {
			return err
		}
		g.SetPanAndVolume(pan, vol)
		return nil
	case "loopstart":
		count, err := u8(args, 0)
		if err != nil {
			return err
		}
		return g.Asm.StartLoop(count)
	case "loopend":
		return g.Asm.EndLoop()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func u8(args []string, idx int) (uint8, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("missing argument %d", idx)
	}
	v, err := strconv.ParseUint(args[idx], 10, 8)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", idx, err)
	}
	return uint8(v), nil
}

func ticks(args []string, idx int) (bytecode.Ticks, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("missing argument %d", idx)
	}
	v, err := strconv.ParseUint(args[idx], 10, 16)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", idx, err)
	}
	return bytecode.Ticks(v), nil
}
