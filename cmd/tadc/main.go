// Command tadc is a reference CLI over the project/worker/interpreter
// packages: it compiles a project's common audio data or a single song to
// a binary blob, or replays a compiled song through the interpreter and
// dumps the resulting APU snapshot. It dispatches on a bare argv subcommand
// rather than a subcommand framework.
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/tadgo/tad/internal/interpreter"
	"github.com/tadgo/tad/internal/mmltext"
	"github.com/tadgo/tad/internal/pitch"
	"github.com/tadgo/tad/internal/project"
	"github.com/tadgo/tad/internal/snapshot"
	"github.com/tadgo/tad/internal/song"
	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
)

var logger = log.Default()

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		runCompile(os.Args[2:])
	case "play":
		runPlay(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tadc compile common <project.json> -o <out.bin>")
	fmt.Fprintln(os.Stderr, "       tadc compile song <project.json> <song-name> -o <out.bin>")
	fmt.Fprintln(os.Stderr, "       tadc play <song.bin> <song-data-addr-hex>")
}

func runCompile(args []string) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	switch args[0] {
	case "common":
		runCompileCommon(args[1:])
	case "song":
		runCompileSong(args[1:])
	default:
		usage()
		os.Exit(1)
	}
}

func runCompileCommon(args []string) {
	fs := pflag.NewFlagSet("compile common", pflag.ExitOnError)
	out := fs.StringP("output", "o", "", "output path")
	if err := fs.Parse(args); err != nil {
		fatal("parsing flags", err)
	}
	if fs.NArg() < 1 || *out == "" {
		usage()
		os.Exit(1)
	}

	proj, err := project.Load(fs.Arg(0))
	if err != nil {
		fatal("loading project", err)
	}

	data := &project.CommonAudioData{}
	for i, inst := range proj.Instruments {
		raw, err := os.ReadFile(proj.ResolvePath(inst.Source))
		if err != nil {
			fatal("reading instrument sample", err)
		}
		data.Instruments = append(data.Instruments, project.CompiledInstrument{
			Scrn:        uint8(i),
			PitchOffset: inst.PitchOffset,
			Adsr1:       inst.Adsr1,
			Adsr2OrGain: inst.Adsr2OrGain,
		})
		data.SampleBank = append(data.SampleBank, raw...)
	}

	if proj.SoundEffectFile != "" {
		raw, err := os.ReadFile(proj.ResolvePath(proj.SoundEffectFile))
		if err != nil {
			fatal("reading sound effect file", err)
		}
		sfxFile, err := project.ParseSoundEffectFile(string(raw))
		if err != nil {
			fatal("parsing sound effect file", err)
		}
		sfx, err := project.CompileSoundEffects(sfxFile, &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000})
		if err != nil {
			fatal("compiling sound effects", err)
		}
		data.SoundEffects = sfx
	}

	f, err := os.Create(*out)
	if err != nil {
		fatal("creating output", err)
	}
	defer f.Close()
	n, err := data.WriteTo(f)
	if err != nil {
		fatal("writing output", err)
	}
	logger.Info("compile common: done", "bytes", n, "output", *out)
}

func runCompileSong(args []string) {
	fs := pflag.NewFlagSet("compile song", pflag.ExitOnError)
	out := fs.StringP("output", "o", "", "output path")
	loadAddr := fs.Uint16("load-addr", 0x2000, "song-data load address")
	if err := fs.Parse(args); err != nil {
		fatal("parsing flags", err)
	}
	if fs.NArg() < 2 || *out == "" {
		usage()
		os.Exit(1)
	}

	proj, err := project.Load(fs.Arg(0))
	if err != nil {
		fatal("loading project", err)
	}
	entry, ok := proj.SongByName(fs.Arg(1))
	if !ok {
		fatal("looking up song", &project.Error{Kind: project.ErrUnknownInstrument, Name: fs.Arg(1)})
	}
	raw, err := os.ReadFile(proj.ResolvePath(entry.Source))
	if err != nil {
		fatal("reading song source", err)
	}

	table := song.NewTable()
	builder := song.NewBuilder(table, &pitch.EqualTemperedTable{AnchorNote: 60, AnchorPitch: 4000})
	ch, err := builder.CompileChannel(0, func(g *mml.Generator) (bytecode.Terminator, string, error) {
		if err := mmltext.Compile(g, string(raw)); err != nil {
			return 0, "", err
		}
		return bytecode.TermDisableChannel, "", nil
	})
	if err != nil {
		fatal("compiling song", err)
	}

	s := &song.Song{Subroutines: table, Bytecode: builder.Bytecode()}
	s.Channels[0] = ch

	f, err := os.Create(*out)
	if err != nil {
		fatal("creating output", err)
	}
	defer f.Close()
	if _, err := f.Write(s.Header(*loadAddr)); err != nil {
		fatal("writing header", err)
	}
	if _, err := f.Write(s.Bytecode); err != nil {
		fatal("writing bytecode", err)
	}
	logger.Info("compile song: done", "bytes", len(s.Bytecode), "output", *out)
}

func runPlay(args []string) {
	fs := pflag.NewFlagSet("play", pflag.ExitOnError)
	ticks := fs.Uint32("ticks", 60, "number of ticks to advance")
	if err := fs.Parse(args); err != nil {
		fatal("parsing flags", err)
	}
	if fs.NArg() < 2 {
		usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal("reading song bytecode", err)
	}
	// "compile song" writes the song header ahead of the bytecode; only the
	// bytecode, whose offsets are relative to its own start, is replayed.
	if len(raw) == 0 {
		fatal("reading song header", fmt.Errorf("empty song file"))
	}
	headerLen := 2 + int(raw[0])*2 + song.MaxMusicChannels*2 + 2
	if len(raw) < headerLen {
		fatal("reading song header", fmt.Errorf("song file shorter than its %d-byte header", headerLen))
	}
	raw = raw[headerLen:]
	var addr uint64
	if _, err := fmt.Sscanf(fs.Arg(1), "%x", &addr); err != nil {
		fatal("parsing song-data address", err)
	}

	it := interpreter.NewInterpreter(raw, emptyInstruments{})
	it.SongDataAddr = uint16(addr)
	it.StartChannel(0, 0)

	out, err := it.ProcessTicks(*ticks)
	if err != nil {
		fatal("advancing interpreter", err)
	}

	target := snapshot.NewMapTarget()
	binary.LittleEndian.PutUint16(target.Memory[snapshot.SongPtr:], it.SongDataAddr)
	if err := snapshot.Write(target, out); err != nil {
		fatal("writing snapshot", err)
	}

	fmt.Printf("song tick: %d\n", out.SongTick)
	for i := 0; i < 8; i++ {
		if out.Channels[i] == nil {
			continue
		}
		fmt.Printf("channel %d: instruction_ptr=%04x volume=%d pan=%d\n",
			i, out.Channels[i].InstructionPtr, out.Channels[i].Volume.Value, out.Channels[i].Pan.Value)
	}
}

type emptyInstruments struct{}

func (emptyInstruments) Instrument(uint8) (interpreter.Instrument, bool) { return interpreter.Instrument{}, false }

func fatal(context string, err error) {
	logger.Error(context, "err", err)
	os.Exit(1)
}
