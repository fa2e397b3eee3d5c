package worker

import (
	"os"

	"github.com/tadgo/tad/internal/bytecode"
	"github.com/tadgo/tad/internal/mml"
	"github.com/tadgo/tad/internal/mmltext"
	"github.com/tadgo/tad/internal/project"
	"github.com/tadgo/tad/internal/song"
)

// DefaultSongLoadAddr is the song-data load address used when a compiled
// song's header is emitted outside of a full link step (§6 "Addresses
// inside the blob are absolute addresses relative to the driver's
// song-data load address").
const DefaultSongLoadAddr = 0x2000

func (w *Worker) handle(cmd Command) {
	switch cmd.Kind {
	case CommandCompileCommon:
		w.handleCompileCommon(cmd)
	case CommandCompileSong:
		w.handleCompileSong(cmd)
	case CommandCompileSoundEffects:
		w.handleCompileSoundEffects(cmd)
	default:
		w.postEvent(Event{Kind: EventPanic, ItemID: cmd.ItemID, Message: "unknown command kind"})
	}
}

func (w *Worker) handleCompileCommon(cmd Command) {
	w.log.Info("compile common: start", "item", cmd.ItemID, "project", cmd.ProjectPath)

	proj, err := project.Load(cmd.ProjectPath)
	if err != nil {
		w.log.Warn("compile common: malformed project file", "err", err)
		w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	data := &project.CommonAudioData{}
	for i, inst := range proj.Instruments {
		raw, err := os.ReadFile(proj.ResolvePath(inst.Source))
		if err != nil {
			w.log.Error("compile common: reading instrument sample", "instrument", inst.Name, "err", err)
			w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
			return
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
			w.log.Error("compile common: reading sound effect file", "err", err)
			w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
			return
		}
		sfxFile, err := project.ParseSoundEffectFile(string(raw))
		if err != nil {
			w.log.Error("compile common: parsing sound effect file", "err", err)
			w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
			return
		}
		sfx, err := project.CompileSoundEffects(sfxFile, w.pitch)
		if err != nil {
			w.log.Error("compile common: compiling sound effects", "err", err)
			w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
			return
		}
		data.SoundEffects = sfx
	}

	var buf writerBuf
	if _, err := data.WriteTo(&buf); err != nil {
		w.log.Error("compile common: serializing", "err", err)
		w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	w.log.Info("compile common: done", "item", cmd.ItemID, "bytes", len(buf.data))
	w.postEvent(Event{Kind: EventCompileCommonDone, ItemID: cmd.ItemID, CommonAudioData: buf.data})
}

func (w *Worker) handleCompileSong(cmd Command) {
	w.log.Info("compile song: start", "item", cmd.ItemID, "project", cmd.ProjectPath, "song", cmd.SongName)

	proj, err := project.Load(cmd.ProjectPath)
	if err != nil {
		w.log.Warn("compile song: malformed project file", "err", err)
		w.postEvent(Event{Kind: EventCompileSongDone, ItemID: cmd.ItemID, Err: err})
		return
	}
	entry, ok := proj.SongByName(cmd.SongName)
	if !ok {
		err := &project.Error{Kind: project.ErrUnknownInstrument, Name: cmd.SongName}
		w.log.Warn("compile song: unknown song", "name", cmd.SongName)
		w.postEvent(Event{Kind: EventCompileSongDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	raw, err := os.ReadFile(proj.ResolvePath(entry.Source))
	if err != nil {
		w.log.Error("compile song: reading source", "err", err)
		w.postEvent(Event{Kind: EventCompileSongDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	table := song.NewTable()
	builder := song.NewBuilder(table, w.pitch)
	ch, err := builder.CompileChannel(0, func(g *mml.Generator) (bytecode.Terminator, string, error) {
		if err := mmltext.Compile(g, string(raw)); err != nil {
			return 0, "", err
		}
		return bytecode.TermDisableChannel, "", nil
	})
	if err != nil {
		w.log.Error("compile song: bytecode assembly", "err", err)
		w.postEvent(Event{Kind: EventCompileSongDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	s := &song.Song{Subroutines: table, Bytecode: builder.Bytecode()}
	s.Channels[0] = ch
	header := s.Header(DefaultSongLoadAddr)
	out := append(header, s.Bytecode...)

	w.log.Info("compile song: done", "item", cmd.ItemID, "bytes", len(out))
	w.postEvent(Event{Kind: EventCompileSongDone, ItemID: cmd.ItemID, SongBytecode: out})
}

func (w *Worker) handleCompileSoundEffects(cmd Command) {
	w.log.Info("compile sound effects: start", "item", cmd.ItemID, "project", cmd.ProjectPath)

	proj, err := project.Load(cmd.ProjectPath)
	if err != nil {
		w.log.Warn("compile sound effects: malformed project file", "err", err)
		w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, Err: err})
		return
	}
	if proj.SoundEffectFile == "" {
		w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, SoundEffects: 0})
		return
	}

	raw, err := os.ReadFile(proj.ResolvePath(proj.SoundEffectFile))
	if err != nil {
		w.log.Error("compile sound effects: reading file", "err", err)
		w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, Err: err})
		return
	}
	sfxFile, err := project.ParseSoundEffectFile(string(raw))
	if err != nil {
		w.log.Error("compile sound effects: parsing", "err", err)
		w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, Err: err})
		return
	}
	sfx, err := project.CompileSoundEffects(sfxFile, w.pitch)
	if err != nil {
		w.log.Error("compile sound effects: compiling", "err", err)
		w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, Err: err})
		return
	}

	w.log.Info("compile sound effects: done", "item", cmd.ItemID, "count", len(sfx))
	w.postEvent(Event{Kind: EventCompileSoundEffectsDone, ItemID: cmd.ItemID, SoundEffects: len(sfx)})
}

// writerBuf is a minimal io.Writer accumulating bytes, avoiding a
// bytes.Buffer import just for WriteTo's sake in this file.
type writerBuf struct{ data []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
