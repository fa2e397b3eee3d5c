package mml

import "github.com/tadgo/tad/internal/bytecode"

// CallType distinguishes a raw `Asm` bytecode call from one written in MML
// source, which additionally depends on the generator's MP-vibrato policy
// (§4.3.9).
type CallType int

const (
	CallAsm CallType = iota
	CallAsmDisableVibrato
	CallMml
)

// Call emits a subroutine call, choosing call_subroutine or
// call_subroutine_and_disable_vibrato per the four cases in §4.3.9. After
// the call, if the callee is known to leave vibrato Set, the generator's MP
// mode is demoted to Manual so future notes do not try to reassert it.
func (g *Generator) Call(callType CallType, name string, calleeLeavesVibratoSet bool) error {
	disableVibrato := callType == CallAsmDisableVibrato ||
		(callType == CallMml && g.mpMode.Kind == MpActive)

	var err error
	if disableVibrato {
		err = g.Asm.CallSubroutineAndDisableVibrato(name)
	} else {
		err = g.Asm.CallSubroutine(name)
	}
	if err != nil {
		return toChannelErr(err)
	}

	if calleeLeavesVibratoSet {
		g.mpMode = MpMode{Kind: MpManual}
	}
	return nil
}

// FinishSubroutine closes a subroutine body. If the last command compiled
// was itself a call that is still pending as tailCall, it is emitted as a
// TailSubroutineCall terminator in place of a regular call plus
// ReturnFromSubroutine (§4.3.10); otherwise it closes with a plain return,
// disabling vibrato if the channel's vibrato is Set at this point.
func (g *Generator) FinishSubroutine(tailCall *PendingTailCall) ([]byte, bytecode.State, error) {
	if tailCall != nil {
		return g.Asm.Bytecode(bytecode.TermTailSubroutineCall, tailCall.Target)
	}
	if g.Asm.State().Vibrato.IsActive() {
		return g.Asm.Bytecode(bytecode.TermReturnFromSubroutineAndDisableVibrato, "")
	}
	return g.Asm.Bytecode(bytecode.TermReturnFromSubroutine, "")
}

// PendingTailCall names the subroutine a channel's final command would
// have called, allowing the song compiler to replace that call with a
// tail-call terminator (§4.3.10).
type PendingTailCall struct {
	Target string
}
