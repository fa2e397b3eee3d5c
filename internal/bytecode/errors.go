package bytecode

import "fmt"

// AssemblerErrorKind enumerates the ways an assembler operation can violate
// an invariant (§4.2/§7: "surfaces errors immediately and halts the current
// block").
type AssemblerErrorKind int

const (
	ErrNoteOutOfRange AssemblerErrorKind = iota
	ErrLengthOutOfRange
	ErrLoopStackOverflow
	ErrEndLoopWithNoMatchingStart
	ErrUnknownSubroutine
	ErrCallStackOverflow
	ErrArgumentOutOfRange
)

// AssemblerError is returned immediately by the operation that triggered it;
// the bytes emitted so far remain valid.
type AssemblerError struct {
	Kind AssemblerErrorKind
	Int  int
	Str  string
}

func (e *AssemblerError) Error() string {
	switch e.Kind {
	case ErrNoteOutOfRange:
		return fmt.Sprintf("note %d out of range", e.Int)
	case ErrLengthOutOfRange:
		return fmt.Sprintf("length %d out of range (1-256)", e.Int)
	case ErrLoopStackOverflow:
		return "loop stack overflow"
	case ErrEndLoopWithNoMatchingStart:
		return "end_loop with no matching start_loop"
	case ErrUnknownSubroutine:
		return fmt.Sprintf("unknown subroutine %q", e.Str)
	case ErrCallStackOverflow:
		return "call stack overflow"
	case ErrArgumentOutOfRange:
		return fmt.Sprintf("argument out of range: %s", e.Str)
	default:
		return "unknown assembler error"
	}
}
