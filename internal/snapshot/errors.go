package snapshot

import "fmt"

// ErrorKind enumerates the assertion failures Write can report (§4.5).
type ErrorKind int

const (
	SongPtrMismatch ErrorKind = iota
	PanOutOfRange
	StackPointerOverflow
)

// Error is one snapshot-write assertion failure.
type Error struct {
	Kind    ErrorKind
	Channel int
	Got     int
	Want    int
}

func (e *Error) Error() string {
	switch e.Kind {
	case SongPtrMismatch:
		return fmt.Sprintf("snapshot: SONG_PTR in RAM (%#04x) does not match song_data_addr (%#04x)", e.Got, e.Want)
	case PanOutOfRange:
		return fmt.Sprintf("snapshot: channel %d pan %d exceeds MAX_PAN", e.Channel, e.Got)
	case StackPointerOverflow:
		return fmt.Sprintf("snapshot: channel %d stack_pointer %d exceeds the stack capacity", e.Channel, e.Got)
	default:
		return "snapshot: unknown assertion failure"
	}
}
