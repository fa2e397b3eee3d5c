package mml

import "github.com/tadgo/tad/internal/diagnostics"

// SetPanAndVolume emits the combined absolute pan+volume opcode (§4.3.8).
func (g *Generator) SetPanAndVolume(pan, volume uint8) {
	g.Asm.SetPanAndVolume(pan, volume)
}

// SetVolume emits an absolute volume change.
func (g *Generator) SetVolume(volume uint8) { g.Asm.SetVolume(volume) }

// SetPan emits an absolute pan change. Relative pan changes go through
// AdjustPan.
func (g *Generator) SetPan(pan uint8) { g.Asm.SetPan(pan) }

// AdjustVolume applies a relative volume change, splitting into two
// adjust_volume instructions when delta does not fit a single signed byte
// (§4.3.8).
func (g *Generator) AdjustVolume(delta int) error {
	first, second, ok := splitByteDelta(delta)
	if !ok {
		return diagnostics.NewBytecodeError(errDeltaOutOfRange(delta))
	}
	g.Asm.AdjustVolume(first)
	if second != nil {
		g.Asm.AdjustVolume(*second)
	}
	return nil
}

// AdjustPan mirrors AdjustVolume's splitting policy for relative pan
// changes (§4.3.8).
func (g *Generator) AdjustPan(delta int) error {
	first, second, ok := splitByteDelta(delta)
	if !ok {
		return diagnostics.NewBytecodeError(errDeltaOutOfRange(delta))
	}
	g.Asm.AdjustPan(first)
	if second != nil {
		g.Asm.AdjustPan(*second)
	}
	return nil
}

// splitByteDelta represents delta as one or two signed-byte adjustments
// that sum to it, saturating each to the signed-byte extremes.
func splitByteDelta(delta int) (first int8, second *int8, ok bool) {
	if delta >= -128 && delta <= 127 {
		return int8(delta), nil, true
	}
	if delta < -256 || delta > 254 {
		return 0, nil, false
	}
	if delta > 0 {
		s := int8(127)
		rem := int8(delta - 127)
		return s, &rem, true
	}
	s := int8(-128)
	rem := int8(delta + 128)
	return s, &rem, true
}

type deltaOutOfRangeError struct{ delta int }

func (e *deltaOutOfRangeError) Error() string { return "pan/volume delta out of range" }

func errDeltaOutOfRange(delta int) error { return &deltaOutOfRangeError{delta: delta} }
