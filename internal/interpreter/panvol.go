package interpreter

// Direction is the PanVol sub-state machine's current motion (§4.4.3).
type Direction int

const (
	DirNone Direction = iota
	DirSlideUp
	DirSlideDown
	DirTriangleUp
	DirTriangleDown
)

// PanVol is the generic volume/pan slide-and-triangle state machine (§4.4.3).
// Max is 255 for volume and MaxPan for pan; it is a field rather than a Go
// type parameter since it varies by value, not by type.
type PanVol struct {
	Max uint8

	Value    uint8
	SubValue uint8
	Counter  uint8
	Dir      Direction

	HalfWavelength uint8
	Offset         uint32 // per-tick delta magnitude in 8.8 fixed point (Value:SubValue units)

	TriangleStart uint8
	Tick          uint32 // tick of last update
}

// NewPanVol creates a PanVol pinned to an initial absolute value.
func NewPanVol(max uint8, initial uint8) PanVol {
	return PanVol{Max: max, Value: initial}
}

func (p *PanVol) fixedPoint() uint32 {
	return uint32(p.Value)<<8 | uint32(p.SubValue)
}

func (p *PanVol) setFixedPoint(v uint32) {
	p.Value = uint8(v >> 8)
	p.SubValue = uint8(v)
}

func (p *PanVol) maxU32() uint32 {
	return uint32(p.Max)<<8 | 0xFF
}

// update advances the state machine to tick T, applying whatever slide or
// triangle motion is in progress without emitting bytecode (§4.4.1
// finalisation, §4.4.3).
func (p *PanVol) update(t uint32) {
	if t <= p.Tick {
		return
	}
	switch p.Dir {
	case DirSlideUp, DirSlideDown:
		p.updateSlide(t)
	case DirTriangleUp, DirTriangleDown:
		p.updateTriangle(t)
	default:
		p.Tick = t
	}
}

func (p *PanVol) updateSlide(t uint32) {
	slideTicks := uint32(p.Counter)
	if slideTicks == 0 {
		slideTicks = 256
	}
	elapsed := t - p.Tick
	if elapsed > slideTicks {
		elapsed = slideTicks
	}

	v := p.fixedPoint()
	delta := elapsed * p.Offset
	var nv uint32
	if p.Dir == DirSlideUp {
		nv = v + delta
	} else {
		if delta > v {
			nv = 0
		} else {
			nv = v - delta
		}
	}

	if nv > p.maxU32() {
		nv = p.maxU32()
		p.Dir = DirNone
	}
	p.setFixedPoint(nv)

	remaining := slideTicks - elapsed
	if remaining == 0 || remaining == 256 {
		p.Dir = DirNone
		p.Counter = 0
	} else {
		p.Counter = uint8(remaining)
	}
	p.Tick = t
}

// updateTriangle follows §4.4.3's quadrant formula verbatim: position is the
// raw elapsed-tick count modulo the full wavelength, not reset per quadrant.
func (p *PanVol) updateTriangle(t uint32) {
	halfWl := uint32(p.HalfWavelength)
	wavelength := halfWl * 2
	if wavelength == 0 {
		p.Tick = t
		return
	}

	elapsed := t - p.Tick
	quadrantLen := wavelength / 4
	if quadrantLen == 0 {
		p.Tick = t
		return
	}

	position := elapsed % wavelength
	quadrant := position / quadrantLen

	start := uint32(p.TriangleStart)<<8 | 0x7F

	var v int64
	switch quadrant {
	case 0:
		v = int64(start) + int64(position)*int64(p.Offset)
	case 1:
		v = int64(start) + int64(halfWl-position)*int64(p.Offset)
	case 2:
		v = int64(start) - int64(position-halfWl)*int64(p.Offset)
	default:
		v = int64(start) - int64(wavelength-position)*int64(p.Offset)
	}

	clamped := false
	if v > int64(p.maxU32()) {
		v = int64(p.maxU32())
		clamped = true
	}
	if v < 0 {
		v = 0
		clamped = true
	}
	p.setFixedPoint(uint32(v))
	if clamped && elapsed >= wavelength {
		p.Dir = DirNone
	}
	p.Tick = t
}

// SetValue applies set_value(v): direction := None; value := v.
func (p *PanVol) SetValue(v uint8) {
	p.Dir = DirNone
	p.Value = v
	p.SubValue = 0
}

// AdjustValue applies adjust_value(delta, tc).
func (p *PanVol) AdjustValue(delta int8, tc uint32) {
	p.update(tc)
	p.Dir = DirNone
	nv := int(p.Value) + int(delta)
	if nv < 0 {
		nv = 0
	}
	if nv > int(p.Max) {
		nv = int(p.Max)
	}
	p.Value = uint8(nv)
}

// SlideUp/SlideDown apply slide_up|down(ticks, offset, tc).
func (p *PanVol) SlideUp(ticks uint8, offset uint32, tc uint32) {
	p.update(tc)
	p.Dir = DirSlideUp
	p.Counter = ticks
	p.Offset = offset
	p.SubValue = 0
}

func (p *PanVol) SlideDown(ticks uint8, offset uint32, tc uint32) {
	p.update(tc)
	p.Dir = DirSlideDown
	p.Counter = ticks
	p.Offset = offset
	p.SubValue = 0xFF
}

// Triangle applies tremolo|panbrello(qwt, offset, tc).
func (p *PanVol) Triangle(qwt uint8, offset uint32, tc uint32) {
	p.update(tc)
	p.Dir = DirTriangleUp
	p.HalfWavelength = qwt * 2
	p.Offset = offset
	p.SubValue = 0x7F
	p.TriangleStart = p.Value
}

// Finalize advances the state machine to targetTicks without emitting
// bytecode (§4.4.1).
func (p *PanVol) Finalize(targetTicks uint32) {
	p.update(targetTicks)
}
