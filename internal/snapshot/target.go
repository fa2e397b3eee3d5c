package snapshot

// Target abstracts the APU RAM image and S-DSP/S-SMP register file a
// snapshot is written into, so the same writer drives both a real
// emulator and a test double (§4.5).
type Target interface {
	ApuRAM() *[65536]byte
	WriteDSPRegister(addr, val byte)
	WriteSMPRegister(addr, val byte)
}

// MapTarget is an in-memory Target double for tests: a flat byte array
// standing in for APU RAM plus DSP/SMP register files.
type MapTarget struct {
	Memory      [65536]byte
	DSPRegisters [256]byte
	SMPRegisters [256]byte
}

func NewMapTarget() *MapTarget {
	return &MapTarget{}
}

func (m *MapTarget) ApuRAM() *[65536]byte { return &m.Memory }

func (m *MapTarget) WriteDSPRegister(addr, val byte) { m.DSPRegisters[addr] = val }

func (m *MapTarget) WriteSMPRegister(addr, val byte) { m.SMPRegisters[addr] = val }
