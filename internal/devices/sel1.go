// Package devices implements the CORE's memory-mapped I/O register set:
// the system-control register, a keyboard stub, video-sync bits, a timer
// and the one-bit audio edge detector — everything spec.md §2 calls "a
// device" (memory-mapped but not plain memory).
package devices

import (
	"pdp11emu/internal/audio"
	"pdp11emu/internal/bus"
)

// Sel1Address is the BK-0010 system-control register address.
const Sel1Address uint16 = 0177716

// AudioOutputBit is bit 6 of SEL1, the one-bit PCM output line, per
// original_source's AudioOutput.OUTPUT_BIT.
const AudioOutputBit uint16 = 1 << 6

// AudioEdgeDevice watches writes for a flip of AudioOutputBit and pushes
// the write's CPU-time timestamp into a ring buffer. It owns no cyclic
// state of its own — the ring buffer is handed in at construction rather
// than reached via a back-reference to the computer, per spec.md §9's
// "pass what a device needs as parameters" guidance — and it is composed
// into Sel1 rather than claiming its own bus address, since on real
// hardware the audio bit and the other system-control bits share one
// register. Grounded on original_source's AudioOutput.write().
type AudioEdgeDevice struct {
	ring      *audio.RingBuffer
	lastState uint16
}

// NewAudioEdgeDevice creates an edge detector that reports toggles into ring.
func NewAudioEdgeDevice(ring *audio.RingBuffer) *AudioEdgeDevice {
	return &AudioEdgeDevice{ring: ring}
}

func (a *AudioEdgeDevice) init() { a.lastState = 0 }

func (a *AudioEdgeDevice) observe(cpuTime int64, value uint16) {
	state := value & AudioOutputBit
	if state != a.lastState {
		a.ring.Push(cpuTime)
	}
	a.lastState = state
}

// Sel1 is the BK-0010 system-control register: audio output bit 6 plus a
// handful of other system bits (halt/start-button sense, floppy motor
// select, ROM/RAM bank select on the -0011) that the CORE does not
// interpret but must still store and echo back on read, since ROM code
// probes them. This is the "SEL1RegisterSystemBits" umbrella device named
// in the SUPPLEMENTED FEATURES: one bus.Device composing the audio edge
// detector over the same register.
type Sel1 struct {
	audio *AudioEdgeDevice
	bits  uint16
}

// NewSel1 creates the system-control register, wired to push audio edges
// into ring (which may be nil if audio output is disabled — writes then
// simply update the stored bits with no edge tracking).
func NewSel1(ring *audio.RingBuffer) *Sel1 {
	s := &Sel1{}
	if ring != nil {
		s.audio = NewAudioEdgeDevice(ring)
	}
	return s
}

func (s *Sel1) Addresses() []uint16 { return []uint16{Sel1Address} }

func (s *Sel1) Init(cpuTime int64) {
	if s.audio != nil {
		s.audio.init()
	}
}

func (s *Sel1) Read(cpuTime int64, address uint16) uint16 { return s.bits }

func (s *Sel1) Write(cpuTime int64, byteMode bool, address uint16, value uint16) {
	if byteMode {
		value &= 0xFF
	}
	s.bits = value
	if s.audio != nil {
		s.audio.observe(cpuTime, value)
	}
}

func (s *Sel1) SaveState(bag bus.StateBag) {
	bag["bits"] = []byte{byte(s.bits), byte(s.bits >> 8)}
}

func (s *Sel1) RestoreState(bag bus.StateBag) {
	if b, ok := bag["bits"]; ok && len(b) >= 2 {
		s.bits = uint16(b[0]) | uint16(b[1])<<8
	}
}
