// Package machine assembles the bus, the CPU and the device set into the
// runnable computer described by spec.md §6: construct, populate with
// memory and devices, reset, then step or run for a duration.
package machine

import (
	"errors"
	"time"

	"pdp11emu/internal/audio"
	"pdp11emu/internal/bus"
	"pdp11emu/internal/cpu"
	"pdp11emu/internal/logging"
)

// Option configures a Computer at construction time, generalizing
// davecheney-pdp11's flat constructor into the functional-options shape
// the rest of the pack (e.g. kong-driven CLIs) favors for optional wiring.
type Option func(*Computer) error

// WithLogger overrides the default stderr logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Computer) error {
		c.log = log
		return nil
	}
}

// WithClockFrequency sets the CPU clock used to pace ExecuteFor and to
// size/drive the audio emitter. Defaults to 3,000,000 Hz, matching the
// BK-0010's K1801VM1 timing class.
func WithClockFrequency(hz float64) Option {
	return func(c *Computer) error {
		if hz <= 0 {
			return errors.New("machine: clock frequency must be positive")
		}
		c.clockHz = hz
		return nil
	}
}

// WithStartVector sets the reset-time PC vector address and initial SP.
func WithStartVector(vector, initialSP uint16) Option {
	return func(c *Computer) error {
		c.startVector = vector
		c.initialSP = initialSP
		return nil
	}
}

// WithAudio enables the audio subsystem: a PCM ring buffer sized per
// spec.md §9's capacity formula and an emitter rendering at rate Hz into
// sink. It does not register a Sel1 register: callers pass AudioRing()
// to devices.NewSel1 and install it with AddDevice, so that the register
// and the emitter share the same buffer instance.
func WithAudio(rate, bufferSamples int, sink audio.Sink) Option {
	return func(c *Computer) error {
		c.audioRate = rate
		c.audioBufferSamples = bufferSamples
		c.audioSink = sink
		return nil
	}
}

// Computer wires together the bus, the CPU and the device set, and owns
// the optional audio emission goroutine — the External Interfaces surface
// of spec.md §6.
type Computer struct {
	bus *bus.Bus
	cpu *cpu.CPU
	log *logging.Logger

	clockHz     float64
	startVector uint16
	initialSP   uint16

	audioRate          int
	audioBufferSamples int
	audioSink          audio.Sink
	audioRing          *audio.RingBuffer
	emitter            *audio.Emitter
}

const defaultClockHz = 3_000_000
const minCyclesPerEdge = 3 // shortest opcode base cycle count, see opcode.go

// New constructs a Computer with no memory or devices attached yet;
// callers populate it with AddMemory/AddDevice before calling Reset.
func New(opts ...Option) (*Computer, error) {
	c := &Computer{clockHz: defaultClockHz}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.log == nil {
		c.log = logging.Default()
	}
	c.bus = bus.New(c.log)
	c.cpu = cpu.New(c.bus, c.log)
	c.cpu.Configure(c.startVector, c.initialSP)

	if c.audioSink != nil {
		capacity := audioRingCapacity(c.audioBufferSamples, c.clockHz, c.audioRate)
		c.audioRing = audio.NewRingBuffer(capacity, c.log)
		c.emitter = audio.NewEmitter(c.audioRing, c.audioSink, c.clockHz, c.audioRate, c.audioBufferSamples, c.log)
	}
	return c, nil
}

// audioRingCapacity implements spec.md §9's open-question resolution:
// max_edges_per_buffer = buffer_samples * cpu_freq / (rate * min_cycles_per_edge).
func audioRingCapacity(bufferSamples int, cpuFreqHz float64, rate int) int {
	if rate <= 0 || bufferSamples <= 0 {
		return 1
	}
	n := int(float64(bufferSamples) * cpuFreqHz / (float64(rate) * float64(minCyclesPerEdge)))
	if n < 1 {
		n = 1
	}
	return n
}

// AddMemory installs a RAM or ROM region.
func (c *Computer) AddMemory(r bus.Region) error {
	return c.bus.AddRegion(r)
}

// AddDevice installs a memory-mapped device.
func (c *Computer) AddDevice(d bus.Device) error {
	return c.bus.AddRegion(bus.NewDevice(d))
}

// AudioRing exposes the PCM ring buffer so callers can wire it into a
// devices.Sel1 (or any other audio-producing device) with AddDevice,
// keeping the ring's ownership here rather than duplicating it.
func (c *Computer) AudioRing() *audio.RingBuffer { return c.audioRing }

// RaiseInterrupt lets a device request a CPU interrupt without holding a
// reference to the CPU itself — Computer hands this method (or a closure
// around it) to devices like devices.Timer at construction.
func (c *Computer) RaiseInterrupt(vector, priority uint16) {
	c.cpu.RaiseInterrupt(vector, priority)
}

// Reset restores the bus's devices and the CPU to their power-up state,
// then starts the audio emitter if one was configured.
func (c *Computer) Reset() {
	c.bus.Reset()
	c.cpu.Reset()
	if c.emitter != nil {
		c.emitter.Start()
	}
}

// Shutdown stops the audio emitter, if running, joining its goroutine
// before returning — spec.md §5's "CPU thread joins before releasing the
// audio sink".
func (c *Computer) Shutdown() {
	if c.emitter != nil {
		c.emitter.Stop()
	}
}

// advancer is implemented by devices that need to run logic once per
// instruction regardless of whether the CPU addressed them — devices.Timer
// is the only current example. This is a duck-typed extension on top of
// bus.Device, not a change to that interface, since spec.md §6 fixes its
// shape.
type advancer interface {
	Advance(cpuTime int64)
}

// ExecuteSingleInstruction runs exactly one instruction and returns how
// many machine cycles it took.
func (c *Computer) ExecuteSingleInstruction() (cycles int) {
	cycles = c.cpu.ExecuteSingleInstruction()
	now := c.cpu.Cycles()
	for _, d := range c.bus.Devices() {
		if a, ok := d.(advancer); ok {
			a.Advance(now)
		}
	}
	return cycles
}

// ExecuteFor runs instructions until at least nanos of CPU time have
// elapsed, sleeping between instructions (never mid-instruction) to keep
// wall-clock pace with the configured clock frequency, per spec.md §5.
func (c *Computer) ExecuteFor(nanos int64) {
	deadline := c.cpu.Cycles() + nanosToCycles(nanos, c.clockHz)
	start := time.Now()
	startCycles := c.cpu.Cycles()
	for c.cpu.Cycles() < deadline && !c.cpu.Halted() {
		c.ExecuteSingleInstruction()
		elapsedCycles := c.cpu.Cycles() - startCycles
		wallTarget := time.Duration(float64(elapsedCycles) / c.clockHz * float64(time.Second))
		if sleep := wallTarget - time.Since(start); sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

func nanosToCycles(nanos int64, clockHz float64) int64 {
	return int64(float64(nanos) / 1e9 * clockHz)
}

// CPU exposes the underlying CPU for tests, disassembly and CLI tracing.
func (c *Computer) CPU() *cpu.CPU { return c.cpu }

// Bus exposes the underlying memory bus for tests and diagnostics that
// need to poke individual words (e.g. trap vector tables) outside the
// AddMemory/AddDevice construction phase.
func (c *Computer) Bus() *bus.Bus { return c.bus }
