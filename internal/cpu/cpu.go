// Package cpu implements the CORE's instruction fetch/decode/execute loop:
// eight general registers, the processor status word, eight addressing
// modes and the full dual-operand/single-operand/branch/EIS opcode set of
// the PDP-11-derived architecture used by the BK-0010/BK-0011.
//
// The struct shape (register file, pc snapshot, psw) and the "fetch,
// dispatch on a nested switch, execute, return" control flow are
// generalized from davecheney-pdp11's KB11. Kernel/supervisor/user mode
// switching and the KT11 MMU from that teacher are dropped: the BK-0010's
// K1801VM1 processor has a single flat 16-bit address space and no
// virtual memory, which spec.md's data model reflects (see DESIGN.md).
package cpu

import (
	"pdp11emu/internal/bus"
	"pdp11emu/internal/logging"
)

// Register indices. R6 is the stack pointer, R7 the program counter,
// named exactly as su.comp.bk.arch.cpu.Cpu.PC in the original source.
const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	SP
	PC
)

// PSW condition flags, low four bits of the processor status word.
const (
	FlagC uint16 = 1 << 0
	FlagV uint16 = 1 << 1
	FlagZ uint16 = 1 << 2
	FlagN uint16 = 1 << 3
)

// InitialPSW is the priority-7, flags-cleared PSW value loaded on reset
// (spec.md §3 Lifecycle).
const InitialPSW uint16 = 0340

// CPU holds the whole architectural state: registers, PSW and the cycle
// counter used both for pacing and for timestamping bus/device writes.
// It carries no other state, so multiple independent instances can exist
// side by side for tests (spec.md §9, "no global state").
type CPU struct {
	R   [8]uint16
	psw uint16

	pc uint16 // snapshot of R[PC] at the start of the instruction being executed

	bus *bus.Bus
	log *logging.Logger

	cycles int64 // CPU time in machine cycles since reset

	pending []pendingInterrupt

	startVector uint16
	initialSP   uint16

	halted bool
}

// New creates a CPU wired to bus b. log may be nil to use logging.Default().
func New(b *bus.Bus, log *logging.Logger) *CPU {
	if log == nil {
		log = logging.Default()
	}
	c := &CPU{bus: b, log: log}
	b.SetClock(c.Cycles)
	return c
}

// Configure sets the reset-time start vector address and initial stack
// pointer. Both default to zero if never called.
func (c *CPU) Configure(startVector, initialSP uint16) {
	c.startVector = startVector
	c.initialSP = initialSP
}

// Reset restores the CPU to its post-power-up state: PC is loaded from the
// configured start vector, PSW is set to priority 7 with flags cleared,
// and SP is loaded from the configured initial stack (spec.md §3).
func (c *CPU) Reset() {
	c.R = [8]uint16{}
	c.psw = InitialPSW
	c.halted = false
	c.pending = nil
	if r := c.bus.ReadWord(c.startVector); !r.Fault {
		c.R[PC] = r.Value
	}
	c.R[SP] = c.initialSP
}

// Cycles returns the current CPU time in machine cycles since reset. This
// is the "current cpu time" passed to device callbacks.
func (c *CPU) Cycles() int64 { return c.cycles }

// Halted reports whether the CPU has executed a HALT instruction.
func (c *CPU) Halted() bool { return c.halted }

// ReadRegister returns the full 16-bit contents of register reg.
// spec.md §3: reading a register in byte mode still produces a 16-bit
// value, so there is no separate byte-read accessor.
func (c *CPU) ReadRegister(reg uint16) uint16 { return c.R[reg&7] }

// WriteRegister stores a full 16-bit value into register reg.
func (c *CPU) WriteRegister(reg uint16, v uint16) { c.R[reg&7] = v }

// PSW returns the full processor status word.
func (c *CPU) PSW() uint16 { return c.psw }

// SetPSW replaces the whole processor status word.
func (c *CPU) SetPSW(v uint16) { c.psw = v }

func (c *CPU) flagN() bool { return c.psw&FlagN != 0 }
func (c *CPU) flagZ() bool { return c.psw&FlagZ != 0 }
func (c *CPU) flagV() bool { return c.psw&FlagV != 0 }
func (c *CPU) flagC() bool { return c.psw&FlagC != 0 }

// priority returns the CPU's current interrupt priority, PSW bits 5-7.
func (c *CPU) priority() uint16 { return (c.psw >> 5) & 7 }

// fetch16 reads the word at PC and advances PC by two, per the universal
// invariant that every instruction and every immediate/index word
// consumes exactly one fetch.
func (c *CPU) fetch16() (uint16, bool) {
	r := c.bus.ReadWord(c.R[PC])
	if r.Fault {
		return 0, false
	}
	c.R[PC] += 2
	return r.Value, true
}

func (c *CPU) push(v uint16) bool {
	c.R[SP] -= 2
	return c.bus.WriteWord(c.R[SP], v)
}

func (c *CPU) pop() (uint16, bool) {
	r := c.bus.ReadWord(c.R[SP])
	if r.Fault {
		return 0, false
	}
	c.R[SP] += 2
	return r.Value, true
}
