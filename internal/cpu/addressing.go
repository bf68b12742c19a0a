package cpu

import (
	"pdp11emu/internal/bus"
	"pdp11emu/internal/word"
)

// Operand is the resolved location an addressing mode computed: either a
// register, or a 16-bit effective address. spec.md §3: reading or writing
// a register always moves a full 16-bit value; byte mode only narrows
// memory accesses, and a byte-mode result written into a register is
// sign-extended to fill it (standard PDP-11 register-operand behavior).
type Operand struct {
	isReg bool
	reg   uint16
	addr  uint16
}

// Read loads the operand's value. For a register operand the full 16-bit
// contents are returned regardless of byteMode; callers doing byte-mode
// arithmetic mask the result to its low byte themselves (masking before
// or after an AND/OR/subtract produces the same low byte, so this keeps
// every addressing mode's Read uniform).
func (o Operand) Read(c *CPU, byteMode bool) bus.Result {
	if o.isReg {
		return bus.Ok(c.R[o.reg])
	}
	if byteMode {
		return c.bus.ReadByte(o.addr)
	}
	return c.bus.ReadWord(o.addr)
}

// Write stores value into the operand. A byte-mode write to a register
// sign-extends the byte result to fill all 16 bits; a byte-mode write to
// memory stores only the addressed byte.
func (o Operand) Write(c *CPU, byteMode bool, value uint16) bool {
	if o.isReg {
		if byteMode {
			value = word.SignExtendByte(value)
		}
		c.R[o.reg] = value
		return true
	}
	if byteMode {
		return c.bus.WriteByte(o.addr, value)
	}
	return c.bus.WriteWord(o.addr, value)
}

// IsRegister reports whether the operand names a register directly
// (mode 0), for opcodes like JMP that reject register operands.
func (o Operand) IsRegister() bool { return o.isReg }

// addressingMode implements one of the eight PDP-11 addressing modes as a
// pre-addressing side effect (mode 4/5 pre-decrement), an operand resolver
// and a post-addressing side effect (mode 2/3 post-increment, mode 6/7 PC
// advance) — the same three-phase split as
// su.comp.bk.arch.cpu.addressing.AddressingMode's preAddressingAction /
// readAddressedValue·writeAddressedValue / postAddressingAction, expressed
// as a table of closures rather than eight interface implementations
// (spec.md §9: "a tagged enumeration with a dispatch table, not a class
// hierarchy").
type addressingMode struct {
	pre     func(c *CPU, byteMode bool, reg uint16)
	resolve func(c *CPU, byteMode bool, reg uint16) (Operand, bool)
	post    func(c *CPU, byteMode bool, reg uint16)
}

func noPre(c *CPU, byteMode bool, reg uint16)  {}
func noPost(c *CPU, byteMode bool, reg uint16) {}

// stepSize returns the register auto-increment/decrement step for reg in
// the given byte/word mode. Byte-mode stepping on SP or PC is always 2,
// keeping the stack and instruction stream word-aligned (spec.md §4.2).
func stepSize(byteMode bool, reg uint16) uint16 {
	if !byteMode || reg == SP || reg == PC {
		return 2
	}
	return 1
}

var addressingModes = [8]addressingMode{
	// Mode 0: Register. Operand is the register itself; no memory access.
	0: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			return Operand{isReg: true, reg: reg}, true
		},
		post: noPost,
	},
	// Mode 1: Register deferred. (Rn) is the effective address.
	1: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			return Operand{addr: c.R[reg]}, true
		},
		post: noPost,
	},
	// Mode 2: Autoincrement. (Rn), then Rn += size.
	2: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			return Operand{addr: c.R[reg]}, true
		},
		post: func(c *CPU, byteMode bool, reg uint16) {
			c.R[reg] += stepSize(byteMode, reg)
		},
	},
	// Mode 3: Autoincrement deferred. @(Rn), then Rn += 2.
	3: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			r := c.bus.ReadWord(c.R[reg])
			if r.Fault {
				return Operand{}, false
			}
			return Operand{addr: r.Value}, true
		},
		post: func(c *CPU, byteMode bool, reg uint16) {
			c.R[reg] += 2
		},
	},
	// Mode 4: Autodecrement. Rn -= size, then (Rn).
	4: {
		pre: func(c *CPU, byteMode bool, reg uint16) {
			c.R[reg] -= stepSize(byteMode, reg)
		},
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			return Operand{addr: c.R[reg]}, true
		},
		post: noPost,
	},
	// Mode 5: Autodecrement deferred. Rn -= 2, then @(Rn).
	5: {
		pre: func(c *CPU, byteMode bool, reg uint16) {
			c.R[reg] -= 2
		},
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			r := c.bus.ReadWord(c.R[reg])
			if r.Fault {
				return Operand{}, false
			}
			return Operand{addr: r.Value}, true
		},
		post: noPost,
	},
	// Mode 6: Index. (Rn + X), X is the word at PC; PC += 2 afterwards.
	6: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			x := c.bus.ReadWord(c.R[PC])
			if x.Fault {
				return Operand{}, false
			}
			addr := (c.R[reg] + x.Value) & 0xFFFF
			return Operand{addr: addr}, true
		},
		post: func(c *CPU, byteMode bool, reg uint16) {
			c.R[PC] += 2
		},
	},
	// Mode 7: Index deferred. @(Rn + X); PC += 2 afterwards.
	7: {
		pre: noPre,
		resolve: func(c *CPU, byteMode bool, reg uint16) (Operand, bool) {
			x := c.bus.ReadWord(c.R[PC])
			if x.Fault {
				return Operand{}, false
			}
			ptr := (c.R[reg] + x.Value) & 0xFFFF
			r := c.bus.ReadWord(ptr)
			if r.Fault {
				return Operand{}, false
			}
			return Operand{addr: r.Value}, true
		},
		post: func(c *CPU, byteMode bool, reg uint16) {
			c.R[PC] += 2
		},
	},
}

// decoded is a resolved operand together with enough information to run
// its addressing mode's post-addressing side effect later, after the
// instruction's arithmetic and write-back (spec.md §4.3 step 7).
type decoded struct {
	mode    *addressingMode
	reg     uint16
	operand Operand
}

// decodeOperand resolves a six-bit operand field (mode in bits 3-5,
// register in bits 0-2), running the mode's pre-addressing action first.
// It returns ok=false if any intermediate memory access (modes 3,5,6,7)
// faulted, in which case the caller must abort the instruction with a bus
// error trap.
func (c *CPU) decodeOperand(field uint16, byteMode bool) (decoded, bool) {
	m := &addressingModes[(field>>3)&7]
	reg := field & 7
	m.pre(c, byteMode, reg)
	op, ok := m.resolve(c, byteMode, reg)
	if !ok {
		return decoded{}, false
	}
	return decoded{mode: m, reg: reg, operand: op}, true
}

func (d decoded) postAddress(c *CPU, byteMode bool) {
	d.mode.post(c, byteMode, d.reg)
}
