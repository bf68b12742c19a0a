package cpu

import "pdp11emu/internal/word"

// ExecuteSingleInstruction fetches, decodes and executes exactly one
// instruction, returning the number of machine cycles it took. Faults
// raised anywhere during decode or execution unwind via panic/recover to
// this single point, exactly as JiYou-pdp11's cpu.Step and
// davecheney-pdp11's trap type both convert a mid-instruction panic into a
// PSW/PC vector transfer — the difference is that here the recovery site is
// one instruction, not a whole Run loop, so callers can single-step
// (spec.md §7).
func (c *CPU) ExecuteSingleInstruction() (cycles int) {
	if c.halted {
		return 0
	}
	start := c.cycles
	defer func() {
		if r := recover(); r != nil {
			ts, ok := r.(trapSignal)
			if !ok {
				panic(r)
			}
			c.trapAt(ts.vector)
		}
		cycles = int(c.cycles - start)
	}()

	if c.checkInterrupts() {
		return
	}

	c.pc = c.R[PC]
	instr, ok := c.fetch16()
	if !ok {
		panic(trapSignal{VectorBus})
	}
	entry := findOpcode(instr)
	if entry == nil {
		panic(trapSignal{VectorReserved})
	}
	c.cycles += int64(entry.base)
	if !entry.exec(c, instr) {
		panic(trapSignal{VectorBus})
	}
	return
}

func findOpcode(instr uint16) *opcodeEntry {
	for i := range opcodeTable {
		e := &opcodeTable[i]
		if instr&e.mask == e.value {
			return e
		}
	}
	return nil
}

// srcField and dstField pull the 6-bit operand fields out of a
// double-operand instruction: bits 6-11 for the source, bits 0-5 for the
// destination.
func srcField(instr uint16) uint16 { return (instr >> 6) & 077 }
func dstField(instr uint16) uint16 { return instr & 077 }

func (c *CPU) requireOperand(field uint16, byteMode bool) (decoded, bool) {
	d, ok := c.decodeOperand(field, byteMode)
	if !ok {
		panic(trapSignal{VectorBus})
	}
	return d, true
}

// --- Double-operand instructions -----------------------------------------

func execMOV(c *CPU, instr uint16) bool {
	byteMode := isByteMode(instr)
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	val := sv.Value
	if byteMode && !dst.operand.IsRegister() {
		val = word.LowByte(val)
	}
	if !dst.operand.Write(c, byteMode, val) {
		return false
	}
	dst.postAddress(c, byteMode)
	c.setNZClearVPreserveC(byteMode, val)
	return true
}

func execCMP(c *CPU, instr uint16) bool {
	byteMode := isByteMode(instr)
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	dst.postAddress(c, byteMode)
	s, d := maskTo(byteMode, sv.Value), maskTo(byteMode, dv.Value)
	result := maskTo(byteMode, s-d)
	c.subFlags(byteMode, s, d, result)
	return true
}

func execBIT(c *CPU, instr uint16) bool {
	byteMode := isByteMode(instr)
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	dst.postAddress(c, byteMode)
	result := maskTo(byteMode, sv.Value&dv.Value)
	c.setNZClearVPreserveC(byteMode, result)
	return true
}

func execBIC(c *CPU, instr uint16) bool {
	return dualRW(c, instr, func(s, d uint16) uint16 { return d &^ s })
}

func execBIS(c *CPU, instr uint16) bool {
	return dualRW(c, instr, func(s, d uint16) uint16 { return d | s })
}

func execXOR(c *CPU, instr uint16) bool {
	// XOR Rn,dst: source is always a register (bits 6-8), never a general
	// operand — the EIS encoding, per spec.md's supplemented-features note.
	byteMode := false
	reg := (instr >> 6) & 7
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	result := c.R[reg] ^ dv.Value
	if !dst.operand.Write(c, byteMode, result) {
		return false
	}
	dst.postAddress(c, byteMode)
	c.setNZClearVPreserveC(byteMode, result)
	return true
}

// dualRW implements the common read-src, read-dst, combine, write-dst shape
// shared by BIC/BIS (and, with a masked subtraction, could serve ADD/SUB —
// those keep their own bodies below since they also need the full
// two-operand values for addFlags/subFlags, not just the masked result).
func dualRW(c *CPU, instr uint16, combine func(s, d uint16) uint16) bool {
	byteMode := isByteMode(instr)
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	result := maskTo(byteMode, combine(sv.Value, dv.Value))
	if !dst.operand.Write(c, byteMode, result) {
		return false
	}
	dst.postAddress(c, byteMode)
	c.setNZClearVPreserveC(byteMode, result)
	return true
}

func execADD(c *CPU, instr uint16) bool {
	const byteMode = false
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	result := dv.Value + sv.Value
	if !dst.operand.Write(c, byteMode, result) {
		return false
	}
	dst.postAddress(c, byteMode)
	c.addFlags(byteMode, sv.Value, dv.Value, result)
	return true
}

func execSUB(c *CPU, instr uint16) bool {
	const byteMode = false
	src, _ := c.requireOperand(srcField(instr), byteMode)
	sv := src.operand.Read(c, byteMode)
	if sv.Fault {
		return false
	}
	src.postAddress(c, byteMode)
	dst, _ := c.requireOperand(dstField(instr), byteMode)
	dv := dst.operand.Read(c, byteMode)
	if dv.Fault {
		return false
	}
	result := dv.Value - sv.Value
	if !dst.operand.Write(c, byteMode, result) {
		return false
	}
	dst.postAddress(c, byteMode)
	// minuend is the destination's original value, subtrahend the source.
	c.subFlags(byteMode, dv.Value, sv.Value, result)
	return true
}

// --- Single-operand instructions ------------------------------------------

func singleOperand(c *CPU, instr uint16, f func(c *CPU, byteMode bool, v uint16) uint16) bool {
	byteMode := isByteMode(instr)
	d, _ := c.requireOperand(dstField(instr), byteMode)
	v := d.operand.Read(c, byteMode)
	if v.Fault {
		return false
	}
	result := f(c, byteMode, v.Value)
	if !d.operand.Write(c, byteMode, result) {
		return false
	}
	d.postAddress(c, byteMode)
	return true
}

func execCLR(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		c.setNZVClearC(byteMode, 0)
		return 0
	})
}

func execCOM(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, _ := widths(byteMode)
		result := (^v) & max
		c.setNZVSetC(byteMode, result)
		return result
	})
}

func execINC(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		result := (v + 1) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagV, v&max == msb-1) // overflow when v was the largest positive value
		return result
	})
}

func execDEC(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		_, msb := widths(byteMode)
		max, _ := widths(byteMode)
		result := (v - 1) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagV, v&max == msb)
		return result
	})
}

func execNEG(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		v = v & max
		result := (-v) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagV, v == msb)
		c.setFlag(FlagC, result != 0)
		return result
	})
}

func execADC(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		var carry uint16
		if c.flagC() {
			carry = 1
		}
		result := (v + carry) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagV, v&max == msb-1 && carry == 1)
		c.setFlag(FlagC, v&max == max && carry == 1)
		return result
	})
}

func execSBC(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		var borrow uint16
		if c.flagC() {
			borrow = 1
		}
		result := (v - borrow) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagV, v&max == msb)
		c.setFlag(FlagC, v&max == 0 && borrow == 1)
		return result
	})
}

func execTST(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		c.setNZClearVPreserveC(byteMode, v)
		return v
	})
}

func execROR(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		v &= max
		var carryIn uint16
		if c.flagC() {
			carryIn = msb
		}
		newC := v&1 != 0
		result := (v >> 1) | carryIn
		c.setNZ(byteMode, result)
		c.setFlag(FlagC, newC)
		c.setFlag(FlagV, newC != (result&msb != 0))
		return result
	})
}

func execROL(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		v &= max
		var carryIn uint16
		if c.flagC() {
			carryIn = 1
		}
		newC := v&msb != 0
		result := ((v << 1) | carryIn) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagC, newC)
		c.setFlag(FlagV, newC != (result&msb != 0))
		return result
	})
}

func execASR(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		v &= max
		newC := v&1 != 0
		result := (v >> 1) | (v & msb)
		c.setNZ(byteMode, result)
		c.setFlag(FlagC, newC)
		c.setFlag(FlagV, newC != (result&msb != 0))
		return result
	})
}

func execASL(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		max, msb := widths(byteMode)
		v &= max
		newC := v&msb != 0
		result := (v << 1) & max
		c.setNZ(byteMode, result)
		c.setFlag(FlagC, newC)
		c.setFlag(FlagV, newC != (result&msb != 0))
		return result
	})
}

func execSXT(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		if c.flagN() {
			c.setFlag(FlagZ, false)
			return 0xFFFF
		}
		c.setFlag(FlagZ, true)
		return 0
	})
}

func execMFPS(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		result := word.SignExtendByte(c.psw & 0xFF)
		c.setNZClearVPreserveC(true, result)
		return result
	})
}

func execMTPS(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		c.psw = (c.psw & 0xFF00) | (v & 0xEF)
		return v
	})
}

func execSWAB(c *CPU, instr uint16) bool {
	return singleOperand(c, instr, func(c *CPU, byteMode bool, v uint16) uint16 {
		result := (v << 8) | (v >> 8)
		c.setNZ(true, word.LowByte(result))
		c.setFlag(FlagV, false)
		c.setFlag(FlagC, false)
		return result
	})
}

func execJMP(c *CPU, instr uint16) bool {
	d, _ := c.requireOperand(dstField(instr), false)
	if d.operand.IsRegister() {
		panic(trapSignal{VectorReserved})
	}
	d.postAddress(c, false)
	c.R[PC] = d.operand.addr
	return true
}

func execMARK(c *CPU, instr uint16) bool {
	n := instr & 077
	c.R[SP] = c.R[PC] + 2*n
	pc, ok := c.pop()
	if !ok {
		return false
	}
	c.R[PC] = pc
	c.R[R5], _ = c.pop()
	return true
}

// --- Register/subroutine/EIS instructions ---------------------------------

func execRTS(c *CPU, instr uint16) bool {
	reg := instr & 7
	v, ok := c.pop()
	if !ok {
		return false
	}
	c.R[PC] = c.R[reg]
	c.R[reg] = v
	return true
}

func execJSR(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	d, _ := c.requireOperand(dstField(instr), false)
	if d.operand.IsRegister() {
		panic(trapSignal{VectorReserved})
	}
	d.postAddress(c, false)
	if !c.push(c.R[reg]) {
		return false
	}
	c.R[reg] = c.R[PC]
	c.R[PC] = d.operand.addr
	return true
}

func execMUL(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	d, _ := c.requireOperand(dstField(instr), false)
	v := d.operand.Read(c, false)
	if v.Fault {
		return false
	}
	d.postAddress(c, false)
	a := int32(int16(c.R[reg]))
	b := int32(int16(v.Value))
	result := a * b
	c.R[reg] = uint16(result >> 16)
	c.R[reg|1] = uint16(result)
	c.setFlag(FlagN, result < 0)
	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagV, false)
	c.setFlag(FlagC, result < -32768 || result > 32767)
	return true
}

func execDIV(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	d, _ := c.requireOperand(dstField(instr), false)
	v := d.operand.Read(c, false)
	if v.Fault {
		return false
	}
	d.postAddress(c, false)
	dividend := int32(c.R[reg])<<16 | int32(c.R[reg|1])
	divisor := int32(int16(v.Value))
	if divisor == 0 {
		c.setFlag(FlagV, true)
		c.setFlag(FlagC, true)
		return true
	}
	quot := dividend / divisor
	rem := dividend % divisor
	if quot > 32767 || quot < -32768 {
		c.setFlag(FlagV, true)
		return true
	}
	c.R[reg] = uint16(quot)
	c.R[reg|1] = uint16(rem)
	c.setFlag(FlagN, quot < 0)
	c.setFlag(FlagZ, quot == 0)
	c.setFlag(FlagV, false)
	c.setFlag(FlagC, false)
	return true
}

func execASH(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	d, _ := c.requireOperand(dstField(instr), false)
	v := d.operand.Read(c, false)
	if v.Fault {
		return false
	}
	d.postAddress(c, false)
	shift := int16(v.Value<<10) >> 10 // sign-extend low 6 bits
	src := int16(c.R[reg])
	var result int16
	var carry bool
	switch {
	case shift == 0:
		result = src
	case shift > 0:
		result = src << uint(shift)
		carry = shift <= 16 && (src<<uint(shift-1))&int16(-32768) != 0
	default:
		n := uint(-shift)
		if n > 16 {
			n = 16
		}
		result = src >> n
		carry = n > 0 && (src>>(n-1))&1 != 0
	}
	c.R[reg] = uint16(result)
	c.setFlag(FlagN, result < 0)
	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagC, carry)
	c.setFlag(FlagV, (result < 0) != (src < 0))
	return true
}

func execASHC(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	d, _ := c.requireOperand(dstField(instr), false)
	v := d.operand.Read(c, false)
	if v.Fault {
		return false
	}
	d.postAddress(c, false)
	shift := int16(v.Value<<10) >> 10
	pair := int32(c.R[reg])<<16 | int32(c.R[reg|1])
	var result int32
	var carry bool
	switch {
	case shift == 0:
		result = pair
	case shift > 0:
		n := uint(shift)
		if n > 32 {
			n = 32
		}
		result = pair << n
		carry = n > 0 && n <= 32 && (pair<<(n-1))&(-2147483648) != 0
	default:
		n := uint(-shift)
		if n > 32 {
			n = 32
		}
		result = pair >> n
		carry = n > 0 && (pair>>(n-1))&1 != 0
	}
	c.R[reg] = uint16(result >> 16)
	c.R[reg|1] = uint16(result)
	c.setFlag(FlagN, result < 0)
	c.setFlag(FlagZ, result == 0)
	c.setFlag(FlagC, carry)
	c.setFlag(FlagV, (result < 0) != (pair < 0))
	return true
}

func execSOB(c *CPU, instr uint16) bool {
	reg := (instr >> 6) & 7
	offset := instr & 077
	c.R[reg]--
	if c.R[reg] != 0 {
		c.R[PC] -= 2 * offset
	}
	return true
}

// --- Branches --------------------------------------------------------------

func execBranch(cond func(c *CPU) bool) func(c *CPU, instr uint16) bool {
	return func(c *CPU, instr uint16) bool {
		if cond(c) {
			offset := int32(int8(instr & 0xFF))
			c.R[PC] = uint16(int32(c.R[PC]) + offset*2)
		}
		return true
	}
}

// --- Condition-code operators ------------------------------------------

func execClearCC(c *CPU, instr uint16) bool {
	c.psw &^= instr & 0xF
	return true
}

func execSetCC(c *CPU, instr uint16) bool {
	c.psw |= instr & 0xF
	return true
}

// --- Traps and machine control -------------------------------------------

func execHALT(c *CPU, instr uint16) bool {
	c.halted = true
	return true
}

func execWAIT(c *CPU, instr uint16) bool {
	return true
}

func execRTI(c *CPU, instr uint16) bool {
	return returnFromTrap(c)
}

func execRTT(c *CPU, instr uint16) bool {
	return returnFromTrap(c)
}

func returnFromTrap(c *CPU) bool {
	pc, ok := c.pop()
	if !ok {
		return false
	}
	psw, ok := c.pop()
	if !ok {
		return false
	}
	c.R[PC] = pc
	c.psw = psw
	return true
}

func execBPT(c *CPU, instr uint16) bool {
	c.trapAt(VectorBPT)
	return true
}

func execIOT(c *CPU, instr uint16) bool {
	c.trapAt(VectorIOT)
	return true
}

func execEMT(c *CPU, instr uint16) bool {
	c.trapAt(VectorEMT)
	return true
}

func execTRAP(c *CPU, instr uint16) bool {
	c.trapAt(VectorTrap)
	return true
}

func execRESET(c *CPU, instr uint16) bool {
	// RESET only pulses the peripheral reset line; it does not restart the
	// CPU itself. Devices are reset via Computer.Reset, not from here.
	return true
}

func execMFPT(c *CPU, instr uint16) bool {
	c.R[R0] = 1
	return true
}
