package cpu

// widths returns the mask and sign bit for the given byte/word mode, used
// throughout the opcode implementations to compute condition codes at the
// right bit width (spec.md §4.4).
func widths(byteMode bool) (max, msb uint16) {
	if byteMode {
		return 0xFF, 0x80
	}
	return 0xFFFF, 0x8000
}

func maskTo(byteMode bool, v uint16) uint16 {
	max, _ := widths(byteMode)
	return v & max
}

// setNZ sets N and Z from result and leaves V and C untouched.
func (c *CPU) setNZ(byteMode bool, result uint16) {
	_, msb := widths(byteMode)
	c.psw &^= FlagN | FlagZ
	if result&msb != 0 {
		c.psw |= FlagN
	}
	if maskTo(byteMode, result) == 0 {
		c.psw |= FlagZ
	}
}

// setNZVClearC sets N, Z, clears V and C — used by CLR/CLRB.
func (c *CPU) setNZVClearC(byteMode bool, result uint16) {
	c.setNZ(byteMode, result)
	c.psw &^= FlagV | FlagC
}

// setNZVSetC sets N, Z, clears V, sets C — used by COM/COMB.
func (c *CPU) setNZVSetC(byteMode bool, result uint16) {
	c.setNZ(byteMode, result)
	c.psw &^= FlagV
	c.psw |= FlagC
}

// setNZClearVPreserveC sets N, Z, clears V, preserves C — used by
// MOV, BIT, TST and MFPS, which do not affect carry.
func (c *CPU) setNZClearVPreserveC(byteMode bool, result uint16) {
	c.setNZ(byteMode, result)
	c.psw &^= FlagV
}

func (c *CPU) setFlag(flag uint16, on bool) {
	if on {
		c.psw |= flag
	} else {
		c.psw &^= flag
	}
}

// addFlags computes N,Z,V,C for val1+val2=result at the given width, per
// spec.md §4.4's ADD definition, and the standard PDP-11 EIS/DP add
// formula (overflow when operands share a sign that differs from the
// result's sign).
func (c *CPU) addFlags(byteMode bool, val1, val2, result uint16) {
	max, msb := widths(byteMode)
	result &= max
	c.psw &^= FlagN | FlagZ | FlagV | FlagC
	if result&msb != 0 {
		c.psw |= FlagN
	}
	if result == 0 {
		c.psw |= FlagZ
	}
	if (val1^val2)&msb == 0 && (val2^result)&msb != 0 {
		c.psw |= FlagV
	}
	if uint32(val1)+uint32(val2) > uint32(max) {
		c.psw |= FlagC
	}
}

// subFlags computes N,Z,V,C for val1-val2=result (SUB, CMP share the same
// formula per spec.md §4.4, differing only in whether the result is
// stored).
func (c *CPU) subFlags(byteMode bool, val1, val2, result uint16) {
	max, msb := widths(byteMode)
	result &= max
	c.psw &^= FlagN | FlagZ | FlagV | FlagC
	if result&msb != 0 {
		c.psw |= FlagN
	}
	if result == 0 {
		c.psw |= FlagZ
	}
	if (val1^val2)&msb != 0 && (val2^result)&msb == 0 {
		c.psw |= FlagV
	}
	if val1 < val2 {
		c.psw |= FlagC
	}
}
