package cpu

import "fmt"

var regNames = [...]string{"R0", "R1", "R2", "R3", "R4", "R5", "SP", "PC"}

// Disassemble renders the single instruction word at addr as PDP-11
// assembly-like text, reusing opcodeTable so the mnemonic set matches
// ExecuteSingleInstruction exactly. It never faults: an unmapped or odd
// address, or an undecodable word, renders as a placeholder instead of
// erroring, since this is a debugging aid rather than an execution path
// (grounded on davecheney-pdp11/disasm.go's disamtable-driven Disasm).
func (c *CPU) Disassemble(addr uint16) string {
	r := c.bus.ReadWord(addr)
	if r.Fault {
		return fmt.Sprintf("%06o: <fault>", addr)
	}
	instr := r.Value
	e := findOpcode(instr)
	if e == nil {
		return fmt.Sprintf("%06o: %06o (reserved)", addr, instr)
	}
	switch {
	case e.mask == 0170000: // double operand
		return fmt.Sprintf("%06o: %s %s,%s", addr, e.name, operandText(srcField(instr)), operandText(dstField(instr)))
	case e.mask == 0177700 && e.name != "JMP": // single operand
		return fmt.Sprintf("%06o: %s %s", addr, e.name, operandText(dstField(instr)))
	case e.name == "JMP" || e.name == "JSR":
		return fmt.Sprintf("%06o: %s %s", addr, e.name, operandText(dstField(instr)))
	case e.mask == 0177400 && e.name != "EMT" && e.name != "TRAP": // branch
		offset := int32(int8(instr & 0xFF))
		return fmt.Sprintf("%06o: %s %06o", addr, e.name, uint16(int32(addr)+2+offset*2))
	case e.mask == 0177770 && e.name == "RTS":
		return fmt.Sprintf("%06o: RTS %s", addr, regNames[instr&7])
	default:
		return fmt.Sprintf("%06o: %s", addr, e.name)
	}
}

func operandText(field uint16) string {
	mode := (field >> 3) & 7
	reg := regNames[field&7]
	switch mode {
	case 0:
		return reg
	case 1:
		return fmt.Sprintf("(%s)", reg)
	case 2:
		return fmt.Sprintf("(%s)+", reg)
	case 3:
		return fmt.Sprintf("@(%s)+", reg)
	case 4:
		return fmt.Sprintf("-(%s)", reg)
	case 5:
		return fmt.Sprintf("@-(%s)", reg)
	case 6:
		return fmt.Sprintf("X(%s)", reg)
	default:
		return fmt.Sprintf("@X(%s)", reg)
	}
}
