package cpu

import "math/bits"

// opcodeEntry is one row of the instruction table: a mask/value pair that
// identifies the opcode class, plus the function that executes it. This
// replaces davecheney-pdp11's nested `switch instr>>12 { case n: switch
// instr>>6 {...} }` with a single flat, data-driven table, per spec.md §9's
// "tagged enumeration with a dispatch table, not a class hierarchy" note —
// the same shape used for addressing modes in addressing.go.
type opcodeEntry struct {
	mask  uint16
	value uint16
	name  string
	base  int
	exec  func(c *CPU, instr uint16) bool
}

// opcodeTable lists every instruction the CORE decodes. Entries are matched
// in order of decreasing mask specificity (more fixed bits first) so that
// a word matching both a fully-fixed encoding and a wider group mask
// always decodes as the more specific entry.
var opcodeTable = buildOpcodeTable()

func buildOpcodeTable() []opcodeEntry {
	t := []opcodeEntry{
		// Zero-operand traps and machine control (fully fixed encodings).
		{0177777, 0000000, "HALT", 6, execHALT},
		{0177777, 0000001, "WAIT", 6, execWAIT},
		{0177777, 0000002, "RTI", 6, execRTI},
		{0177777, 0000003, "BPT", 6, execBPT},
		{0177777, 0000004, "IOT", 6, execIOT},
		{0177777, 0000005, "RESET", 6, execRESET},
		{0177777, 0000006, "RTT", 6, execRTT},
		{0177777, 0000007, "MFPT", 6, execMFPT},

		// Condition-code operators: bit4 selects clear (0) vs set (1); the
		// low four bits are exactly FlagC/FlagV/FlagZ/FlagN.
		{0177760, 0000240, "CL*", 3, execClearCC},
		{0177760, 0000260, "SE*", 3, execSetCC},

		// Single-register instructions.
		{0177770, 0000200, "RTS", 6, execRTS},

		// Single-operand group (word), mask leaves the 6-bit dest free.
		{0177700, 0000300, "SWAB", 6, execSWAB},
		{0177700, 0000100, "JMP", 6, execJMP},
		{0177700, 0005000, "CLR", 6, execCLR},
		{0177700, 0005100, "COM", 6, execCOM},
		{0177700, 0005200, "INC", 6, execINC},
		{0177700, 0005300, "DEC", 6, execDEC},
		{0177700, 0005400, "NEG", 6, execNEG},
		{0177700, 0005500, "ADC", 6, execADC},
		{0177700, 0005600, "SBC", 6, execSBC},
		{0177700, 0005700, "TST", 6, execTST},
		{0177700, 0006000, "ROR", 6, execROR},
		{0177700, 0006100, "ROL", 6, execROL},
		{0177700, 0006200, "ASR", 6, execASR},
		{0177700, 0006300, "ASL", 6, execASL},
		{0177700, 0006700, "SXT", 6, execSXT},
		{0177700, 0006400, "MARK", 6, execMARK},

		// Single-operand group (byte).
		{0177700, 0105000, "CLRB", 6, execCLR},
		{0177700, 0105100, "COMB", 6, execCOM},
		{0177700, 0105200, "INCB", 6, execINC},
		{0177700, 0105300, "DECB", 6, execDEC},
		{0177700, 0105400, "NEGB", 6, execNEG},
		{0177700, 0105500, "ADCB", 6, execADC},
		{0177700, 0105600, "SBCB", 6, execSBC},
		{0177700, 0105700, "TSTB", 6, execTST},
		{0177700, 0106000, "RORB", 6, execROR},
		{0177700, 0106100, "ROLB", 6, execROL},
		{0177700, 0106200, "ASRB", 6, execASR},
		{0177700, 0106300, "ASLB", 6, execASL},
		{0177700, 0106700, "MFPS", 6, execMFPS},
		{0177700, 0106400, "MTPS", 6, execMTPS},

		// JSR and the EIS/SOB group: mask leaves a 3-bit register plus a
		// 6-bit operand or a 6-bit signed offset free.
		{0177000, 0004000, "JSR", 8, execJSR},
		{0177000, 0070000, "MUL", 35, execMUL},
		{0177000, 0071000, "DIV", 60, execDIV},
		{0177000, 0072000, "ASH", 15, execASH},
		{0177000, 0073000, "ASHC", 15, execASHC},
		{0177000, 0074000, "XOR", 6, execXOR},
		{0177000, 0077000, "SOB", 6, execSOB},

		// EMT/TRAP: low byte carries the trap operand.
		{0177400, 0104000, "EMT", 6, execEMT},
		{0177400, 0104400, "TRAP", 6, execTRAP},

		// Branches: low byte is a signed word-pair displacement.
		{0177400, 0000400, "BR", 3, execBranch(always)},
		{0177400, 0001000, "BNE", 3, execBranch(func(c *CPU) bool { return !c.flagZ() })},
		{0177400, 0001400, "BEQ", 3, execBranch((*CPU).flagZ)},
		{0177400, 0002000, "BGE", 3, execBranch(func(c *CPU) bool { return c.flagN() == c.flagV() })},
		{0177400, 0002400, "BLT", 3, execBranch(func(c *CPU) bool { return c.flagN() != c.flagV() })},
		{0177400, 0003000, "BGT", 3, execBranch(func(c *CPU) bool { return !c.flagZ() && c.flagN() == c.flagV() })},
		{0177400, 0003400, "BLE", 3, execBranch(func(c *CPU) bool { return c.flagZ() || c.flagN() != c.flagV() })},
		{0177400, 0100000, "BPL", 3, execBranch(func(c *CPU) bool { return !c.flagN() })},
		{0177400, 0100400, "BMI", 3, execBranch((*CPU).flagN)},
		{0177400, 0101000, "BHI", 3, execBranch(func(c *CPU) bool { return !c.flagC() && !c.flagZ() })},
		{0177400, 0101400, "BLOS", 3, execBranch(func(c *CPU) bool { return c.flagC() || c.flagZ() })},
		{0177400, 0102000, "BVC", 3, execBranch(func(c *CPU) bool { return !c.flagV() })},
		{0177400, 0102400, "BVS", 3, execBranch((*CPU).flagV)},
		{0177400, 0103000, "BCC", 3, execBranch(func(c *CPU) bool { return !c.flagC() })},
		{0177400, 0103400, "BCS", 3, execBranch((*CPU).flagC)},

		// Double-operand group: mask leaves 6-bit src and 6-bit dst free.
		{0170000, 0010000, "MOV", 6, execMOV},
		{0170000, 0020000, "CMP", 6, execCMP},
		{0170000, 0030000, "BIT", 6, execBIT},
		{0170000, 0040000, "BIC", 6, execBIC},
		{0170000, 0050000, "BIS", 6, execBIS},
		{0170000, 0060000, "ADD", 6, execADD},
		{0170000, 0110000, "MOVB", 6, execMOV},
		{0170000, 0120000, "CMPB", 6, execCMP},
		{0170000, 0130000, "BITB", 6, execBIT},
		{0170000, 0140000, "BICB", 6, execBIC},
		{0170000, 0150000, "BISB", 6, execBIS},
		{0170000, 0160000, "SUB", 6, execSUB},
	}
	// Sort most-specific mask first, stable so ties keep table order.
	for i := 1; i < len(t); i++ {
		for j := i; j > 0 && bits.OnesCount16(t[j].mask) > bits.OnesCount16(t[j-1].mask); j-- {
			t[j], t[j-1] = t[j-1], t[j]
		}
	}
	return t
}

func always(c *CPU) bool { return true }

// isByteMode reports whether instr's byte-form bit (bit 15) is set, for the
// opcode groups where that bit selects the byte variant of an instruction.
func isByteMode(instr uint16) bool { return instr&0100000 != 0 }
