package cpu_test

import (
	"testing"

	"github.com/matryer/is"

	"pdp11emu/internal/bus"
	"pdp11emu/internal/cpu"
)

// newTestMachine builds a bus with RAM at 0 and a ROM region holding prog
// at loadAt, wires a CPU to it and resets with PC starting at loadAt.
func newTestMachine(t *testing.T, loadAt uint16, prog []uint16) (*bus.Bus, *cpu.CPU) {
	t.Helper()
	b := bus.New(nil)
	if err := b.AddRegion(bus.NewRAM(0, 0x4000)); err != nil {
		t.Fatal(err)
	}
	if err := b.AddRegion(bus.NewROM(loadAt, prog)); err != nil {
		t.Fatal(err)
	}
	// The reset vector itself must live in RAM/ROM too; place it at 0 and
	// point it at loadAt.
	b.WriteWord(0, loadAt)
	c := cpu.New(b, nil)
	c.Configure(0, 0)
	c.Reset()
	return b, c
}

func TestSWAB(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0000300}) // SWAB R0
	c.WriteRegister(cpu.R0, 0377)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
	is.Equal(c.ReadRegister(cpu.R0), uint16(0177400))
	is.Equal(c.PSW(), cpu.InitialPSW|cpu.FlagZ)
}

func TestTSTWordZero(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0005700}) // TST R0
	c.WriteRegister(cpu.R0, 0)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
	is.Equal(c.PSW(), cpu.InitialPSW|cpu.FlagZ)
}

func TestTSTByteZero(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0105700}) // TSTB R0
	c.WriteRegister(cpu.R0, 0)

	c.ExecuteSingleInstruction()

	is.Equal(c.PSW(), cpu.InitialPSW|cpu.FlagZ)
}

func TestTSTWordNegative(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0005700}) // TST R0
	c.WriteRegister(cpu.R0, 0100000)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
	is.Equal(c.PSW(), cpu.InitialPSW|cpu.FlagN)
}

func TestTSTByteHighBit(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0105700}) // TSTB R0
	c.WriteRegister(cpu.R0, 0200)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
	is.Equal(c.PSW(), cpu.InitialPSW|cpu.FlagN)
}

func TestBCCTaken(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0103001}) // BCC +1
	c.SetPSW(cpu.InitialPSW &^ cpu.FlagC)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100004))
}

func TestBCCNotTaken(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0103001}) // BCC +1
	c.SetPSW(cpu.InitialPSW | cpu.FlagC)

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
}

func TestIndexModeRead(t *testing.T) {
	is := is.New(t)
	b, c := newTestMachine(t, 0100000, []uint16{
		0016100, // MOV X(R1), R0  (src mode 6 reg 1, dst mode 0 reg 0)
		0000020, // X = 020
	})
	c.WriteRegister(cpu.R1, 01000)
	is.True(b.WriteWord(01020, 012345))

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.R0), uint16(012345))
	is.Equal(c.ReadRegister(cpu.PC), uint16(0100004))
}

func TestAddSetsCarryAndZeroWithoutOverflow(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0060001}) // ADD R0,R1
	c.WriteRegister(cpu.R0, 1)
	c.WriteRegister(cpu.R1, 0177777) // -1

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.R1), uint16(0))
	is.True(c.PSW()&cpu.FlagC != 0)
	is.True(c.PSW()&cpu.FlagZ != 0)
	is.True(c.PSW()&cpu.FlagV == 0)
}

func TestCmpOverflow(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0020001}) // CMP R0,R1
	c.WriteRegister(cpu.R0, 0077777) // +32767
	c.WriteRegister(cpu.R1, 0100001) // -32767

	c.ExecuteSingleInstruction()

	is.True(c.PSW()&cpu.FlagV != 0)
}

func TestMovByteSignExtendsIntoRegister(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0110001}) // MOVB R0,R1
	c.WriteRegister(cpu.R0, 0377) // -1 as a byte

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.R1), uint16(0177777))
}

func TestJsrRts(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{
		0004737, 0100010, // JSR PC,@#0100010
		0000000,
		0000000,
		0000207, // (at 0100010) RTS PC
	})
	c.WriteRegister(cpu.SP, 0002000)

	c.ExecuteSingleInstruction() // JSR
	is.Equal(c.ReadRegister(cpu.PC), uint16(0100010))

	c.ExecuteSingleInstruction() // RTS
	is.Equal(c.ReadRegister(cpu.PC), uint16(0100004))
}

func TestHaltStopsExecution(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0000000}) // HALT

	c.ExecuteSingleInstruction()
	is.True(c.Halted())

	cycles := c.ExecuteSingleInstruction()
	is.Equal(cycles, 0)
	is.Equal(c.ReadRegister(cpu.PC), uint16(0100002))
}

func TestSobLoopsUntilZero(t *testing.T) {
	is := is.New(t)
	_, c := newTestMachine(t, 0100000, []uint16{0077001}) // SOB R0,.  (offset 1 -> back to self)
	c.WriteRegister(cpu.R0, 2)

	c.ExecuteSingleInstruction()
	is.Equal(c.ReadRegister(cpu.R0), uint16(1))
	is.Equal(c.ReadRegister(cpu.PC), uint16(0100000))
}

func TestReservedOpcodeTraps(t *testing.T) {
	is := is.New(t)
	b, c := newTestMachine(t, 0100000, []uint16{0000010}) // reserved
	c.WriteRegister(cpu.SP, 0002000)
	is.True(b.WriteWord(cpu.VectorReserved, 0100100))
	is.True(b.WriteWord(cpu.VectorReserved+2, 0340))

	c.ExecuteSingleInstruction()

	is.Equal(c.ReadRegister(cpu.PC), uint16(0100100))
}
