package machine_test

import (
	"testing"

	"github.com/matryer/is"

	"pdp11emu/internal/bus"
	"pdp11emu/internal/cpu"
	"pdp11emu/internal/devices"
	"pdp11emu/internal/machine"
)

func TestComputerSwabSeedScenario(t *testing.T) {
	is := is.New(t)
	c, err := machine.New(machine.WithStartVector(0, 0))
	is.NoErr(err)
	is.NoErr(c.AddMemory(bus.NewRAM(0, 0x4000)))
	is.NoErr(c.AddMemory(bus.NewROM(0100000, []uint16{0000300}))) // SWAB R0
	is.NoErr(c.AddDevice(devices.NewSel1(nil)))

	c.Reset()
	c.CPU().WriteRegister(cpu.PC, 0100000)
	c.CPU().WriteRegister(cpu.R0, 0377)

	c.ExecuteSingleInstruction()

	is.Equal(c.CPU().ReadRegister(cpu.PC), uint16(0100002))
	is.Equal(c.CPU().ReadRegister(cpu.R0), uint16(0177400))
	is.Equal(c.CPU().PSW(), cpu.InitialPSW|cpu.FlagZ)

	c.Shutdown()
}

func TestComputerTimerRaisesInterrupt(t *testing.T) {
	is := is.New(t)
	c, err := machine.New(machine.WithStartVector(0, 0002000))
	is.NoErr(err)
	is.NoErr(c.AddMemory(bus.NewRAM(0, 0x4000)))
	is.NoErr(c.AddMemory(bus.NewROM(0100000, []uint16{
		0000240, // NOP (CLR CC, no bits) — a harmless three-cycle filler
	})))

	timer := devices.NewTimer(1, c.RaiseInterrupt)
	is.NoErr(c.AddDevice(timer))

	c.Reset()
	is.True(c.Bus().WriteWord(devices.TimerVector, 0100100))
	is.True(c.Bus().WriteWord(devices.TimerVector+2, 0340))
	c.CPU().WriteRegister(cpu.PC, 0100000)
	c.CPU().WriteRegister(cpu.SP, 0002000)
	c.CPU().SetPSW(0) // priority 0: let the timer's priority-6 request through

	c.ExecuteSingleInstruction() // NOP; timer.Advance fires and queues the interrupt
	c.ExecuteSingleInstruction() // next boundary check dispatches it

	is.Equal(c.CPU().ReadRegister(cpu.PC), uint16(0100100))
}
