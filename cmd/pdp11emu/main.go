// pdp11emu is a cycle-aware emulator for the BK-0010/BK-0011-derived
// K1801VM1 CORE: CPU, memory-mapped bus, and one-bit PCM audio.
package main

import (
	"os"

	"github.com/alecthomas/kong"

	"pdp11emu/internal/audio"
	"pdp11emu/internal/bus"
	"pdp11emu/internal/console"
	"pdp11emu/internal/cpu"
	"pdp11emu/internal/devices"
	"pdp11emu/internal/logging"
	"pdp11emu/internal/machine"
)

func main() {
	var cli struct {
		Run runCmd `cmd:"" default:"1" help:"boot a ROM image and run it"`
	}

	ctx := kong.Parse(&cli)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// runCmd generalizes davecheney-pdp11/pdp11.go's runCmd (startaddr, rk0)
// into the CORE's configuration surface, per SPEC_FULL.md §2.2.
type runCmd struct {
	StartAddr uint16 `name:"startaddr" default:"0100000" help:"initial PC, octal or decimal"`
	ROM       string `name:"rom" type:"existingfile" help:"path to a raw 16-bit-word ROM image"`
	RAMBytes  uint16 `name:"rambytes" default:"0100000" help:"size of RAM in bytes, mapped at address 0"`
	ROMBase   uint16 `name:"rombase" default:"0100000" help:"bus address the ROM image is mapped at"`

	ClockHz float64 `name:"clock-hz" default:"3000000" help:"CPU clock frequency in Hz"`

	Audio      bool `name:"audio" help:"enable the one-bit PCM audio output"`
	AudioRate  int  `name:"audio-rate" default:"22050" help:"audio output sample rate in Hz"`
	AudioBurst int  `name:"audio-buffer" default:"512" help:"samples rendered per audio buffer"`

	Interactive bool  `name:"interactive" help:"feed host stdin into the keyboard register"`
	Nanos       int64 `name:"nanos" help:"run for this many nanoseconds of CPU time, then stop (0 = until halted)"`
	Trace       bool  `name:"trace" help:"log a disassembly line before each instruction"`
}

func (r *runCmd) Run(kctx *kong.Context) error {
	log := logging.Default()
	if r.Trace {
		log = logging.New(os.Stderr, logging.LevelDebug)
	}

	opts := []machine.Option{
		machine.WithLogger(log),
		machine.WithClockFrequency(r.ClockHz),
		machine.WithStartVector(0, 0), // reset vector unused; PC is set explicitly below
	}

	var sink audio.Sink
	if r.Audio {
		otoSink, err := audio.NewOtoSink(r.AudioRate)
		if err != nil {
			return err
		}
		sink = otoSink
		opts = append(opts, machine.WithAudio(r.AudioRate, r.AudioBurst, sink))
	}

	m, err := machine.New(opts...)
	if err != nil {
		return err
	}

	if err := m.AddMemory(bus.NewRAM(0, r.RAMBytes)); err != nil {
		return err
	}

	if r.ROM != "" {
		image, err := loadROM(r.ROM)
		if err != nil {
			return err
		}
		if err := m.AddMemory(bus.NewROM(r.ROMBase, image)); err != nil {
			return err
		}
	}

	keyboard := devices.NewKeyboard()
	if err := m.AddDevice(keyboard); err != nil {
		return err
	}
	if err := m.AddDevice(devices.NewVideoSync()); err != nil {
		return err
	}
	if err := m.AddDevice(devices.NewTimer(int64(r.ClockHz)/50, m.RaiseInterrupt)); err != nil {
		return err
	}
	if err := m.AddDevice(devices.NewSel1(m.AudioRing())); err != nil {
		return err
	}

	m.Reset()
	m.CPU().WriteRegister(cpu.PC, r.StartAddr)

	var term *console.Console
	if r.Interactive {
		term, err = console.Open(keyboard, log)
		if err != nil {
			return err
		}
		defer term.Close()
	}

	defer m.Shutdown()

	if r.Nanos > 0 {
		if r.Trace {
			deadline := m.CPU().Cycles() + int64(float64(r.Nanos)/1e9*r.ClockHz)
			for m.CPU().Cycles() < deadline && !m.CPU().Halted() {
				log.Debugf("%s", m.CPU().Disassemble(m.CPU().ReadRegister(cpu.PC)))
				m.ExecuteSingleInstruction()
			}
			return nil
		}
		m.ExecuteFor(r.Nanos)
		return nil
	}
	for !m.CPU().Halted() {
		if r.Trace {
			log.Debugf("%s", m.CPU().Disassemble(m.CPU().ReadRegister(cpu.PC)))
		}
		m.ExecuteSingleInstruction()
	}
	return nil
}

// loadROM reads a raw little-endian 16-bit-word memory image, the format
// davecheney-pdp11's rk11.go uses for disk images and this CORE reuses for
// ROM images since neither needs a container format.
func loadROM(path string) ([]uint16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	words := make([]uint16, (len(raw)+1)/2)
	for i := range words {
		lo := uint16(raw[i*2])
		var hi uint16
		if i*2+1 < len(raw) {
			hi = uint16(raw[i*2+1])
		}
		words[i] = lo | hi<<8
	}
	return words, nil
}
