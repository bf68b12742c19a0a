package bus_test

import (
	"testing"

	"github.com/matryer/is"

	"pdp11emu/internal/bus"
)

func TestRAMRoundTrip(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewRAM(0, 0x1000)))

	is.True(b.WriteWord(0100, 0123456))
	r := b.ReadWord(0100)
	is.True(!r.Fault)
	is.Equal(r.Value, uint16(0123456))
}

func TestOddWordReadFaults(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewRAM(0, 0x1000)))
	is.True(b.WriteWord(0100, 1))

	r := b.ReadWord(0101)
	is.True(r.Fault)
}

func TestUnmappedReadFaults(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewRAM(0, 0x1000)))

	r := b.ReadWord(0176000)
	is.True(r.Fault)
}

func TestROMWriteFails(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewROM(0100000, []uint16{0123456})))

	is.True(!b.WriteWord(0100000, 1))
	r := b.ReadWord(0100000)
	is.True(!r.Fault)
	is.Equal(r.Value, uint16(0123456))
}

func TestOverlappingRegionsRejected(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewRAM(0, 0x1000)))

	err := b.AddRegion(bus.NewRAM(0x0800, 0x1000))
	is.True(err != nil)
}

func TestByteAddressingSelectsHalfOfWord(t *testing.T) {
	is := is.New(t)
	b := bus.New(nil)
	is.NoErr(b.AddRegion(bus.NewRAM(0, 0x1000)))

	is.True(b.WriteWord(0100, 0000777)) // low byte 0377, high byte 0001

	lo := b.ReadByte(0100)
	hi := b.ReadByte(0101)
	is.True(!lo.Fault && !hi.Fault)
	is.Equal(lo.Value, uint16(0377))
	is.Equal(hi.Value, uint16(0001))
}
