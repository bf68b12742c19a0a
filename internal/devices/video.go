package devices

import "pdp11emu/internal/bus"

// VideoSyncAddress is the BK-0010's video-sync/scroll register: bit 0-7
// select the visible frame's start scanline for smooth-scroll effects, bit
// 15 pulses with vertical retrace. The CORE only needs to store and report
// this value; actual pixel rendering is the host's job (spec.md §1's
// Non-goals list "video peripherals" as external collaborators).
const VideoSyncAddress uint16 = 0177664

// VideoSync is the memory-mapped scroll/retrace register. SetRetrace lets
// the host toggle the vertical-sync bit each frame; nothing in this module
// calls it.
type VideoSync struct {
	reg uint16
}

func NewVideoSync() *VideoSync { return &VideoSync{} }

func (v *VideoSync) Addresses() []uint16 { return []uint16{VideoSyncAddress} }

func (v *VideoSync) Init(cpuTime int64) { v.reg = 0 }

func (v *VideoSync) Read(cpuTime int64, address uint16) uint16 { return v.reg }

func (v *VideoSync) Write(cpuTime int64, byteMode bool, address uint16, value uint16) {
	if byteMode {
		value &= 0xFF
	}
	v.reg = (v.reg & 0xFF00) | (value & 0x00FF)
}

// SetRetrace sets or clears the vertical-retrace bit for the host's frame
// pump to poll.
func (v *VideoSync) SetRetrace(on bool) {
	if on {
		v.reg |= 1 << 15
	} else {
		v.reg &^= 1 << 15
	}
}

func (v *VideoSync) SaveState(bag bus.StateBag) {
	bag["reg"] = []byte{byte(v.reg), byte(v.reg >> 8)}
}

func (v *VideoSync) RestoreState(bag bus.StateBag) {
	if b, ok := bag["reg"]; ok && len(b) >= 2 {
		v.reg = uint16(b[0]) | uint16(b[1])<<8
	}
}
