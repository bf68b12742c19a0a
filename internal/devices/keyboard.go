package devices

import "pdp11emu/internal/bus"

// Keyboard state/data register addresses on the BK-0010.
const (
	KeyboardStateAddress uint16 = 0177660
	KeyboardDataAddress  uint16 = 0177662
)

// keyboardReady marks bit 7 of the state register: a scancode is waiting.
const keyboardReady uint16 = 1 << 7

// Keyboard is a minimal memory-mapped register pair standing in for the
// host keyboard, which is deliberately out of the CORE's scope (spec.md
// §1's Non-goals list "the host GUI and keyboard/video peripherals" as
// external collaborators). PushKey is the host's only way in; inside this
// module only internal/console calls it.
type Keyboard struct {
	state uint16
	data  uint16
}

func NewKeyboard() *Keyboard { return &Keyboard{} }

func (k *Keyboard) Addresses() []uint16 {
	return []uint16{KeyboardStateAddress, KeyboardDataAddress}
}

func (k *Keyboard) Init(cpuTime int64) { k.state, k.data = 0, 0 }

func (k *Keyboard) Read(cpuTime int64, address uint16) uint16 {
	if address == KeyboardStateAddress {
		return k.state
	}
	k.state &^= keyboardReady
	return k.data
}

func (k *Keyboard) Write(cpuTime int64, byteMode bool, address uint16, value uint16) {
	// Real hardware ignores writes to these registers from the CPU side;
	// they are host-driven only.
}

// PushKey delivers a scancode from the host, marking the state register
// ready for the ROM's keyboard poll loop to pick up.
func (k *Keyboard) PushKey(scancode uint16) {
	k.data = scancode
	k.state |= keyboardReady
}

func (k *Keyboard) SaveState(bag bus.StateBag) {
	bag["state"] = []byte{byte(k.state), byte(k.state >> 8)}
	bag["data"] = []byte{byte(k.data), byte(k.data >> 8)}
}

func (k *Keyboard) RestoreState(bag bus.StateBag) {
	if b, ok := bag["state"]; ok && len(b) >= 2 {
		k.state = uint16(b[0]) | uint16(b[1])<<8
	}
	if b, ok := bag["data"]; ok && len(b) >= 2 {
		k.data = uint16(b[0]) | uint16(b[1])<<8
	}
}
