package devices_test

import (
	"testing"

	"github.com/matryer/is"

	"pdp11emu/internal/audio"
	"pdp11emu/internal/devices"
)

func TestSel1PushesAudioEdgeOnBitFlip(t *testing.T) {
	is := is.New(t)
	ring := audio.NewRingBuffer(4, nil)
	s := devices.NewSel1(ring)
	s.Init(0)

	s.Write(100, false, devices.Sel1Address, devices.AudioOutputBit)
	is.Equal(ring.Len(), 1)

	s.Write(200, false, devices.Sel1Address, devices.AudioOutputBit) // no flip
	is.Equal(ring.Len(), 1)

	s.Write(300, false, devices.Sel1Address, 0) // flip back
	is.Equal(ring.Len(), 2)
}

func TestSel1WithoutRingIgnoresAudio(t *testing.T) {
	is := is.New(t)
	s := devices.NewSel1(nil)
	s.Init(0)
	s.Write(100, false, devices.Sel1Address, devices.AudioOutputBit)
	is.Equal(s.Read(0, devices.Sel1Address), devices.AudioOutputBit)
}

func TestKeyboardReadyFlagClearsOnDataRead(t *testing.T) {
	is := is.New(t)
	k := devices.NewKeyboard()
	k.PushKey(0101)

	is.True(k.Read(0, devices.KeyboardStateAddress) != 0)
	is.Equal(k.Read(0, devices.KeyboardDataAddress), uint16(0101))
	is.Equal(k.Read(0, devices.KeyboardStateAddress), uint16(0))
}

func TestTimerFiresAtPeriod(t *testing.T) {
	is := is.New(t)
	var fired []uint16
	timer := devices.NewTimer(100, func(vector, priority uint16) {
		fired = append(fired, vector)
	})
	timer.Init(0)

	timer.Advance(50)
	is.Equal(len(fired), 0)

	timer.Advance(100)
	is.Equal(len(fired), 1)
	is.Equal(fired[0], devices.TimerVector)
}
