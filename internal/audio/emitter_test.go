package audio_test

import (
	"testing"
	"time"

	"github.com/matryer/is"

	"pdp11emu/internal/audio"
)

type fakeSink struct {
	buffers [][]int16
}

func (f *fakeSink) Write(samples []int16) error {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	f.buffers = append(f.buffers, cp)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func TestRingBufferDropsOnOverflow(t *testing.T) {
	is := is.New(t)
	r := audio.NewRingBuffer(2, nil)
	r.Push(1)
	r.Push(2)
	r.Push(3) // dropped

	is.Equal(r.Len(), 2)
	ts, ok := r.PopBefore(100)
	is.True(ok)
	is.Equal(ts, int64(1))
}

func TestRingBufferHonorsDeadline(t *testing.T) {
	is := is.New(t)
	r := audio.NewRingBuffer(4, nil)
	r.Push(500)

	_, ok := r.PopBefore(100)
	is.True(!ok)

	ts, ok := r.PopBefore(500)
	is.True(ok)
	is.Equal(ts, int64(500))
}

func TestEmitterFlipsOnEdge(t *testing.T) {
	is := is.New(t)
	ring := audio.NewRingBuffer(16, nil)
	// 1 cycle per nanosecond, 10 samples/sec: one 10-sample buffer spans
	// 1e9 CPU cycles. Push an edge exactly halfway through.
	e := audio.NewEmitter(ring, nil, 1e9, 10, 10, nil)
	ring.Push(5e8)

	buf := make([]int16, 10)
	e.RenderBuffer(buf)

	for i := 0; i < 5; i++ {
		is.Equal(buf[i], audio.MaxAmplitude)
	}
	for i := 5; i < 10; i++ {
		is.Equal(buf[i], -audio.MaxAmplitude)
	}
}

func TestEmitterHoldsLevelWithNoEdges(t *testing.T) {
	is := is.New(t)
	ring := audio.NewRingBuffer(4, nil)
	e := audio.NewEmitter(ring, nil, 1e9, 10, 10, nil)

	buf := make([]int16, 10)
	e.RenderBuffer(buf)

	for _, v := range buf {
		is.Equal(v, audio.MaxAmplitude)
	}
}

func TestEmitterStartStopDrivesSink(t *testing.T) {
	is := is.New(t)
	ring := audio.NewRingBuffer(4, nil)
	sink := &fakeSink{}
	e := audio.NewEmitter(ring, sink, 1e9, 1000, 1, nil)

	e.Start()
	time.Sleep(20 * time.Millisecond)
	e.Stop()

	is.True(len(sink.buffers) > 0)
}
