package audio

import (
	"sync/atomic"
	"time"

	"pdp11emu/internal/logging"
)

// Sink is the host audio output: something that accepts fully rendered
// signed 16-bit mono sample buffers. internal/audio.OtoSink is the
// concrete implementation; tests use a slice-collecting fake.
type Sink interface {
	Write(samples []int16) error
	Close() error
}

// MaxAmplitude is the +full-scale sample value for the square wave; the
// held level alternates between +MaxAmplitude and -MaxAmplitude.
const MaxAmplitude int16 = 1<<15 - 1

// Emitter drains a RingBuffer at a fixed sample rate, reconstructing the
// one-bit PCM waveform per spec.md §4.6's buffer-fill algorithm — drain
// due edges, emit the held level for the gap, flip on each edge, advance
// the CPU-time cursor by exactly one buffer's worth of samples. Grounded
// line-for-line on AudioOutput.run()'s drain/emit/advance loop in
// original_source.
type Emitter struct {
	ring          *RingBuffer
	sink          Sink
	log           *logging.Logger
	cpuFreqHz     float64
	rate          int
	bufferSamples int
	lastValue     int16
	lastSampleTs  int64
	running       atomic.Bool
	done          chan struct{}
}

// NewEmitter builds an emitter that will read edges from ring and render
// them at rate Hz (spec.md default 22050), pacing against a CPU clocked at
// cpuFreqHz.
func NewEmitter(ring *RingBuffer, sink Sink, cpuFreqHz float64, rate, bufferSamples int, log *logging.Logger) *Emitter {
	if log == nil {
		log = logging.Default()
	}
	return &Emitter{
		ring:          ring,
		sink:          sink,
		log:           log,
		cpuFreqHz:     cpuFreqHz,
		rate:          rate,
		bufferSamples: bufferSamples,
		lastValue:     MaxAmplitude,
		done:          make(chan struct{}),
	}
}

// cyclesForSamples converts a sample count into the equivalent span of CPU
// cycles at the emitter's configured rate and clock.
func (e *Emitter) cyclesForSamples(n int) int64 {
	return int64(float64(n) * e.cpuFreqHz / float64(e.rate))
}

// cpuToNanos converts a span of CPU cycles into nanoseconds.
func (e *Emitter) cpuToNanos(cycles int64) int64 {
	return int64(float64(cycles) * 1e9 / e.cpuFreqHz)
}

// samplesFor computes how many samples elapse between two CPU-time points,
// per spec.md §4.6's `samples = cpu_to_nanos(T-prev) * rate / 1e9` mapping.
func (e *Emitter) samplesFor(cycles int64) int {
	return int(e.cpuToNanos(cycles) * int64(e.rate) / 1e9)
}

// RenderBuffer renders exactly one buffer's worth of samples starting at
// the emitter's current CPU-time cursor, draining and consuming ring edges
// as it goes and advancing the cursor by len(buf) samples. It is the unit
// the emission goroutine calls once per tick; exported so tests can drive
// it deterministically without relying on wall-clock timing.
func (e *Emitter) RenderBuffer(buf []int16) {
	deadline := e.lastSampleTs + e.cyclesForSamples(len(buf))
	prev := e.lastSampleTs
	idx := 0
	for idx < len(buf) {
		ts, ok := e.ring.PopBefore(deadline)
		if !ok {
			break
		}
		n := e.samplesFor(ts - prev)
		if n > len(buf)-idx {
			n = len(buf) - idx
		}
		if n < 0 {
			n = 0
		}
		fillValue(buf[idx:idx+n], e.lastValue)
		idx += n
		prev = ts
		e.lastValue = -e.lastValue
	}
	fillValue(buf[idx:], e.lastValue)
	e.lastSampleTs += e.cyclesForSamples(len(buf))
}

func fillValue(buf []int16, v int16) {
	for i := range buf {
		buf[i] = v
	}
}

// Start begins the emission loop in its own goroutine, ticking roughly
// once per buffer's wall-clock duration. Stop must be called to release
// the goroutine and the sink.
func (e *Emitter) Start() {
	e.running.Store(true)
	go e.run()
}

// Stop clears the running flag; the emission thread exits after finishing
// its current buffer and closes the sink, matching spec.md §5's
// cancellation contract ("the CPU thread joins before releasing the audio
// sink" — here Stop blocks until run() has returned).
func (e *Emitter) Stop() {
	e.running.Store(false)
	<-e.done
}

func (e *Emitter) run() {
	defer close(e.done)
	period := time.Duration(float64(e.bufferSamples) * float64(time.Second) / float64(e.rate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	buf := make([]int16, e.bufferSamples)
	for e.running.Load() {
		<-ticker.C
		e.RenderBuffer(buf)
		if err := e.sink.Write(buf); err != nil {
			e.log.Warnf("audio: sink write failed: %v", err)
		}
	}
	if err := e.sink.Close(); err != nil {
		e.log.Warnf("audio: sink close failed: %v", err)
	}
}
