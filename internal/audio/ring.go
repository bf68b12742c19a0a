// Package audio implements the one-bit PCM synthesizer: a CPU-time
// timestamp ring buffer fed by the audio device on every output-bit edge,
// and an emission goroutine that turns those edges into a signed 16-bit
// mono waveform for a host audio sink.
package audio

import (
	"sync"

	"pdp11emu/internal/logging"
)

// RingBuffer is a fixed-capacity FIFO of CPU-time timestamps, one per
// toggle of the audio output bit. It is the only state shared between the
// CPU goroutine (producer, via Push) and the audio emission goroutine
// (consumer, via PopBefore), guarded by a single mutex around the three
// indices, exactly as spec.md §5 and su.comp.bk.arch.io.audio.AudioOutput's
// synchronized pcmTimestamps/putPcmTimestampIndex/getPcmTimestampIndex
// fields in original_source.
type RingBuffer struct {
	mu   sync.Mutex
	buf  []int64
	put  int
	get  int
	size int
	log  *logging.Logger
}

// NewRingBuffer creates a ring of the given capacity. capacity should be
// derived from spec.md §9's max_edges_per_buffer formula; see
// machine.audioRingCapacity for the concrete sizing.
func NewRingBuffer(capacity int, log *logging.Logger) *RingBuffer {
	if log == nil {
		log = logging.Default()
	}
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]int64, capacity), log: log}
}

// Push appends a CPU-time edge timestamp. If the ring is full the new event
// is dropped and a warning is logged — spec.md §5's "drop newer edges"
// overflow policy; the CPU is never faulted by this.
func (r *RingBuffer) Push(ts int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == len(r.buf) {
		r.log.Warnf("audio: pcm ring overflow, dropping edge at %d", ts)
		return
	}
	r.buf[r.put] = ts
	r.put = (r.put + 1) % len(r.buf)
	r.size++
}

// PopBefore removes and returns the oldest timestamp if it is <= deadline.
// It returns ok=false, logging nothing, if the ring is empty or the oldest
// entry is still in the future — that is not underflow, just "no edge due
// yet".
func (r *RingBuffer) PopBefore(deadline int64) (ts int64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return 0, false
	}
	if r.buf[r.get] > deadline {
		return 0, false
	}
	ts = r.buf[r.get]
	r.get = (r.get + 1) % len(r.buf)
	r.size--
	return ts, true
}

// Len reports the number of pending edges, for diagnostics and tests.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
