package audio

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// OtoSink is the host audio output backend, wrapping
// github.com/ebitengine/oto/v3. It implements Sink by handing oto's player
// an io.Reader whose Read pulls the most recently rendered buffer via an
// atomic pointer swap, avoiding a lock on the audio callback's hot path —
// the same shape as IntuitionAmiga-IntuitionEngine's OtoPlayer.chip
// atomic.Pointer swap, adapted from float32 stereo to signed 16-bit mono
// per spec.md §4.6's "signed 16-bit mono samples" requirement.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	pcm    atomic.Pointer[[]byte]
	mu     sync.Mutex
}

// NewOtoSink opens an oto playback context at the given sample rate and
// starts a player pulling from this sink.
func NewOtoSink(rate int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{ctx: ctx}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

// Write renders samples as little-endian signed 16-bit PCM and makes them
// available to the next Read call. It never blocks on the audio callback.
func (s *OtoSink) Write(samples []int16) error {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	s.pcm.Store(&buf)
	return nil
}

// Read implements io.Reader for oto.Player, serving the most recently
// stored buffer (or silence before the first Write).
func (s *OtoSink) Read(p []byte) (int, error) {
	buf := s.pcm.Load()
	if buf == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, *buf)
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// Close stops playback and releases the oto player.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return s.player.Close()
	}
	return nil
}
