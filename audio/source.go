package audio

import (
	"fmt"
	"math"
	"sync"
)

// Source supplies mono samples to the graph. Pull fills block and returns the
// number of samples written; the graph zero-fills the remainder.
type Source interface {
	Pull(block []float64) int
	Reset()
}

// SineSource produces a steady test tone.
type SineSource struct {
	freqHz     float64
	sampleRate float64
	amplitude  float64
	phase      float64
}

// NewSineSource creates a sine source at the given frequency.
func NewSineSource(freqHz, sampleRate float64) (*SineSource, error) {
	if freqHz <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("sine source needs positive freq and rate: %f, %f", freqHz, sampleRate)
	}

	return &SineSource{freqHz: freqHz, sampleRate: sampleRate, amplitude: 0.5}, nil
}

// SetAmplitude adjusts the tone level in [0,1].
func (s *SineSource) SetAmplitude(a float64) {
	if a < 0 {
		a = 0
	}

	if a > 1 {
		a = 1
	}

	s.amplitude = a
}

// Pull fills block with the next stretch of the tone.
func (s *SineSource) Pull(block []float64) int {
	step := 2 * math.Pi * s.freqHz / s.sampleRate
	for i := range block {
		block[i] = s.amplitude * math.Sin(s.phase)

		s.phase += step
		if s.phase > 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}

	return len(block)
}

// Reset rewinds the phase.
func (s *SineSource) Reset() {
	s.phase = 0
}

// SampleSource plays back a decoded buffer, optionally looping. Decoding
// itself (file parsing) happens outside this module; a decode failure simply
// never produces a SampleSource.
type SampleSource struct {
	data []float64
	pos  int
	loop bool
}

// NewSampleSource wraps decoded samples.
func NewSampleSource(data []float64, loop bool) (*SampleSource, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("sample source needs samples, got %d", len(data))
	}

	return &SampleSource{data: data, loop: loop}, nil
}

// Pull copies the next samples, looping or running dry at the end.
func (s *SampleSource) Pull(block []float64) int {
	written := 0

	for written < len(block) {
		if s.pos >= len(s.data) {
			if !s.loop {
				break
			}

			s.pos = 0
		}

		n := copy(block[written:], s.data[s.pos:])
		s.pos += n
		written += n
	}

	for i := written; i < len(block); i++ {
		block[i] = 0
	}

	return written
}

// Reset rewinds playback.
func (s *SampleSource) Reset() {
	s.pos = 0
}

// PCMSource accepts pushed live buffers (e.g. a microphone callback) through
// a bounded ring. Overflow drops the oldest audio.
type PCMSource struct {
	mu   sync.Mutex
	ring []float64
	head int
	size int
}

// NewPCMSource creates a live source with the given ring capacity in samples.
func NewPCMSource(capacity int) (*PCMSource, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pcm source capacity must be > 0: %d", capacity)
	}

	return &PCMSource{ring: make([]float64, capacity)}, nil
}

// Push appends live samples, discarding the oldest on overflow.
func (s *PCMSource) Push(samples []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range samples {
		idx := (s.head + s.size) % len(s.ring)
		s.ring[idx] = v

		if s.size < len(s.ring) {
			s.size++
		} else {
			s.head = (s.head + 1) % len(s.ring)
		}
	}
}

// Pull drains buffered samples into block.
func (s *PCMSource) Pull(block []float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(block)
	if n > s.size {
		n = s.size
	}

	for i := range n {
		block[i] = s.ring[s.head]
		s.head = (s.head + 1) % len(s.ring)
	}

	s.size -= n

	for i := n; i < len(block); i++ {
		block[i] = 0
	}

	return n
}

// Reset drops all buffered audio.
func (s *PCMSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = 0
	s.size = 0
}
