// ABOUTME: Test tone generator
// ABOUTME: Generates a stereo sine wave at half scale
package source

import (
	"fmt"
	"math"
	"sync"
)

// Tone generates a sine test tone
type Tone struct {
	sampleIndex uint64
	sampleMu    sync.Mutex
	frequency   float64
	sampleRate  int
}

// NewTone creates a tone generator. Zero values select 440Hz at 48kHz.
func NewTone(frequency float64, sampleRate int) *Tone {
	if frequency <= 0 {
		frequency = 440.0 // A4 note
	}
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Tone{frequency: frequency, sampleRate: sampleRate}
}

func (s *Tone) Read(samples []int16) (int, error) {
	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()

	numFrames := len(samples) / 2

	for i := 0; i < numFrames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		sample := math.Sin(2 * math.Pi * s.frequency * t)

		pcmValue := int16(sample * 32767.0 * 0.5) // 50% volume

		samples[i*2] = pcmValue
		samples[i*2+1] = pcmValue
	}

	s.sampleIndex += uint64(numFrames)

	return numFrames * 2, nil
}

func (s *Tone) SampleRate() int { return s.sampleRate }
func (s *Tone) Title() string   { return fmt.Sprintf("Test Tone %.0fHz", s.frequency) }
func (s *Tone) Close() error    { return nil }
