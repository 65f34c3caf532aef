// ABOUTME: Overlap-add time stretcher for tracking a variable-speed producer
// ABOUTME: Buffers float input and yields tempo-adjusted output on demand
package stretch

import "math"

// Settings controls the sequence geometry
type Settings struct {
	SequenceMs int
	OverlapMs  int
}

// DefaultSettings keeps the first output within 12 ms of input and emits
// 8 ms bursts, small enough to refill a 2-buffer device ring every DMA wake
var DefaultSettings = Settings{
	SequenceMs: 12,
	OverlapMs:  4,
}

// Stretcher performs overlap-add tempo adjustment
type Stretcher struct {
	channels   int
	sampleRate int
	tempo      float64

	seqFrames     int
	overlapFrames int

	input    []float32 // pending interleaved input
	output   []float32 // stretched interleaved output not yet received
	mid      []float32 // tail of the previous sequence, cross-faded into the next
	haveMid  bool
	position float64 // fractional part of the input skip carried between sequences
}

// New creates a stretcher with DefaultSettings
func New(channels, sampleRate int) *Stretcher {
	return NewWithSettings(channels, sampleRate, DefaultSettings)
}

// NewWithSettings creates a stretcher with explicit sequence geometry
func NewWithSettings(channels, sampleRate int, settings Settings) *Stretcher {
	if channels < 1 {
		channels = 1
	}
	overlap := sampleRate * settings.OverlapMs / 1000
	if overlap < 1 {
		overlap = 1
	}
	seq := sampleRate * settings.SequenceMs / 1000
	if seq < 2*overlap+1 {
		seq = 2*overlap + 1
	}

	return &Stretcher{
		channels:      channels,
		sampleRate:    sampleRate,
		tempo:         1.0,
		seqFrames:     seq,
		overlapFrames: overlap,
		mid:           make([]float32, overlap*channels),
	}
}

// Channels returns the configured channel count
func (s *Stretcher) Channels() int { return s.channels }

// SampleRate returns the configured sample rate
func (s *Stretcher) SampleRate() int { return s.sampleRate }

// Tempo returns the current tempo ratio
func (s *Stretcher) Tempo() float64 { return s.tempo }

// SetTempo sets the ratio of input consumed to output produced.
// Non-positive values are ignored.
func (s *Stretcher) SetTempo(tempo float64) {
	if tempo <= 0 || math.IsNaN(tempo) || math.IsInf(tempo, 0) {
		return
	}
	s.tempo = tempo
}

// Clear discards all buffered input, output and overlap history
func (s *Stretcher) Clear() {
	s.input = s.input[:0]
	s.output = s.output[:0]
	s.haveMid = false
	s.position = 0
	for i := range s.mid {
		s.mid[i] = 0
	}
}

// Put appends frames of interleaved input
func (s *Stretcher) Put(samples []float32, frames int) {
	n := frames * s.channels
	if n > len(samples) {
		n = len(samples) - len(samples)%s.channels
	}
	if n <= 0 {
		return
	}
	s.input = append(s.input, samples[:n]...)
	s.process()
}

// Available returns the number of output frames ready to receive
func (s *Stretcher) Available() int {
	return len(s.output) / s.channels
}

// Receive copies up to maxFrames output frames into out and returns the frame count
func (s *Stretcher) Receive(out []float32, maxFrames int) int {
	frames := s.Available()
	if frames > maxFrames {
		frames = maxFrames
	}
	if room := len(out) / s.channels; frames > room {
		frames = room
	}
	if frames <= 0 {
		return 0
	}

	n := frames * s.channels
	copy(out, s.output[:n])
	s.output = s.output[:copy(s.output, s.output[n:])]
	return frames
}

// process emits as many whole sequences as the buffered input allows
func (s *Stretcher) process() {
	ch := s.channels
	hop := s.seqFrames - s.overlapFrames
	consumed := 0

	for {
		inputFrames := len(s.input)/ch - consumed

		skip := s.tempo*float64(hop) + s.position
		advance := int(skip)
		if advance < 1 {
			advance = 1
		}
		need := s.seqFrames
		if advance > need {
			need = advance
		}
		if inputFrames < need {
			break
		}

		seq := s.input[consumed*ch : (consumed+s.seqFrames)*ch]
		overlap := s.overlapFrames * ch

		if s.haveMid {
			for i := 0; i < s.overlapFrames; i++ {
				w := float32(i) / float32(s.overlapFrames)
				for c := 0; c < ch; c++ {
					idx := i*ch + c
					s.output = append(s.output, s.mid[idx]*(1-w)+seq[idx]*w)
				}
			}
		} else {
			s.output = append(s.output, seq[:overlap]...)
		}

		// Body between the two overlap windows
		s.output = append(s.output, seq[overlap:len(seq)-overlap]...)

		copy(s.mid, seq[len(seq)-overlap:])
		s.haveMid = true

		s.position = skip - float64(int(skip))
		consumed += advance
	}

	if consumed > 0 {
		s.input = s.input[:copy(s.input, s.input[consumed*ch:])]
	}
}
