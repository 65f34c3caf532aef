// ABOUTME: Passive matrix surround decoder with rear delay and LFE low-pass
// ABOUTME: Keeps filter and delay state across calls until Reset
package surround

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MinFrames is the smallest analysis window the decoder accepts (5ms at 48kHz)
	MinFrames = 240

	// Channels is the number of interleaved output channels
	Channels = 6

	// RearDelayMs delays the rear channels behind the fronts
	RearDelayMs = 10

	// LFECutoffHz is the corner of the one-pole low-pass feeding the LFE slot
	LFECutoffHz = 120.0
)

// Output channel indices
const (
	FrontLeft = iota
	FrontRight
	Center
	LFE
	RearLeft
	RearRight
)

// Matrix coefficients for the rear steering (Lt/Rt phase-amplitude matrix)
const (
	centerGain = math.Sqrt2 / 2
	rearMajor  = 0.8718
	rearMinor  = 0.4899
)

// ErrShortWindow is returned when fewer than MinFrames frames are supplied
var ErrShortWindow = errors.New("surround: input shorter than analysis window")

// Decoder expands stereo to 5.1
type Decoder struct {
	sampleRate int

	delay    []float32 // interleaved rear L/R ring
	delayPos int
	lfeAlpha float32
	lfeState float32
}

// New creates a decoder for the given sample rate
func New(sampleRate int) *Decoder {
	delayFrames := sampleRate * RearDelayMs / 1000
	if delayFrames < 1 {
		delayFrames = 1
	}

	dt := 1.0 / float64(sampleRate)
	rc := 1.0 / (2 * math.Pi * LFECutoffHz)

	return &Decoder{
		sampleRate: sampleRate,
		delay:      make([]float32, delayFrames*2),
		lfeAlpha:   float32(dt / (rc + dt)),
	}
}

// Reset clears the delay line and filter state
func (d *Decoder) Reset() {
	for i := range d.delay {
		d.delay[i] = 0
	}
	d.delayPos = 0
	d.lfeState = 0
}

// Decode reads frames of interleaved stereo from in and writes frames*Channels samples to out
func (d *Decoder) Decode(in []float32, frames int, out []float32) error {
	if frames < MinFrames {
		return fmt.Errorf("%w: %d < %d frames", ErrShortWindow, frames, MinFrames)
	}
	if len(in) < frames*2 {
		return fmt.Errorf("surround: input holds %d frames, need %d", len(in)/2, frames)
	}
	if len(out) < frames*Channels {
		return fmt.Errorf("surround: output holds %d frames, need %d", len(out)/Channels, frames)
	}

	delayFrames := len(d.delay) / 2

	for i := 0; i < frames; i++ {
		l := in[i*2]
		r := in[i*2+1]

		c := (l + r) * centerGain
		d.lfeState += d.lfeAlpha * (c - d.lfeState)

		rl := -rearMajor*l + rearMinor*r
		rr := -rearMinor*l + rearMajor*r

		// Swap the new rear pair into the delay line, take the delayed one out
		p := d.delayPos * 2
		delayedL, delayedR := d.delay[p], d.delay[p+1]
		d.delay[p], d.delay[p+1] = rl, rr
		d.delayPos = (d.delayPos + 1) % delayFrames

		o := out[i*Channels : (i+1)*Channels]
		o[FrontLeft] = l
		o[FrontRight] = r
		o[Center] = c
		o[LFE] = d.lfeState
		o[RearLeft] = delayedL
		o[RearRight] = delayedR
	}

	return nil
}
