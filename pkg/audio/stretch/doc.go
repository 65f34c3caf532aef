// ABOUTME: Audio time-stretch package using overlap-add sequences
// ABOUTME: Changes playback tempo without resampling pitch
// Package stretch provides tempo adjustment for interleaved float audio.
//
// Input is cut into fixed-length sequences which are cross-faded over a short
// overlap window. The input read position advances by tempo × hop per
// sequence, so a tempo above 1 consumes input faster than it produces output.
//
// Example:
//
//	s := stretch.New(2, 48000)
//	s.SetTempo(1.25)
//	s.Put(samples, frames)
//	n := s.Receive(out, maxFrames)
package stretch
