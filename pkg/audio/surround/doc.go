// ABOUTME: Matrix surround decoder package
// ABOUTME: Expands stereo into 5.1 interleaved output
// Package surround decodes a matrix-encoded stereo stream into six channels.
//
// Output order is front left, front right, center, LFE, rear left, rear
// right. Input is processed in windows of at least MinFrames frames; shorter
// batches are rejected with ErrShortWindow.
//
// Example:
//
//	d := surround.New(48000)
//	out := make([]float32, frames*surround.Channels)
//	err := d.Decode(stereo, frames, out)
package surround
