// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Frame types and sample conversion functions
// Package audio provides the sample types shared by the stream core and its backends.
//
// This package defines core types used throughout emustream:
//   - Format: Describes a packed PCM layout (sample rate, channels, encoding)
//   - Frame: A packed, interleaved batch of samples ready for a device buffer
//
// It also provides the conversions used on the render path:
//   - int16 ↔ float32 with a 2^15 scale
//   - float32 → little-endian float32 or int16 bytes
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 48000,
//	    Channels:   audio.SurroundChannels,
//	    Encoding:   audio.EncodingFloat32,
//	}
//
//	frame := audio.PackFrame(format, samples, nil)
package audio
