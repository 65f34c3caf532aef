// ABOUTME: Audio type definitions
// ABOUTME: Defines sample encodings, packed frames and int16/float conversions
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	StereoChannels   = 2
	SurroundChannels = 6

	// SubwooferChannel is the LFE slot of a 5.1 frame. The surround path keeps it silent.
	SubwooferChannel = 3

	// Scale between int16 and normalized float samples (2^15)
	SampleScale = 1 << 15
)

// Encoding is the on-wire sample encoding of a device buffer
type Encoding int

const (
	EncodingInt16 Encoding = iota
	EncodingFloat32
)

// BytesPerSample returns the size of one sample in bytes
func (e Encoding) BytesPerSample() int {
	if e == EncodingFloat32 {
		return 4
	}
	return 2
}

func (e Encoding) String() string {
	switch e {
	case EncodingInt16:
		return "S16"
	case EncodingFloat32:
		return "F32"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// Format describes a packed PCM layout
type Format struct {
	SampleRate int
	Channels   int
	Encoding   Encoding
}

// FrameSize returns the size in bytes of one interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * f.Encoding.BytesPerSample()
}

// Surround reports whether the format carries 5.1 channels
func (f Format) Surround() bool {
	return f.Channels == SurroundChannels
}

func (f Format) String() string {
	layout := "stereo"
	if f.Surround() {
		layout = "5.1"
	} else if f.Channels != StereoChannels {
		layout = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%s %s %dHz", layout, f.Encoding, f.SampleRate)
}

// Frame is a packed little-endian batch of interleaved samples
type Frame struct {
	Format Format
	Data   []byte
}

// Frames returns the number of sample frames held in the payload
func (f Frame) Frames() int {
	size := f.Format.FrameSize()
	if size == 0 {
		return 0
	}
	return len(f.Data) / size
}

// Int16ToFloat converts a 16-bit sample to a normalized float
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / SampleScale
}

// FloatToInt16 scales a normalized float to 16-bit, truncating toward zero and clamping
func FloatToInt16(sample float32) int16 {
	scaled := sample * SampleScale
	if scaled >= math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled <= math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// Int16sToFloats converts interleaved 16-bit samples into dst and returns the filled slice
func Int16sToFloats(dst []float32, src []int16) []float32 {
	if cap(dst) < len(src) {
		dst = make([]float32, len(src))
	}
	dst = dst[:len(src)]
	for i, s := range src {
		dst[i] = Int16ToFloat(s)
	}
	return dst
}

// PackFrame packs normalized float samples into a frame of the given format.
// The backing buffer of dst is reused when large enough.
func PackFrame(format Format, samples []float32, dst []byte) Frame {
	size := len(samples) * format.Encoding.BytesPerSample()
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]

	switch format.Encoding {
	case EncodingFloat32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
		}
	default:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(FloatToInt16(s)))
		}
	}

	return Frame{Format: format, Data: dst}
}

// Samples decodes the frame payload back into normalized floats
func (f Frame) Samples() []float32 {
	bps := f.Format.Encoding.BytesPerSample()
	out := make([]float32, len(f.Data)/bps)
	for i := range out {
		if f.Format.Encoding == EncodingFloat32 {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(f.Data[i*4:]))
		} else {
			out[i] = Int16ToFloat(int16(binary.LittleEndian.Uint16(f.Data[i*2:])))
		}
	}
	return out
}
