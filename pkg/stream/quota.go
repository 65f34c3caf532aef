// ABOUTME: Per-iteration render quota from the host DMA timing
// ABOUTME: Converts the audio DMA period into a sample count at 48kHz
package stream

const (
	// MaxSamples caps the frames mixed per iteration
	MaxSamples = 256

	// MinBuffers and MaxBuffers bound the ring size
	MinBuffers = 2
	MaxBuffers = 32

	stereo16FrameSize   = 4
	dmaLength           = 32
	outputSamplesPerSec = 48000 * stereo16FrameSize
)

// RenderQuota returns the frames to mix for one audio DMA period. The
// period is measured in host ticks; a DMA transfer moves dmaLength bytes of
// 16-bit stereo. A zero result means the timing is unusable.
func RenderQuota(ticksPerSecond uint64, dmaSampleRate uint32) int {
	transfersPerSec := uint64(dmaSampleRate) * stereo16FrameSize / dmaLength
	if ticksPerSecond == 0 || transfersPerSec == 0 {
		return 0
	}

	period := ticksPerSecond / transfersPerSec
	quota := period * outputSamplesPerSec / ticksPerSecond
	if quota > MaxSamples {
		quota = MaxSamples
	}
	return int(quota)
}

// bufferCount turns the configured latency into a ring size
func bufferCount(latency int) int {
	n := latency + 2
	if n < MinBuffers {
		n = MinBuffers
	}
	if n > MaxBuffers {
		n = MaxBuffers
	}
	return n
}
