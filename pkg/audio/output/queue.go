// ABOUTME: Buffer-queue voice shared by the pull-based backends
// ABOUTME: Tracks queued/processed buffers and feeds the hardware callback with gain applied
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/harperreed/emustream/pkg/audio"
)

// sink is the hardware half of a voice. It pulls bytes through the callback
// installed by Configure, in the format it was configured with.
type sink interface {
	// Configure (re)opens the hardware in format. An unsupported format
	// must be reported with ErrInvalidEnum.
	Configure(format audio.Format, pull func([]byte)) error

	// Close releases the hardware
	Close() error
}

// queueVoice implements Voice on top of a sink
type queueVoice struct {
	sink sink

	mu         sync.Mutex
	ids        []BufferID
	frames     []audio.Frame // indexed by BufferID-1
	queued     []bool
	pending    []BufferID // queued, not fully played
	processed  []BufferID // played, awaiting unqueue
	readOffset int        // bytes of pending[0] already played
	state      State
	gain       float32
	format     audio.Format
	configured bool
	closed     bool
}

func newQueueVoice(buffers int, s sink) (*queueVoice, error) {
	if buffers < 1 || buffers > MaxBuffers {
		return nil, fmt.Errorf("generating %d buffers: %w", buffers, ErrInvalidValue)
	}

	v := &queueVoice{
		sink:   s,
		ids:    make([]BufferID, buffers),
		frames: make([]audio.Frame, buffers),
		queued: make([]bool, buffers),
		state:  StateInitial,
		gain:   1.0,
	}
	for i := range v.ids {
		v.ids[i] = BufferID(i + 1)
	}
	return v, nil
}

func (v *queueVoice) Buffers() []BufferID {
	ids := make([]BufferID, len(v.ids))
	copy(ids, v.ids)
	return ids
}

// slot returns the index of id (must hold v.mu)
func (v *queueVoice) slot(id BufferID) (int, error) {
	if v.closed {
		return 0, fmt.Errorf("voice closed: %w", ErrInvalidOperation)
	}
	i := int(id) - 1
	if i < 0 || i >= len(v.ids) {
		return 0, fmt.Errorf("buffer %d: %w", id, ErrInvalidName)
	}
	return i, nil
}

func (v *queueVoice) BufferData(id BufferID, frame audio.Frame) error {
	v.mu.Lock()
	i, err := v.slot(id)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if v.queued[i] {
		v.mu.Unlock()
		return fmt.Errorf("buffer %d is queued: %w", id, ErrInvalidOperation)
	}
	if frame.Format.Channels <= 0 || len(frame.Data)%frame.Format.FrameSize() != 0 {
		v.mu.Unlock()
		return fmt.Errorf("buffer %d: %d bytes of %s: %w", id, len(frame.Data), frame.Format, ErrInvalidValue)
	}
	reconfigure := !v.configured || frame.Format != v.format
	v.mu.Unlock()

	// The sink may stop its callback while reconfiguring, and the callback takes v.mu
	if reconfigure {
		if err := v.sink.Configure(frame.Format, v.pull); err != nil {
			return fmt.Errorf("buffer %d as %s: %v: %w", id, frame.Format, err, ErrInvalidEnum)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if reconfigure {
		if v.configured && len(v.pending) > 0 {
			log.Printf("Output format changed to %s, flushing %d queued buffers", frame.Format, len(v.pending))
			v.processed = append(v.processed, v.pending...)
			v.pending = v.pending[:0]
			v.readOffset = 0
		}
		v.format = frame.Format
		v.configured = true
	}

	data := make([]byte, len(frame.Data))
	copy(data, frame.Data)
	v.frames[i] = audio.Frame{Format: frame.Format, Data: data}
	return nil
}

func (v *queueVoice) Queue(id BufferID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	i, err := v.slot(id)
	if err != nil {
		return err
	}
	if v.queued[i] {
		return fmt.Errorf("buffer %d already queued: %w", id, ErrInvalidOperation)
	}
	v.queued[i] = true
	v.pending = append(v.pending, id)
	return nil
}

func (v *queueVoice) Unqueue(n int) ([]BufferID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if n < 0 || n > len(v.processed) {
		return nil, fmt.Errorf("unqueue %d of %d processed: %w", n, len(v.processed), ErrInvalidValue)
	}

	ids := make([]BufferID, n)
	copy(ids, v.processed[:n])
	v.processed = v.processed[:copy(v.processed, v.processed[n:])]
	for _, id := range ids {
		v.queued[int(id)-1] = false
	}
	return ids, nil
}

func (v *queueVoice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending) + len(v.processed)
}

func (v *queueVoice) Processed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.processed)
}

func (v *queueVoice) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *queueVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return fmt.Errorf("play: %w", ErrInvalidOperation)
	}
	v.state = StatePlaying
	return nil
}

// Stop halts playback and marks every queued buffer processed
func (v *queueVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return fmt.Errorf("stop: %w", ErrInvalidOperation)
	}
	v.state = StateStopped
	v.processed = append(v.processed, v.pending...)
	v.pending = v.pending[:0]
	v.readOffset = 0
	return nil
}

func (v *queueVoice) Detach() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == StatePlaying {
		return fmt.Errorf("detach while playing: %w", ErrInvalidOperation)
	}
	v.pending = v.pending[:0]
	v.processed = v.processed[:0]
	v.readOffset = 0
	for i := range v.queued {
		v.queued[i] = false
	}
	return nil
}

func (v *queueVoice) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

func (v *queueVoice) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.state = StateStopped
	v.pending = nil
	v.processed = nil
	v.mu.Unlock()

	return v.sink.Close()
}

// pull fills out with queued audio, zero-filling on underrun
func (v *queueVoice) pull(out []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	written := 0
	if v.state == StatePlaying {
		for written < len(out) && len(v.pending) > 0 {
			id := v.pending[0]
			frame := v.frames[int(id)-1]

			remaining := 0
			if frame.Format == v.format {
				remaining = len(frame.Data) - v.readOffset
			}

			n := copy(out[written:], frame.Data[v.readOffset:v.readOffset+remaining])
			applyGain(out[written:written+n], v.format.Encoding, v.gain)
			written += n
			v.readOffset += n

			if n == remaining {
				v.pending = v.pending[1:]
				v.processed = append(v.processed, id)
				v.readOffset = 0
			}
		}

		if len(v.pending) == 0 {
			// Out of queued audio: underrun
			v.state = StateStopped
		}
	}

	for i := written; i < len(out); i++ {
		out[i] = 0
	}
}

// applyGain scales packed samples in place with clipping protection
func applyGain(data []byte, enc audio.Encoding, gain float32) {
	if gain == 1.0 {
		return
	}

	switch enc {
	case audio.EncodingFloat32:
		for i := 0; i+4 <= len(data); i += 4 {
			s := math.Float32frombits(binary.LittleEndian.Uint32(data[i:]))
			binary.LittleEndian.PutUint32(data[i:], math.Float32bits(s*gain))
		}
	default:
		for i := 0; i+2 <= len(data); i += 2 {
			s := float32(int16(binary.LittleEndian.Uint16(data[i:]))) * gain
			if s > math.MaxInt16 {
				s = math.MaxInt16
			} else if s < math.MinInt16 {
				s = math.MinInt16
			}
			binary.LittleEndian.PutUint16(data[i:], uint16(int16(s)))
		}
	}
}
