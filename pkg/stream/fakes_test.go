// ABOUTME: Test doubles for the stream package
// ABOUTME: Scriptable voice, device, driver, sample source, stretcher and decoder
package stream

import (
	"errors"
	"fmt"
	"sync"

	"github.com/harperreed/emustream/pkg/audio"
	"github.com/harperreed/emustream/pkg/audio/output"
	"github.com/harperreed/emustream/pkg/audio/surround"
)

// fakeVoice is an in-memory buffer queue that only plays when told to
type fakeVoice struct {
	mu sync.Mutex

	ids         []output.BufferID
	reject      func(audio.Format) bool
	autoProcess bool

	// onState runs after each State read, outside the lock
	onState func()

	attempts  []audio.Format
	submitted []audio.Frame
	queued    map[output.BufferID]bool
	pending   []output.BufferID
	processed []output.BufferID
	state     output.State
	gain      float32

	refilledQueued int
	playCalls      int
	ops            []string
	closed         bool
}

func newFakeVoice(buffers int) *fakeVoice {
	v := &fakeVoice{queued: make(map[output.BufferID]bool), state: output.StateInitial, gain: 1}
	for i := 1; i <= buffers; i++ {
		v.ids = append(v.ids, output.BufferID(i))
	}
	return v
}

func (v *fakeVoice) Buffers() []output.BufferID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]output.BufferID(nil), v.ids...)
}

func (v *fakeVoice) BufferData(id output.BufferID, frame audio.Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.attempts = append(v.attempts, frame.Format)
	if v.queued[id] {
		v.refilledQueued++
		return output.ErrInvalidOperation
	}
	if v.reject != nil && v.reject(frame.Format) {
		return fmt.Errorf("format %s: %w", frame.Format, output.ErrInvalidEnum)
	}
	data := append([]byte(nil), frame.Data...)
	v.submitted = append(v.submitted, audio.Frame{Format: frame.Format, Data: data})
	return nil
}

func (v *fakeVoice) Queue(id output.BufferID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.queued[id] {
		return output.ErrInvalidOperation
	}
	v.queued[id] = true
	if v.autoProcess {
		v.processed = append(v.processed, id)
	} else {
		v.pending = append(v.pending, id)
	}
	return nil
}

func (v *fakeVoice) Unqueue(n int) ([]output.BufferID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n > len(v.processed) {
		return nil, output.ErrInvalidValue
	}
	ids := append([]output.BufferID(nil), v.processed[:n]...)
	v.processed = v.processed[n:]
	for _, id := range ids {
		delete(v.queued, id)
	}
	return ids, nil
}

func (v *fakeVoice) Queued() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending) + len(v.processed)
}

func (v *fakeVoice) Processed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.processed)
}

func (v *fakeVoice) State() output.State {
	v.mu.Lock()
	state, hook := v.state, v.onState
	v.mu.Unlock()

	if hook != nil {
		hook()
	}
	return state
}

func (v *fakeVoice) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playCalls++
	v.ops = append(v.ops, "play")
	v.state = output.StatePlaying
	return nil
}

func (v *fakeVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops = append(v.ops, "stop")
	v.state = output.StateStopped
	v.processed = append(v.processed, v.pending...)
	v.pending = nil
	return nil
}

func (v *fakeVoice) Detach() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == output.StatePlaying {
		return output.ErrInvalidOperation
	}
	v.ops = append(v.ops, "detach")
	v.pending, v.processed = nil, nil
	v.queued = make(map[output.BufferID]bool)
	return nil
}

func (v *fakeVoice) SetGain(gain float32) {
	v.mu.Lock()
	v.gain = gain
	v.mu.Unlock()
}

func (v *fakeVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ops = append(v.ops, "close")
	v.closed = true
	return nil
}

// finish marks the n oldest pending buffers played
func (v *fakeVoice) finish(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n > len(v.pending) {
		n = len(v.pending)
	}
	v.processed = append(v.processed, v.pending[:n]...)
	v.pending = v.pending[n:]
	if len(v.pending) == 0 && v.state == output.StatePlaying {
		v.state = output.StateStopped
	}
}

func (v *fakeVoice) setState(state output.State) {
	v.mu.Lock()
	v.state = state
	v.mu.Unlock()
}

func (v *fakeVoice) snapshot() (attempts []audio.Format, submitted []audio.Frame, plays int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]audio.Format(nil), v.attempts...), append([]audio.Frame(nil), v.submitted...), v.playCalls
}

type fakeDevice struct {
	voice    *fakeVoice
	renderer string
	voiceErr error

	mu     sync.Mutex
	closed bool
}

func (d *fakeDevice) Name() string     { return "Fake Output" }
func (d *fakeDevice) Renderer() string { return d.renderer }

func (d *fakeDevice) NewVoice(buffers int) (output.Voice, error) {
	if d.voiceErr != nil {
		return nil, d.voiceErr
	}
	if d.voice == nil {
		d.voice = newFakeVoice(buffers)
	}
	return d.voice, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakeDriver struct {
	device *fakeDevice
	err    error
}

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) Open() (output.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.device, nil
}

// fakeSource produces a constant sample at a scripted speed
type fakeSource struct {
	mu sync.Mutex

	rate   uint32
	speed  float64
	value  int16
	frames int // frames returned per Mix, -1 for the full request

	refreshSpeed float64
	refreshes    int
	mixCalls     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{rate: 48000, speed: 1.0, value: 8192, frames: -1, refreshSpeed: 1.0}
}

func (s *fakeSource) SampleRate() uint32 { return s.rate }

func (s *fakeSource) CurrentSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *fakeSource) Mix(samples []int16, frames int, _ bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mixCalls++
	n := frames
	if s.frames >= 0 && s.frames < n {
		n = s.frames
	}
	for i := 0; i < n*audio.StereoChannels; i++ {
		samples[i] = s.value
	}
	return n
}

func (s *fakeSource) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	s.speed = s.refreshSpeed
}

func (s *fakeSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mixCalls
}

type fakeTiming struct {
	ticks uint64
	rate  uint32
}

func (t fakeTiming) TicksPerSecond() uint64 { return t.ticks }
func (t fakeTiming) DMASampleRate() uint32  { return t.rate }

// passStretcher returns its input unchanged and records control calls
type passStretcher struct {
	buf    []float32
	tempos []float64
	clears int
}

func (p *passStretcher) SetTempo(tempo float64) { p.tempos = append(p.tempos, tempo) }

func (p *passStretcher) Clear() {
	p.clears++
	p.buf = p.buf[:0]
}

func (p *passStretcher) Put(samples []float32, frames int) {
	p.buf = append(p.buf, samples[:frames*audio.StereoChannels]...)
}

func (p *passStretcher) Receive(out []float32, maxFrames int) int {
	n := len(p.buf) / audio.StereoChannels
	if n > maxFrames {
		n = maxFrames
	}
	copy(out, p.buf[:n*audio.StereoChannels])
	p.buf = p.buf[n*audio.StereoChannels:]
	return n
}

// loudDecoder writes the same level to all six channels
type loudDecoder struct {
	level  float32
	resets int
}

func (d *loudDecoder) Decode(_ []float32, frames int, out []float32) error {
	if frames < surround.MinFrames {
		return errors.New("short window")
	}
	for i := range out[:frames*audio.SurroundChannels] {
		out[i] = d.level
	}
	return nil
}

func (d *loudDecoder) Reset() { d.resets++ }
