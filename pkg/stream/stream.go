// ABOUTME: Stream lifecycle: start, stop, volume, mute and wakeups
// ABOUTME: Owns the device resources and the playback goroutine of one session
package stream

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/harperreed/emustream/pkg/audio/output"
	"github.com/harperreed/emustream/pkg/audio/stretch"
	"github.com/harperreed/emustream/pkg/audio/surround"
)

// ErrAlreadyRunning is returned by Start on a started stream
var ErrAlreadyRunning = errors.New("stream already running")

// SampleSource is the emulated system's audio mixer
type SampleSource interface {
	// SampleRate returns the rate Mix produces samples at
	SampleRate() uint32

	// CurrentSpeed returns emulation speed relative to real time, or <= 0 if unknown
	CurrentSpeed() float64

	// Mix writes up to frames interleaved stereo frames into samples and
	// returns how many it wrote
	Mix(samples []int16, frames int, realtime bool) int
}

// Timing exposes the host timer model that paces rendering
type Timing interface {
	TicksPerSecond() uint64
	DMASampleRate() uint32
}

// Stretcher changes tempo without changing pitch
type Stretcher interface {
	SetTempo(tempo float64)
	Clear()
	Put(samples []float32, frames int)
	Receive(out []float32, maxFrames int) int
}

// SurroundDecoder expands stereo into 6 interleaved channels. Decode needs
// at least surround.MinFrames frames.
type SurroundDecoder interface {
	Decode(in []float32, frames int, out []float32) error
	Reset()
}

// Config configures a stream. Latency, DPL2Decoder and Volume are read at Start.
type Config struct {
	Driver output.Driver
	Source SampleSource

	// Timing paces rendering; nil renders MaxSamples per iteration
	Timing Timing

	// RequestRefresh asks the host to refresh its speed estimate
	RequestRefresh func()

	// OnAlert reports failures to open the playback device
	OnAlert func(error)

	// Latency is the ring size minus two
	Latency int

	// DPL2Decoder enables 5.1 output
	DPL2Decoder bool

	// DisableFloat32 starts the session with 16-bit output
	DisableFloat32 bool

	// Volume in 0-100
	Volume int

	NewStretcher func(channels, sampleRate int) Stretcher
	NewDecoder   func(sampleRate int) SurroundDecoder
}

// Stream plays one SampleSource on one playback device
type Stream struct {
	cfg Config
	ctl controls

	running atomic.Bool
	volume  atomic.Int32

	// mu serializes Start/Stop/Clear/SetVolume against the device handles
	mu     sync.Mutex
	device output.Device
	voice  output.Voice
	loop   *loop
	done   chan struct{}

	stats statsRecorder
}

// New creates a stopped stream
func New(cfg Config) *Stream {
	if cfg.NewStretcher == nil {
		cfg.NewStretcher = func(channels, sampleRate int) Stretcher {
			return stretch.New(channels, sampleRate)
		}
	}
	if cfg.NewDecoder == nil {
		cfg.NewDecoder = func(sampleRate int) SurroundDecoder {
			return surround.New(sampleRate)
		}
	}

	s := &Stream{cfg: cfg}
	s.ctl.event = NewEvent()
	s.volume.Store(int32(clampVolume(cfg.Volume)))
	return s
}

func clampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}

// Start opens the playback device and launches the playback goroutine
func (s *Stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return ErrAlreadyRunning
	}
	if s.cfg.Driver == nil || s.cfg.Source == nil {
		return fmt.Errorf("stream needs a driver and a sample source")
	}

	device, err := s.cfg.Driver.Open()
	if err != nil {
		err = fmt.Errorf("failed to open %s playback device: %w", s.cfg.Driver.Name(), err)
		s.alert(err)
		return err
	}

	voice, err := device.NewVoice(bufferCount(s.cfg.Latency))
	if err != nil {
		err = fmt.Errorf("failed to create voice: %w", err)
		s.alert(errors.Join(err, device.Close()))
		return err
	}
	voice.SetGain(float32(s.volume.Load()) / 100)

	caps := initialCapabilities(runtime.GOOS, device.Renderer(), !s.cfg.DisableFloat32, s.cfg.DPL2Decoder)
	id := uuid.New().String()

	s.stats.update(func(st *Stats) {
		*st = Stats{
			SessionID: id,
			Running:   true,
			Device:    device.Name(),
			Renderer:  device.Renderer(),
			Float32:   caps.Float32(),
			Surround:  caps.Surround(),
			Tempo:     1.0,
		}
	})

	s.ctl.event.Clear()
	s.ctl.clearRq.Store(false)
	s.device = device
	s.voice = voice
	s.loop = newLoop(&s.ctl, s.cfg, voice, caps, &s.stats)
	s.done = make(chan struct{})
	s.running.Store(true)

	log.Printf("Stream %s started on %s (%s), %d buffers, float32=%v surround=%v",
		id, device.Name(), device.Renderer(), len(voice.Buffers()), caps.Float32(), caps.Surround())

	go func(l *loop, done chan struct{}) {
		defer close(done)
		l.run(&s.running)
	}(s.loop, s.done)

	return nil
}

func (s *Stream) alert(err error) {
	log.Printf("Error: %v", err)
	if s.cfg.OnAlert != nil {
		s.cfg.OnAlert(err)
	}
}

// Stop ends the playback goroutine, waits for it and releases the device
func (s *Stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return nil
	}

	s.running.Store(false)
	s.ctl.event.Set()
	<-s.done

	s.loop.stretcher.Clear()
	s.loop.decoder.Reset()

	var errs []error
	if err := s.voice.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping playback: %w", err))
	}
	if err := s.voice.Detach(); err != nil {
		errs = append(errs, fmt.Errorf("detaching buffers: %w", err))
	}
	if err := s.voice.Close(); err != nil {
		errs = append(errs, fmt.Errorf("deleting voice: %w", err))
	}
	if err := s.device.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing device: %w", err))
	}

	s.device, s.voice, s.loop, s.done = nil, nil, nil, nil
	s.stats.update(func(st *Stats) { st.Running = false })

	log.Printf("Stream stopped")
	return errors.Join(errs...)
}

// SetVolume sets the output level in 0-100
func (s *Stream) SetVolume(level int) {
	level = clampVolume(level)
	s.volume.Store(int32(level))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.voice != nil {
		s.voice.SetGain(float32(level) / 100)
	}
}

// Volume returns the output level in 0-100
func (s *Stream) Volume() int {
	return int(s.volume.Load())
}

// Update wakes the playback goroutine to look for work
func (s *Stream) Update() {
	s.ctl.event.Set()
}

// Clear mutes or unmutes. Muting drops buffered audio and stretch history.
func (s *Stream) Clear(mute bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctl.playMu.Lock()
	defer s.ctl.playMu.Unlock()

	s.ctl.muted.Store(mute)
	if mute {
		s.ctl.clearRq.Store(true)
		if s.voice != nil {
			checkError("stopping playback", s.voice.Stop())
		}
	} else if s.voice != nil {
		checkError("resuming playback", s.voice.Play())
	}
	s.ctl.event.Set()
}

// Muted reports whether the stream is muted
func (s *Stream) Muted() bool {
	return s.ctl.muted.Load()
}

// Running reports whether the playback goroutine is live
func (s *Stream) Running() bool {
	return s.running.Load()
}

// Stats returns a snapshot of the current or last session
func (s *Stream) Stats() Stats {
	st := s.stats.snapshot()
	st.Volume = s.Volume()
	st.Muted = s.Muted()
	return st
}
