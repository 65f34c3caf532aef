//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using PortAudio callbacks
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/harperreed/emustream/pkg/audio"
)

// PortAudio driver
type PortAudio struct{}

// NewPortAudio creates a new PortAudio driver
func NewPortAudio() Driver {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

// Open initializes PortAudio and looks up the default output device
func (p *PortAudio) Open() (Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	info, err := portaudio.DefaultOutputDevice()
	if err != nil || info == nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("default output device: %v: %w", err, ErrNoDevice)
	}

	log.Printf("Found playback device %s (portaudio)", info.Name)

	return &portAudioDevice{info: info}, nil
}

type portAudioDevice struct {
	info *portaudio.DeviceInfo
}

func (d *portAudioDevice) Name() string { return d.info.Name }

func (d *portAudioDevice) Renderer() string {
	api := "portaudio"
	if d.info.HostApi != nil {
		api = d.info.HostApi.Name
	}
	return rendererName(api, d.info.Name)
}

func (d *portAudioDevice) NewVoice(buffers int) (Voice, error) {
	return newQueueVoice(buffers, &portAudioSink{info: d.info})
}

func (d *portAudioDevice) Close() error {
	return portaudio.Terminate()
}

// portAudioSink runs one output stream in the voice's format
type portAudioSink struct {
	info *portaudio.DeviceInfo

	mu      sync.Mutex
	stream  *portaudio.Stream
	format  audio.Format
	scratch []byte
}

func (s *portAudioSink) Configure(format audio.Format, pull func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil && s.format == format {
		return nil
	}
	if format.Channels > s.info.MaxOutputChannels {
		return fmt.Errorf("device supports %d output channels, wanted %d", s.info.MaxOutputChannels, format.Channels)
	}
	s.closeStream()

	var callback interface{}
	switch format.Encoding {
	case audio.EncodingFloat32:
		callback = func(out []float32) {
			buf := s.fill(len(out)*4, pull)
			for i := range out {
				out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
			}
		}
	default:
		callback = func(out []int16) {
			buf := s.fill(len(out)*2, pull)
			for i := range out {
				out[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
			}
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), 0, callback)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}

	s.stream = stream
	s.format = format

	log.Printf("Audio output initialized: %s (portaudio)", format)
	return nil
}

// fill pulls n bytes into the reusable scratch buffer
func (s *portAudioSink) fill(n int, pull func([]byte)) []byte {
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	buf := s.scratch[:n]
	pull(buf)
	return buf
}

func (s *portAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeStream()
	return nil
}

// closeStream must hold s.mu
func (s *portAudioSink) closeStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Stop(); err != nil {
		log.Printf("Warning: stream stop error: %v", err)
	}
	if err := s.stream.Close(); err != nil {
		log.Printf("Warning: stream close error: %v", err)
	}
	s.stream = nil
}
