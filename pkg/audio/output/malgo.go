// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Drives a miniaudio playback device from the voice buffer queue
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/harperreed/emustream/pkg/audio"
)

// Malgo driver using malgo/miniaudio library
type Malgo struct{}

// NewMalgo creates a new Malgo driver
func NewMalgo() Driver {
	return &Malgo{}
}

func (m *Malgo) Name() string { return "malgo" }

// Open initializes a miniaudio context and checks for a playback device
func (m *Malgo) Open() (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil || len(devices) == 0 {
		freeContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate playback devices: %v: %w", err, ErrNoDevice)
		}
		return nil, ErrNoDevice
	}

	name := devices[0].Name()
	for _, d := range devices {
		if d.IsDefault != 0 {
			name = d.Name()
			break
		}
	}

	log.Printf("Found playback device %s (malgo)", name)

	return &malgoDevice{ctx: ctx, name: name}, nil
}

type malgoDevice struct {
	ctx  *malgo.AllocatedContext
	name string
}

func (d *malgoDevice) Name() string     { return d.name }
func (d *malgoDevice) Renderer() string { return rendererName("miniaudio", d.name) }

func (d *malgoDevice) NewVoice(buffers int) (Voice, error) {
	return newQueueVoice(buffers, &malgoSink{ctx: d.ctx})
}

// Close releases the miniaudio context
func (d *malgoDevice) Close() error {
	if d.ctx == nil {
		return nil
	}
	freeContext(d.ctx)
	d.ctx = nil
	return nil
}

func freeContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		log.Printf("Warning: malgo context uninit error: %v", err)
	}
	ctx.Free()
}

// malgoSink owns one miniaudio device in the voice's current format
type malgoSink struct {
	ctx *malgo.AllocatedContext

	mu     sync.Mutex
	device *malgo.Device
	format audio.Format
}

// Configure reinitializes the device when the format changes
func (s *malgoSink) Configure(format audio.Format, pull func([]byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device != nil && s.format == format {
		return nil
	}

	if s.device != nil {
		log.Printf("Format change detected (%s -> %s), reinitializing device", s.format, format)
		s.closeDevice()
	}

	var sampleFormat malgo.FormatType
	switch format.Encoding {
	case audio.EncodingFloat32:
		sampleFormat = malgo.FormatF32
	case audio.EncodingInt16:
		sampleFormat = malgo.FormatS16
	default:
		return fmt.Errorf("unsupported encoding: %s", format.Encoding)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PerformanceProfile = malgo.LowLatency
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			pull(output)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	s.device = device
	s.format = format

	log.Printf("Audio output initialized: %s (malgo/%s)", format, formatName(sampleFormat))
	return nil
}

func (s *malgoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDevice()
	return nil
}

// closeDevice stops and uninitializes the device (must hold s.mu)
func (s *malgoSink) closeDevice() {
	if s.device == nil {
		return
	}
	if err := s.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	s.device.Uninit()
	s.device = nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
