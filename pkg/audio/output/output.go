// ABOUTME: Audio output interface definitions
// ABOUTME: Common interfaces, error codes and driver selection for playback backends
package output

import (
	"errors"
	"fmt"

	"github.com/harperreed/emustream/pkg/audio"
)

// MaxBuffers bounds the number of buffers a voice may own
const MaxBuffers = 32

// Device error codes. BufferData reports an unsupported format with ErrInvalidEnum.
var (
	ErrNoDevice         = errors.New("no playback device found")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidEnum      = errors.New("invalid enum")
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrOutOfMemory      = errors.New("out of memory")
)

// BufferID identifies one buffer owned by a voice
type BufferID int

// State is the playback state of a voice
type State int

const (
	StateInitial State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Driver opens playback devices for one backend
type Driver interface {
	// Name returns the backend name
	Name() string

	// Open opens the default playback device and its context
	Open() (Device, error)
}

// Device is an open playback device
type Device interface {
	// Name returns the device name
	Name() string

	// Renderer names the hardware and host API behind the device, as
	// reported by the backend, e.g. "SB X-Fi Audio (miniaudio)"
	Renderer() string

	// NewVoice creates a voice owning the given number of buffers
	NewVoice(buffers int) (Voice, error)

	// Close releases the device and its context
	Close() error
}

// Voice plays a queue of buffers
type Voice interface {
	// Buffers returns the handles of the voice's buffers
	Buffers() []BufferID

	// BufferData fills a buffer that is not queued
	BufferData(id BufferID, frame audio.Frame) error

	// Queue appends a buffer to the playback queue
	Queue(id BufferID) error

	// Unqueue removes n processed buffers from the head of the queue
	Unqueue(n int) ([]BufferID, error)

	// Queued returns the number of queued buffers, processed ones included
	Queued() int

	// Processed returns the number of queued buffers that finished playing
	Processed() int

	State() State
	Play() error
	Stop() error

	// Detach removes every buffer from the queue
	Detach() error

	SetGain(gain float32)

	// Close destroys the buffers and the voice
	Close() error
}

// Options configures a driver
type Options struct {
	// SampleRate used by backends that fix their format at open time (oto)
	SampleRate int

	// Channels and Encoding fixed at open time by oto
	Channels int
	Encoding audio.Encoding

	// Renderer reported by the null backend
	Renderer string

	// Formats the null backend refuses
	RejectFloat32  bool
	RejectSurround bool
}

// Backends lists the driver names accepted by NewDriver
var Backends = []string{"malgo", "oto", "portaudio", "null"}

// NewDriver returns the driver for a backend name
func NewDriver(name string, opts Options) (Driver, error) {
	if opts.SampleRate == 0 {
		opts.SampleRate = 48000
	}
	if opts.Channels == 0 {
		opts.Channels = audio.StereoChannels
	}

	switch name {
	case "malgo", "":
		return NewMalgo(), nil
	case "oto":
		return NewOto(opts), nil
	case "portaudio":
		return NewPortAudio(), nil
	case "null":
		return NewNull(opts), nil
	default:
		return nil, fmt.Errorf("unsupported audio backend: %s (supported: %v)", name, Backends)
	}
}

// rendererName joins a device name with the host API driving it
func rendererName(api, device string) string {
	if device == "" {
		return api
	}
	return fmt.Sprintf("%s (%s)", device, api)
}
