// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays the voice buffer queue through a single process-wide oto context
package output

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/harperreed/emustream/pkg/audio"
)

// oto allows one context per process; it is shared by every Open
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto driver using oto library. The context format is fixed at first open,
// so buffers in any other format are refused.
type Oto struct {
	format audio.Format
}

// NewOto creates a new Oto driver
func NewOto(opts Options) Driver {
	return &Oto{
		format: audio.Format{
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			Encoding:   opts.Encoding,
		},
	}
}

func (o *Oto) Name() string { return "oto" }

// Open creates (or resumes) the shared oto context
func (o *Oto) Open() (Device, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoFormat != o.format {
			log.Printf("Warning: format change detected (%s -> %s) but oto doesn't support reinitialization. Continuing with existing context.",
				otoFormat, o.format)
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return &otoDevice{format: otoFormat}, nil
	}

	sampleFormat := oto.FormatSignedInt16LE
	if o.format.Encoding == audio.EncodingFloat32 {
		sampleFormat = oto.FormatFloat32LE
	}

	op := &oto.NewContextOptions{
		SampleRate:   o.format.SampleRate,
		ChannelCount: o.format.Channels,
		Format:       sampleFormat,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoFormat = o.format

	log.Printf("Audio output initialized: %s (oto)", o.format)

	return &otoDevice{format: o.format}, nil
}

type otoDevice struct {
	format audio.Format
}

func (d *otoDevice) Name() string     { return "Default Output" }
// Renderer reports the platform API; oto does not expose device names
func (d *otoDevice) Renderer() string { return rendererName(otoAPI(runtime.GOOS), "") }

// otoAPI names the host API oto drives on goos
func otoAPI(goos string) string {
	switch goos {
	case "windows":
		return "oto/WASAPI"
	case "darwin", "ios":
		return "oto/AudioToolbox"
	case "android":
		return "oto/AAudio"
	case "js":
		return "oto/WebAudio"
	default:
		return "oto/ALSA"
	}
}

func (d *otoDevice) NewVoice(buffers int) (Voice, error) {
	return newQueueVoice(buffers, &otoSink{format: d.format})
}

// Close suspends the shared context; it cannot be destroyed
func (d *otoDevice) Close() error {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		return nil
	}
	if err := otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}

// otoSink owns a persistent player reading from the voice
type otoSink struct {
	format audio.Format

	mu     sync.Mutex
	player *oto.Player
}

// pullReader adapts the voice pull callback to io.Reader
type pullReader func([]byte)

func (r pullReader) Read(p []byte) (int, error) {
	r(p)
	return len(p), nil
}

func (s *otoSink) Configure(format audio.Format, pull func([]byte)) error {
	if format != s.format {
		return fmt.Errorf("oto context is %s", s.format)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != nil {
		return nil
	}

	otoMu.Lock()
	ctx := otoCtx
	otoMu.Unlock()
	if ctx == nil {
		return fmt.Errorf("oto context not initialized")
	}

	s.player = ctx.NewPlayer(pullReader(pull))
	s.player.Play()
	return nil
}

func (s *otoSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return nil
	}
	err := s.player.Close()
	s.player = nil
	return err
}
