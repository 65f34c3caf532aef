// ABOUTME: Headless output backend paced by a wall-clock ticker
// ABOUTME: Consumes queued audio at the configured rate without touching hardware
package output

import (
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/emustream/pkg/audio"
)

const nullTick = 10 * time.Millisecond

// Null is a headless driver. It can be told to refuse float or surround
// formats to exercise format negotiation without real hardware.
type Null struct {
	opts Options
}

// NewNull creates a headless driver
func NewNull(opts Options) Driver {
	if opts.Renderer == "" {
		opts.Renderer = "null"
	}
	return &Null{opts: opts}
}

func (n *Null) Name() string { return "null" }

func (n *Null) Open() (Device, error) {
	return &nullDevice{opts: n.opts}, nil
}

type nullDevice struct {
	opts Options
}

func (d *nullDevice) Name() string     { return "Null Output" }
func (d *nullDevice) Renderer() string { return d.opts.Renderer }

func (d *nullDevice) NewVoice(buffers int) (Voice, error) {
	return newQueueVoice(buffers, &nullSink{opts: d.opts})
}

func (d *nullDevice) Close() error { return nil }

// nullSink drains the voice in nullTick slices
type nullSink struct {
	opts Options

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (s *nullSink) Configure(format audio.Format, pull func([]byte)) error {
	if s.opts.RejectFloat32 && format.Encoding == audio.EncodingFloat32 {
		return fmt.Errorf("null output refuses %s", format)
	}
	if s.opts.RejectSurround && format.Surround() {
		return fmt.Errorf("null output refuses %s", format)
	}
	if format.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", format.SampleRate)
	}

	s.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	chunk := make([]byte, format.SampleRate*int(nullTick/time.Millisecond)/1000*format.FrameSize())
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(nullTick)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pull(chunk)
			case <-stop:
				return
			}
		}
	}()

	return nil
}

func (s *nullSink) Close() error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
