// ABOUTME: End-to-end test of the host feeding a stream on the null backend
// ABOUTME: Checks that mixing keeps pace with the device at default settings
package host

import (
	"context"
	"testing"
	"time"

	"github.com/harperreed/emustream/internal/config"
	"github.com/harperreed/emustream/internal/source"
	"github.com/harperreed/emustream/pkg/audio/output"
	"github.com/harperreed/emustream/pkg/stream"
)

func TestPipelineKeepsPaceWithDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("runs in real time")
	}

	cfg := config.Default()
	rate := cfg.Source.SampleRate

	var s *stream.Stream
	h := New(Config{
		Source:         source.NewTone(cfg.Source.ToneHz, rate),
		Speed:          cfg.Source.Speed,
		TicksPerSecond: cfg.Host.TicksPerSecond,
		DMASampleRate:  cfg.Host.DMASampleRate,
		UpdateInterval: cfg.Host.UpdateInterval(),
		FIFO:           time.Duration(cfg.Host.FIFOMs) * time.Millisecond,
		Notify:         func() { s.Update() },
	})

	s = stream.New(stream.Config{
		Driver:         output.NewNull(output.Options{SampleRate: rate}),
		Source:         h,
		Timing:         h,
		RequestRefresh: h.RequestRefresh,
		Latency:        cfg.Audio.Latency,
		Volume:         *cfg.Audio.Volume,
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()

	start := time.Now()
	time.Sleep(1500 * time.Millisecond)
	elapsed := time.Since(start)

	cancel()
	<-done
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	needed := float64(rate) * elapsed.Seconds()
	mixed := float64(h.Mixed())
	stats := s.Stats()
	t.Logf("mixed=%.0f needed=%.0f submitted=%d skipped=%d underruns=%d dropped=%d",
		mixed, needed, stats.Submitted, stats.Skipped, stats.Underruns, h.Dropped())

	if mixed < 0.8*needed {
		t.Errorf("mixed %.0f frames, device needed about %.0f", mixed, needed)
	}
	if dropped := float64(h.Dropped()); dropped > 0.1*needed {
		t.Errorf("host dropped %.0f frames", dropped)
	}
	if stats.Submitted == 0 {
		t.Error("expected buffers submitted")
	}
}
