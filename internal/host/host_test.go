// ABOUTME: Tests for the emulated host
// ABOUTME: Covers production at speed, FIFO overflow, mixing and speed measurement
package host

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

// counterSource emits frame numbers on both channels
type counterSource struct {
	rate int
	next int16
}

func (s *counterSource) Read(samples []int16) (int, error) {
	frames := len(samples) / 2
	for i := 0; i < frames; i++ {
		samples[i*2] = s.next
		samples[i*2+1] = s.next
		s.next++
	}
	return frames * 2, nil
}

func (s *counterSource) SampleRate() int { return s.rate }
func (s *counterSource) Title() string   { return "counter" }
func (s *counterSource) Close() error    { return nil }

func newTestHost(speed float64, fifo time.Duration) (*Host, *time.Time) {
	clock := time.Unix(1000, 0)
	h := New(Config{
		Source:         &counterSource{rate: 48000},
		Speed:          speed,
		TicksPerSecond: 486000000,
		DMASampleRate:  32000,
		FIFO:           fifo,
	})
	h.now = func() time.Time { return clock }
	return h, &clock
}

func TestProduceFollowsSpeed(t *testing.T) {
	tests := []struct {
		speed    float64
		expected int
	}{
		{1.0, 480},
		{2.0, 960},
		{0.5, 240},
	}

	for _, tt := range tests {
		h, _ := newTestHost(tt.speed, time.Second)
		h.mu.Lock()
		h.produce(10 * time.Millisecond)
		h.mu.Unlock()

		if got := h.Buffered(); got != tt.expected {
			t.Errorf("speed %v: expected %d frames, got %d", tt.speed, tt.expected, got)
		}
	}
}

func TestProduceCarriesFractions(t *testing.T) {
	h, _ := newTestHost(1.0, time.Second)

	h.mu.Lock()
	for i := 0; i < 10; i++ {
		h.produce(100 * time.Microsecond) // 4.8 frames
	}
	h.mu.Unlock()

	// 48 frames, less one if rounding leaves the last fraction in the carry
	if got := h.Buffered(); got < 47 || got > 48 {
		t.Errorf("expected 48 frames, got %d", got)
	}
}

func TestFIFODropsOldest(t *testing.T) {
	h, _ := newTestHost(1.0, 10*time.Millisecond)

	h.mu.Lock()
	h.produce(20 * time.Millisecond)
	h.mu.Unlock()

	if got := h.Buffered(); got != 480 {
		t.Fatalf("expected FIFO capped at 480 frames, got %d", got)
	}
	if got := h.Dropped(); got != 480 {
		t.Errorf("expected 480 dropped frames, got %d", got)
	}

	samples := make([]int16, 2)
	h.Mix(samples, 1, false)
	if samples[0] != 480 {
		t.Errorf("expected oldest surviving frame 480, got %d", samples[0])
	}
}

func TestMix(t *testing.T) {
	h, _ := newTestHost(1.0, time.Second)
	h.mu.Lock()
	h.produce(time.Millisecond) // 48 frames
	h.mu.Unlock()

	samples := make([]int16, 64)
	if n := h.Mix(samples, 32, false); n != 32 {
		t.Fatalf("expected 32 frames, got %d", n)
	}
	if samples[0] != 0 || samples[62] != 31 {
		t.Errorf("unexpected frames %d..%d", samples[0], samples[62])
	}

	if n := h.Mix(samples, 32, false); n != 16 {
		t.Fatalf("expected remaining 16 frames, got %d", n)
	}
	if samples[0] != 32 {
		t.Errorf("expected frame 32 next, got %d", samples[0])
	}

	if n := h.Mix(samples, 32, false); n != 0 {
		t.Errorf("expected empty FIFO, got %d", n)
	}
}

func TestMixRespectsBuffer(t *testing.T) {
	h, _ := newTestHost(1.0, time.Second)
	h.mu.Lock()
	h.produce(time.Millisecond)
	h.mu.Unlock()

	samples := make([]int16, 8)
	if n := h.Mix(samples, 256, false); n != 4 {
		t.Errorf("expected 4 frames to fit, got %d", n)
	}
}

func TestSpeedMeasurement(t *testing.T) {
	h, clock := newTestHost(1.5, time.Second)

	if h.CurrentSpeed() != 0 {
		t.Fatalf("expected unknown speed before measuring, got %v", h.CurrentSpeed())
	}

	h.mu.Lock()
	h.lastTick = *clock
	h.windowStart = *clock
	h.mu.Unlock()

	for i := 0; i < 30; i++ {
		*clock = clock.Add(10 * time.Millisecond)
		h.tick()
	}

	if got := h.CurrentSpeed(); math.Abs(got-1.5) > 0.01 {
		t.Errorf("expected measured speed 1.5, got %v", got)
	}
}

func TestRequestRefresh(t *testing.T) {
	h, clock := newTestHost(2.0, time.Second)

	h.mu.Lock()
	h.lastTick = *clock
	h.windowStart = *clock
	h.mu.Unlock()

	*clock = clock.Add(20 * time.Millisecond)
	h.tick()
	if h.CurrentSpeed() != 0 {
		t.Fatalf("expected no measurement inside the window, got %v", h.CurrentSpeed())
	}

	h.RequestRefresh()
	if got := h.CurrentSpeed(); math.Abs(got-2.0) > 0.01 {
		t.Errorf("expected refreshed speed 2.0, got %v", got)
	}
}

func TestSetSpeed(t *testing.T) {
	h, _ := newTestHost(1.0, time.Second)
	h.SetSpeed(3)
	h.SetSpeed(-1)
	if h.Speed() != 3 {
		t.Errorf("expected speed 3, got %v", h.Speed())
	}
}

func TestTiming(t *testing.T) {
	h, _ := newTestHost(1.0, time.Second)
	if h.TicksPerSecond() != 486000000 || h.DMASampleRate() != 32000 || h.SampleRate() != 48000 {
		t.Errorf("unexpected timing %d/%d/%d", h.TicksPerSecond(), h.DMASampleRate(), h.SampleRate())
	}
}

func TestRunNotifies(t *testing.T) {
	var notified atomic.Int32
	h := New(Config{
		Source:         &counterSource{rate: 48000},
		UpdateInterval: time.Millisecond,
		Notify:         func() { notified.Add(1) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for notified.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if notified.Load() < 5 {
		t.Errorf("expected at least 5 notifications, got %d", notified.Load())
	}
	if h.Buffered() == 0 {
		t.Error("expected audio produced while running")
	}
}
