// ABOUTME: Playback loop body
// ABOUTME: Reclaims buffers, mixes, stretches, decodes, packs and queues one buffer per iteration
package stream

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/harperreed/emustream/pkg/audio"
	"github.com/harperreed/emustream/pkg/audio/output"
	"github.com/harperreed/emustream/pkg/audio/surround"
)

const (
	// tempoFloor: slower speeds are boot-time silence and are not stretched
	tempoFloor = 0.10

	// tempoDiscontinuity: faster speeds are a time jump and drop stretch history
	tempoDiscontinuity = 10.0
)

// controls is the state shared between the caller and the loop goroutine
type controls struct {
	event   *Event
	muted   atomic.Bool
	clearRq atomic.Bool

	// playMu orders mute changes against the loop's underrun resume
	playMu sync.Mutex
}

// loop is one session's playback loop. Everything in it except ctl and
// stats is owned by the loop goroutine.
type loop struct {
	ctl     *controls
	source  SampleSource
	timing  Timing
	refresh func()

	voice     output.Voice
	ring      *ring
	caps      *Capabilities
	stretcher Stretcher
	decoder   SurroundDecoder

	sampleRate int
	tempo      float64
	stats      *statsRecorder

	mixBuf    []int16
	floatBuf  []float32
	stretched []float32
	decoded   []float32
	packed    []byte
}

func newLoop(ctl *controls, cfg Config, voice output.Voice, caps *Capabilities, stats *statsRecorder) *loop {
	buffers := voice.Buffers()
	sampleRate := int(cfg.Source.SampleRate())
	maxFrames := MaxSamples * len(buffers)

	l := &loop{
		ctl:        ctl,
		source:     cfg.Source,
		timing:     cfg.Timing,
		refresh:    cfg.RequestRefresh,
		voice:      voice,
		ring:       newRing(buffers),
		caps:       caps,
		stretcher:  cfg.NewStretcher(audio.StereoChannels, sampleRate),
		decoder:    cfg.NewDecoder(sampleRate),
		sampleRate: sampleRate,
		tempo:      1.0,
		stats:      stats,
		mixBuf:     make([]int16, MaxSamples*audio.StereoChannels),
		floatBuf:   make([]float32, MaxSamples*audio.StereoChannels),
		stretched:  make([]float32, maxFrames*audio.StereoChannels),
		decoded:    make([]float32, maxFrames*audio.SurroundChannels),
		packed:     make([]byte, maxFrames*audio.SurroundChannels*audio.EncodingFloat32.BytesPerSample()),
	}
	if l.refresh == nil {
		l.refresh = func() {}
	}
	return l
}

// checkError logs a failed device call
func checkError(desc string, err error) error {
	if err != nil {
		log.Printf("Error %s: %v", desc, err)
	}
	return err
}

// quota returns the frames to mix this iteration
func (l *loop) quota() int {
	if l.timing == nil {
		return MaxSamples
	}
	return RenderQuota(l.timing.TicksPerSecond(), l.timing.DMASampleRate())
}

// run iterates until running is cleared
func (l *loop) run(running *atomic.Bool) {
	for running.Load() {
		l.step()
	}
}

// step runs one loop iteration
func (l *loop) step() {
	l.stats.update(func(s *Stats) { s.Iterations++ })
	defer l.recordRing()

	processed := l.voice.Processed()
	if l.ring.Full(processed) {
		l.ctl.event.Wait()
		return
	}

	if processed > 0 {
		ids, err := l.voice.Unqueue(processed)
		if checkError("unqueuing buffers", err) == nil {
			l.ring.Reclaim(len(ids))
		}
	}

	if l.ctl.clearRq.Swap(false) {
		l.stretcher.Clear()
		l.decoder.Reset()
	}

	quota := l.quota()
	frames := l.source.Mix(l.mixBuf, quota, false)
	if frames < 0 {
		frames = 0
	} else if frames > quota {
		frames = quota
	}

	if l.ctl.muted.Load() {
		// Keep draining the host while muted
		l.ctl.event.Wait()
		return
	}

	floats := audio.Int16sToFloats(l.floatBuf, l.mixBuf[:frames*audio.StereoChannels])
	l.stretcher.Put(floats, frames)

	l.adjustTempo()

	received := l.stretcher.Receive(l.stretched, MaxSamples*l.ring.Size())

	minFrames := 0
	if l.caps.Surround() {
		minFrames = surround.MinFrames
	}
	if received <= minFrames {
		l.stats.update(func(s *Stats) { s.Skipped++ })
		if frames == 0 {
			// Nothing left to mix until the host produces more
			l.ctl.event.Wait()
		}
		return
	}

	id := l.ring.Next()
	if !l.submit(id, received) {
		return
	}

	if checkError("queuing buffers", l.voice.Queue(id)) != nil {
		return
	}
	l.ring.Advance()
	l.stats.update(func(s *Stats) { s.Submitted++ })

	if l.voice.State() != output.StatePlaying {
		// Underrun, the voice ran out of queued audio
		l.resume()
	}
}

// resume restarts a stopped voice unless the stream is muted
func (l *loop) resume() {
	l.ctl.playMu.Lock()
	defer l.ctl.playMu.Unlock()

	if l.ctl.muted.Load() {
		return
	}
	l.stats.update(func(s *Stats) { s.Underruns++ })
	checkError("occurred resuming playback", l.voice.Play())
}

// adjustTempo follows emulation speed
func (l *loop) adjustTempo() {
	rate := l.source.CurrentSpeed()
	if rate <= 0 {
		l.refresh()
		rate = l.source.CurrentSpeed()
	}

	if rate > tempoFloor {
		l.stretcher.SetTempo(rate)
		l.tempo = rate
		if rate > tempoDiscontinuity {
			l.stretcher.Clear()
		}
	}
}

// submit packs the stretched frames and loads them into buffer id. It
// reports whether the buffer holds fresh audio and may be queued.
func (l *loop) submit(id output.BufferID, frames int) bool {
	encoding := audio.EncodingInt16
	if l.caps.Float32() {
		encoding = audio.EncodingFloat32
	}

	if l.caps.Surround() {
		out := l.decoded[:frames*audio.SurroundChannels]
		if err := l.decoder.Decode(l.stretched[:frames*audio.StereoChannels], frames, out); err != nil {
			checkError("decoding surround", err)
			return false
		}
		for i := 0; i < frames; i++ {
			out[i*audio.SurroundChannels+audio.SubwooferChannel] = 0
		}

		format := audio.Format{SampleRate: l.sampleRate, Channels: audio.SurroundChannels, Encoding: encoding}
		err := l.bufferData(id, format, out, "buffering data")
		if errors.Is(err, output.ErrInvalidEnum) && l.caps.DowngradeSurround() {
			log.Printf("Warning: unable to set 5.1 surround mode, falling back to stereo")
			l.stats.update(func(s *Stats) { s.Downgrades++ })
		}
		return err == nil
	}

	format := audio.Format{SampleRate: l.sampleRate, Channels: audio.StereoChannels, Encoding: encoding}
	if encoding == audio.EncodingFloat32 {
		err := l.bufferData(id, format, l.stretched[:frames*audio.StereoChannels], "buffering float32 data")
		if errors.Is(err, output.ErrInvalidEnum) && l.caps.DowngradeFloat() {
			log.Printf("Warning: float32 output not supported, falling back to 16-bit")
			l.stats.update(func(s *Stats) { s.Downgrades++ })
		}
		return err == nil
	}

	return l.bufferData(id, format, l.stretched[:frames*audio.StereoChannels], "buffering data") == nil
}

func (l *loop) bufferData(id output.BufferID, format audio.Format, samples []float32, desc string) error {
	frame := audio.PackFrame(format, samples, l.packed)
	if err := checkError(desc, l.voice.BufferData(id, frame)); err != nil {
		l.stats.update(func(s *Stats) { s.Rejected++ })
		return err
	}
	l.stats.update(func(s *Stats) { s.Format = format })
	return nil
}

// recordRing publishes ring occupancy and negotiated state
func (l *loop) recordRing() {
	queued, free, processed := l.ring.Counts(l.voice.Processed())
	l.stats.update(func(s *Stats) {
		s.Buffers = l.ring.Size()
		s.Queued, s.Free, s.Processed = queued, free, processed
		s.Float32 = l.caps.Float32()
		s.Surround = l.caps.Surround()
		s.Tempo = l.tempo
	})
}
