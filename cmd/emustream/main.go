// ABOUTME: Entry point for the emustream player
// ABOUTME: Wires config, program source, emulated host, audio stream, remote control and TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/emustream/internal/config"
	"github.com/harperreed/emustream/internal/host"
	"github.com/harperreed/emustream/internal/remote"
	"github.com/harperreed/emustream/internal/source"
	"github.com/harperreed/emustream/internal/ui"
	"github.com/harperreed/emustream/internal/version"
	"github.com/harperreed/emustream/pkg/audio"
	"github.com/harperreed/emustream/pkg/audio/output"
	"github.com/harperreed/emustream/pkg/stream"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	backend     = flag.String("backend", "", "Audio backend: malgo, oto, portaudio or null")
	latency     = flag.Int("latency", 0, "Extra device buffers beyond the minimum of two")
	dpl2        = flag.Bool("dpl2", false, "Decode to 5.1 surround")
	noFloat     = flag.Bool("no-float", false, "Start with 16-bit output")
	volume      = flag.Int("volume", 100, "Initial volume (0-100)")
	file        = flag.String("file", "", "Audio file to play (default: test tone)")
	speed       = flag.Float64("speed", 1.0, "Emulation speed relative to real time")
	remoteAddr  = flag.String("remote", "", "Listen address for the websocket remote (e.g. :8928)")
	advertise   = flag.Bool("advertise", false, "Advertise the remote via mDNS")
	logFile     = flag.String("log-file", "", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(cfg.Log.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	log.Printf("Starting %s (backend: %s)", version.String(), cfg.Audio.Backend)

	src, err := source.New(cfg.Source.Path, cfg.Source.ToneHz, cfg.Source.SampleRate)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer func() { _ = src.Close() }()

	drv, err := output.NewDriver(cfg.Audio.Backend, output.Options{
		SampleRate:     src.SampleRate(),
		Channels:       audio.StereoChannels,
		Encoding:       audio.EncodingInt16,
		RejectFloat32:  cfg.Audio.RejectFloat32,
		RejectSurround: cfg.Audio.RejectSurround,
	})
	if err != nil {
		log.Fatalf("Failed to create driver: %v", err)
	}

	var s *stream.Stream
	h := host.New(host.Config{
		Source:         src,
		Speed:          cfg.Source.Speed,
		TicksPerSecond: cfg.Host.TicksPerSecond,
		DMASampleRate:  cfg.Host.DMASampleRate,
		UpdateInterval: cfg.Host.UpdateInterval(),
		FIFO:           time.Duration(cfg.Host.FIFOMs) * time.Millisecond,
		Notify:         func() { s.Update() },
	})

	s = stream.New(stream.Config{
		Driver:         drv,
		Source:         h,
		Timing:         h,
		RequestRefresh: h.RequestRefresh,
		OnAlert: func(err error) {
			log.Printf("Audio device error: %v", err)
			if useTUI {
				fmt.Fprintf(os.Stderr, "Audio device error: %v\n", err)
			}
		},
		Latency:        cfg.Audio.Latency,
		DPL2Decoder:    cfg.Audio.DPL2Decoder,
		DisableFloat32: cfg.Audio.DisableFloat32,
		Volume:         *cfg.Audio.Volume,
	})

	if err := s.Start(); err != nil {
		log.Fatalf("Failed to start stream: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostDone := make(chan struct{})
	go func() {
		defer close(hostDone)
		h.Run(ctx)
	}()

	remoteDone := make(chan struct{})
	if cfg.Remote.Addr != "" {
		srv := remote.New(remote.Config{
			Addr:          cfg.Remote.Addr,
			Name:          cfg.Remote.Name,
			Advertise:     cfg.Remote.Advertise,
			StatsInterval: cfg.Remote.StatsInterval(),
		}, s, h)
		go func() {
			defer close(remoteDone)
			if err := srv.Run(ctx); err != nil {
				log.Printf("Remote server error: %v", err)
			}
		}()
	} else {
		close(remoteDone)
	}

	// TUI setup
	var tuiProg *tea.Program
	var controls *ui.Controls

	if useTUI {
		controls = ui.NewControls()
		tuiProg = ui.Run(controls, s.Volume(), h.Speed())
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		go handleControls(ctx, s, h, controls)
		go statusUpdateLoop(ctx, s, h, src.Title(), drv.Name(), tuiProg)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for quit signal from TUI or OS
	if controls != nil {
		select {
		case <-controls.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
			tuiProg.Quit()
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	cancel()
	<-hostDone
	<-remoteDone

	if err := s.Stop(); err != nil {
		log.Printf("Error stopping stream: %v", err)
	}

	stats := s.Stats()
	log.Printf("Stream stopped: %d submitted, %d skipped, %d underruns, %d downgrades",
		stats.Submitted, stats.Skipped, stats.Underruns, stats.Downgrades)
}

// loadConfig reads the config file, if any, and applies flags that were set
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "backend":
			cfg.Audio.Backend = *backend
		case "latency":
			cfg.Audio.Latency = *latency
		case "dpl2":
			cfg.Audio.DPL2Decoder = *dpl2
		case "no-float":
			cfg.Audio.DisableFloat32 = *noFloat
		case "volume":
			v := *volume
			cfg.Audio.Volume = &v
		case "file":
			cfg.Source.Path = *file
		case "speed":
			cfg.Source.Speed = *speed
		case "remote":
			cfg.Remote.Addr = *remoteAddr
		case "advertise":
			cfg.Remote.Advertise = *advertise
		case "log-file":
			cfg.Log.File = *logFile
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// handleControls applies TUI actions to the stream and host
func handleControls(ctx context.Context, s *stream.Stream, h *host.Host, controls *ui.Controls) {
	for {
		select {
		case msg := <-controls.Changes:
			if msg.Volume != nil {
				log.Printf("Volume change: %d%%", *msg.Volume)
				s.SetVolume(*msg.Volume)
			}
			if msg.Muted != nil {
				log.Printf("Mute: %v", *msg.Muted)
				s.Clear(*msg.Muted)
			}
			if msg.Speed > 0 {
				log.Printf("Speed change: %.2fx", msg.Speed)
				h.SetSpeed(msg.Speed)
			}
		case <-ctx.Done():
			return
		}
	}
}

// statusUpdateLoop periodically updates the TUI with stream statistics
func statusUpdateLoop(ctx context.Context, s *stream.Stream, h *host.Host, title, backend string, prog *tea.Program) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			prog.Send(ui.StatusMsg{
				Stats:    s.Stats(),
				Title:    title,
				Backend:  backend,
				Speed:    h.Speed(),
				Buffered: h.Buffered(),
				Dropped:  h.Dropped(),
			})
		case <-ctx.Done():
			return
		}
	}
}
