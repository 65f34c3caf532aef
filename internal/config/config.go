// ABOUTME: YAML configuration for emustream
// ABOUTME: Loads the config file with ${ENV} expansion and fills defaults
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Audio  AudioConfig  `yaml:"audio"`
	Source SourceConfig `yaml:"source"`
	Host   HostConfig   `yaml:"host"`
	Remote RemoteConfig `yaml:"remote"`
	Log    LogConfig    `yaml:"log"`
}

type AudioConfig struct {
	Backend        string `yaml:"backend"`
	Latency        int    `yaml:"latency"`
	DPL2Decoder    bool   `yaml:"dpl2_decoder"`
	Volume         *int   `yaml:"volume"`
	DisableFloat32 bool   `yaml:"disable_float32"`

	// Null backend only
	RejectFloat32  bool `yaml:"reject_float32"`
	RejectSurround bool `yaml:"reject_surround"`
}

type SourceConfig struct {
	Path       string  `yaml:"path"`
	ToneHz     float64 `yaml:"tone_hz"`
	SampleRate int     `yaml:"sample_rate"`
	Speed      float64 `yaml:"speed"`
}

type HostConfig struct {
	TicksPerSecond uint64 `yaml:"ticks_per_second"`
	DMASampleRate  uint32 `yaml:"dma_sample_rate"`
	UpdateMs       int    `yaml:"update_ms"`
	FIFOMs         int    `yaml:"fifo_ms"`
}

type RemoteConfig struct {
	Addr      string `yaml:"addr"`
	Advertise bool   `yaml:"advertise"`
	Name      string `yaml:"name"`
	StatsMs   int    `yaml:"stats_ms"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used without a config file
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Audio.Backend == "" {
		c.Audio.Backend = "malgo"
	}
	if c.Audio.Volume == nil {
		volume := 100
		c.Audio.Volume = &volume
	}
	if c.Source.ToneHz == 0 {
		c.Source.ToneHz = 440
	}
	if c.Source.SampleRate == 0 {
		c.Source.SampleRate = 48000
	}
	if c.Source.Speed == 0 {
		c.Source.Speed = 1.0
	}
	if c.Host.TicksPerSecond == 0 {
		c.Host.TicksPerSecond = 486000000
	}
	if c.Host.DMASampleRate == 0 {
		c.Host.DMASampleRate = 32000
	}
	if c.Host.UpdateMs == 0 {
		c.Host.UpdateMs = 5
	}
	if c.Host.FIFOMs == 0 {
		c.Host.FIFOMs = 200
	}
	if c.Remote.Name == "" {
		c.Remote.Name = "emustream"
	}
	if c.Remote.StatsMs == 0 {
		c.Remote.StatsMs = 500
	}
	if c.Log.File == "" {
		c.Log.File = "emustream.log"
	}
}

// Validate rejects values the stream cannot run with
func (c *Config) Validate() error {
	if c.Audio.Latency < 0 || c.Audio.Latency > 30 {
		return fmt.Errorf("audio.latency must be 0-30, got %d", c.Audio.Latency)
	}
	if v := *c.Audio.Volume; v < 0 || v > 100 {
		return fmt.Errorf("audio.volume must be 0-100, got %d", v)
	}
	if c.Source.Speed < 0 {
		return fmt.Errorf("source.speed must not be negative, got %v", c.Source.Speed)
	}
	if c.Host.UpdateMs < 0 || c.Host.FIFOMs < 0 || c.Remote.StatsMs < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// UpdateInterval returns how often the host wakes the stream
func (h HostConfig) UpdateInterval() time.Duration {
	return time.Duration(h.UpdateMs) * time.Millisecond
}

// StatsInterval returns how often remote clients receive stats
func (r RemoteConfig) StatsInterval() time.Duration {
	return time.Duration(r.StatsMs) * time.Millisecond
}
