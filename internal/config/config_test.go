// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, env expansion and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emustream.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Audio.Backend != "malgo" {
		t.Errorf("expected malgo backend, got %s", cfg.Audio.Backend)
	}
	if *cfg.Audio.Volume != 100 {
		t.Errorf("expected volume 100, got %d", *cfg.Audio.Volume)
	}
	if cfg.Host.TicksPerSecond != 486000000 || cfg.Host.DMASampleRate != 32000 {
		t.Errorf("unexpected host timing %+v", cfg.Host)
	}
	if cfg.Host.UpdateInterval() != 5*time.Millisecond {
		t.Errorf("expected 5ms update interval, got %v", cfg.Host.UpdateInterval())
	}
	if cfg.Log.File != "emustream.log" {
		t.Errorf("expected default log file, got %s", cfg.Log.File)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("EMUSTREAM_BACKEND", "null")

	path := writeConfig(t, `
audio:
  backend: ${EMUSTREAM_BACKEND}
  latency: 4
  dpl2_decoder: true
  volume: 0
source:
  path: music.flac
  speed: 1.5
remote:
  addr: ":8928"
  advertise: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Audio.Backend != "null" {
		t.Errorf("expected env-expanded backend null, got %s", cfg.Audio.Backend)
	}
	if cfg.Audio.Latency != 4 || !cfg.Audio.DPL2Decoder {
		t.Errorf("unexpected audio config %+v", cfg.Audio)
	}
	if *cfg.Audio.Volume != 0 {
		t.Errorf("expected explicit volume 0 kept, got %d", *cfg.Audio.Volume)
	}
	if cfg.Source.Path != "music.flac" || cfg.Source.Speed != 1.5 {
		t.Errorf("unexpected source config %+v", cfg.Source)
	}
	if cfg.Remote.Addr != ":8928" || !cfg.Remote.Advertise || cfg.Remote.Name != "emustream" {
		t.Errorf("unexpected remote config %+v", cfg.Remote)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "audio: [\n"},
		{"latency too high", "audio:\n  latency: 31\n"},
		{"negative latency", "audio:\n  latency: -1\n"},
		{"volume too high", "audio:\n  volume: 101\n"},
		{"negative speed", "source:\n  speed: -2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
