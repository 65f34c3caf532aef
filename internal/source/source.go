// ABOUTME: Program material for the emulated host mixer
// ABOUTME: Opens looping stereo 16-bit sources from files or a test tone
package source

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Source provides interleaved stereo 16-bit PCM. File sources loop on EOF.
type Source interface {
	// Read fills samples and returns how many samples were written
	Read(samples []int16) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Title describes the material
	Title() string
	// Close closes the audio source
	Close() error
}

// New opens the file at path, or returns a test tone when path is empty
func New(path string, toneHz float64, toneRate int) (Source, error) {
	if path == "" {
		return NewTone(toneHz, toneRate), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	var (
		src Source
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		src, err = NewMP3(path)
	case ".flac":
		src, err = NewFLAC(path)
	case ".opus", ".ogg":
		src, err = NewOpus(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .opus)", ext)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded %s (sample rate: %d Hz)", src.Title(), src.SampleRate())
	return src, nil
}

func titleOf(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// toStereo writes frames of an interleaved multichannel block into dst as
// stereo, duplicating mono and dropping channels past the first two
func toStereo(dst []int16, src []int16, channels int) int {
	frames := len(src) / channels
	if frames > len(dst)/2 {
		frames = len(dst) / 2
	}
	for i := 0; i < frames; i++ {
		left := src[i*channels]
		right := left
		if channels > 1 {
			right = src[i*channels+1]
		}
		dst[i*2] = left
		dst[i*2+1] = right
	}
	return frames * 2
}
