// ABOUTME: Ogg Opus file source
// ABOUTME: Decodes with libopusfile via hraban/opus and loops at end of file
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"
)

// opusRate is the decode rate of every Ogg Opus stream
const opusRate = 48000

// Opus reads from an Ogg Opus file
type Opus struct {
	file     *os.File
	stream   *opus.Stream
	channels int
	title    string
	pcm      []int16
}

// NewOpus creates a new Ogg Opus audio source
func NewOpus(filePath string) (*Opus, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}

	s := &Opus{file: f, title: titleOf(filePath)}
	if err := s.open(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// open starts decoding from the current file offset
func (s *Opus) open() error {
	r := bufio.NewReader(s.file)
	channels, err := opusChannels(r)
	if err != nil {
		return err
	}

	stream, err := opus.NewStream(r)
	if err != nil {
		return fmt.Errorf("failed to decode Opus: %w", err)
	}

	s.stream = stream
	s.channels = channels
	return nil
}

// opusChannels reads the channel count from the OpusHead packet
func opusChannels(r *bufio.Reader) (int, error) {
	head, _ := r.Peek(128)
	i := bytes.Index(head, []byte("OpusHead"))
	if i < 0 || i+9 >= len(head) {
		return 0, fmt.Errorf("not an Ogg Opus stream")
	}
	channels := int(head[i+9])
	if channels == 0 {
		return 0, fmt.Errorf("Ogg Opus stream has no channels")
	}
	return channels, nil
}

func (s *Opus) Read(samples []int16) (int, error) {
	frames := len(samples) / 2
	need := frames * s.channels
	if cap(s.pcm) < need {
		s.pcm = make([]int16, need)
	}

	n, err := s.stream.Read(s.pcm[:need])
	if errors.Is(err, io.EOF) {
		if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
			return 0, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		s.stream.Close()
		if openErr := s.open(); openErr != nil {
			return 0, fmt.Errorf("failed to reopen stream: %w", openErr)
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	// n is samples per channel
	return toStereo(samples, s.pcm[:n*s.channels], s.channels), nil
}

func (s *Opus) SampleRate() int { return opusRate }
func (s *Opus) Title() string   { return s.title }

func (s *Opus) Close() error {
	return errors.Join(s.stream.Close(), s.file.Close())
}
