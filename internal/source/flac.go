// ABOUTME: FLAC file source
// ABOUTME: Decodes with mewkiz/flac, converts to 16-bit stereo and loops at end of file
package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
)

// FLAC reads from a FLAC file
type FLAC struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string

	// decoded frames not yet returned
	pending []int16
}

// NewFLAC creates a new FLAC audio source
func NewFLAC(filePath string) (*FLAC, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &FLAC{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      titleOf(filePath),
	}, nil
}

func (s *FLAC) Read(samples []int16) (int, error) {
	written := 0
	looped := false

	for written < len(samples)-1 {
		if len(s.pending) > 0 {
			n := copy(samples[written:], s.pending)
			n -= n % 2
			written += n
			s.pending = s.pending[n:]
			continue
		}

		frame, err := s.stream.ParseNext()
		if errors.Is(err, io.EOF) {
			if looped {
				// Empty stream
				return written, io.EOF
			}
			looped = true
			if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
				return written, fmt.Errorf("failed to seek to start: %w", seekErr)
			}
			newStream, decErr := flac.New(s.file)
			if decErr != nil {
				return written, fmt.Errorf("failed to create new stream: %w", decErr)
			}
			s.stream = newStream
			continue
		}
		if err != nil {
			return written, err
		}
		looped = false

		blockSize := int(frame.BlockSize)
		interleaved := make([]int16, blockSize*s.channels)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < s.channels; ch++ {
				interleaved[i*s.channels+ch] = s.to16(frame.Subframes[ch].Samples[i])
			}
		}

		stereo := make([]int16, blockSize*2)
		s.pending = stereo[:toStereo(stereo, interleaved, s.channels)]
	}

	return written, nil
}

// to16 scales a sample of the stream's bit depth to 16 bits
func (s *FLAC) to16(sample int32) int16 {
	shift := s.bitDepth - 16
	if shift > 0 {
		return int16(sample >> shift)
	}
	return int16(sample << -shift)
}

func (s *FLAC) SampleRate() int { return s.sampleRate }
func (s *FLAC) Title() string   { return s.title }
func (s *FLAC) Close() error    { return s.file.Close() }
