package domain

import (
	"errors"
	"io"
	"sync"
	"time"
)

// Encoding identifies how samples are encoded inside the audio payload.
type Encoding string

// Encodings recognised by the probe.
const (
	EncodingPCMSigned   Encoding = "PCM_SIGNED"
	EncodingPCMUnsigned Encoding = "PCM_UNSIGNED"
	EncodingPCMFloat    Encoding = "PCM_FLOAT"
	EncodingULaw        Encoding = "ULAW"
	EncodingALaw        Encoding = "ALAW"
	EncodingFLAC        Encoding = "FLAC"
	EncodingMP3         Encoding = "MP3"
	EncodingAAC         Encoding = "AAC"
)

// Container identifies the file-level audio container.
type Container string

// Containers recognised by the probe.
const (
	ContainerWAVE Container = "WAVE"
	ContainerAIFF Container = "AIFF"
	ContainerAIFC Container = "AIFF-C"
	ContainerAU   Container = "AU"
	ContainerFLAC Container = "FLAC"
	ContainerMP3  Container = "MP3"
	ContainerM4A  Container = "M4A"
	ContainerM4B  Container = "M4B"
)

// AudioFormat describes the sample layout of an audio payload.
// Zero values mean the container did not specify the field.
type AudioFormat struct {
	Encoding   Encoding `json:"encoding"`
	SampleRate float64  `json:"sample_rate"`
	FrameRate  float64  `json:"frame_rate"`
	Channels   int      `json:"channels"`
	BitDepth   int      `json:"bit_depth"`
	BigEndian  bool     `json:"big_endian"`
}

// AudioDescription is the probe result for one file.
//
// Stream is an open handle on the audio payload. Whoever holds the
// description owns the handle and must call Close before discarding it.
type AudioDescription struct {
	Stream           *AudioStream `json:"-"`
	Container        Container    `json:"container"`
	Format           AudioFormat  `json:"format"`
	LengthInFrames   int64        `json:"length_in_frames"`
	FrameSizeInBytes int          `json:"frame_size_in_bytes"`
}

// Duration returns the playing time implied by the frame count, or 0 when unknown.
func (d *AudioDescription) Duration() time.Duration {
	if d.LengthInFrames <= 0 || d.Format.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(d.LengthInFrames) / d.Format.FrameRate * float64(time.Second))
}

// Close releases the stream handle. Safe on a nil receiver or a description without a stream.
func (d *AudioDescription) Close() error {
	if d == nil || d.Stream == nil {
		return nil
	}
	return d.Stream.Close()
}

// ErrStreamClosed is returned by Read after the stream has been closed.
var ErrStreamClosed = errors.New("audio stream closed")

// AudioStream is a read handle positioned at the first byte of an audio payload.
// It reads at most Length bytes and owns the underlying file.
type AudioStream struct {
	section *io.SectionReader
	closer  io.Closer
	mu      sync.Mutex
	closed  bool
	err     error
}

// NewAudioStream returns a stream over length bytes of src starting at offset.
// Closing the stream closes closer.
func NewAudioStream(src io.ReaderAt, closer io.Closer, offset, length int64) *AudioStream {
	return &AudioStream{
		section: io.NewSectionReader(src, offset, length),
		closer:  closer,
	}
}

// Read implements io.Reader.
func (s *AudioStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrStreamClosed
	}
	return s.section.Read(p)
}

// Length returns the payload length in bytes.
func (s *AudioStream) Length() int64 {
	return s.section.Size()
}

// Close releases the underlying file. Subsequent calls return the first result.
func (s *AudioStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.err
	}
	s.closed = true
	if s.closer != nil {
		s.err = s.closer.Close()
	}
	return s.err
}

// Closed reports whether Close has been called.
func (s *AudioStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
