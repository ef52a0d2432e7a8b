package audio

import (
	"encoding/binary"
	"io"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// WAVE format tags.
const (
	waveFormatPCM        = 0x0001
	waveFormatIEEEFloat  = 0x0003
	waveFormatALaw       = 0x0006
	waveFormatMuLaw      = 0x0007
	waveFormatExtensible = 0xFFFE
)

// parseWAVE walks the RIFF chunks after the 12-byte "RIFF....WAVE" header.
// The "fmt " chunk must precede "data".
func parseWAVE(r *chunkReader, file io.ReaderAt) (*domain.AudioDescription, error) {
	le := binary.LittleEndian

	var (
		format    domain.AudioFormat
		frameSize int
		haveFmt   bool
	)

	for off := int64(12); off+8 <= r.size; {
		hdr, err := r.read(off, 8, "chunk header")
		if err != nil {
			return nil, err
		}
		id := string(hdr[0:4])
		chunkSize := int64(le.Uint32(hdr[4:8]))
		body := off + 8

		switch id {
		case "fmt ":
			if chunkSize < 16 {
				return nil, corrupt(r.path, off, "fmt chunk shorter than 16 bytes")
			}
			buf, err := r.read(body, int(min(chunkSize, 40)), "fmt chunk")
			if err != nil {
				return nil, err
			}
			format, frameSize, err = waveFormat(buf, r.path)
			if err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, corrupt(r.path, off, "data chunk before fmt chunk")
			}
			// Truncated files keep whatever payload is present.
			length := min(chunkSize, r.size-body)
			closer, _ := file.(io.Closer)
			return &domain.AudioDescription{
				Stream:           domain.NewAudioStream(file, closer, body, length),
				Container:        domain.ContainerWAVE,
				Format:           format,
				LengthInFrames:   length / int64(frameSize),
				FrameSizeInBytes: frameSize,
			}, nil
		}

		// Chunks are word aligned.
		off = body + chunkSize + chunkSize%2
	}

	if !haveFmt {
		return nil, corrupt(r.path, 12, "missing fmt chunk")
	}
	return nil, corrupt(r.path, 12, "missing data chunk")
}

func waveFormat(buf []byte, path string) (domain.AudioFormat, int, error) {
	le := binary.LittleEndian

	tag := le.Uint16(buf[0:2])
	channels := int(le.Uint16(buf[2:4]))
	rate := float64(le.Uint32(buf[4:8]))
	blockAlign := int(le.Uint16(buf[12:14]))
	bits := int(le.Uint16(buf[14:16]))

	if tag == waveFormatExtensible {
		if len(buf) < 40 {
			return domain.AudioFormat{}, 0, corrupt(path, 12, "extensible fmt chunk too short")
		}
		// The first two bytes of the SubFormat GUID carry the real tag.
		tag = le.Uint16(buf[24:26])
	}

	if channels == 0 || bits == 0 || rate == 0 {
		return domain.AudioFormat{}, 0, corrupt(path, 12, "fmt chunk has zero channels, bits or rate")
	}

	var enc domain.Encoding
	switch tag {
	case waveFormatPCM:
		enc = domain.EncodingPCMSigned
		if bits <= 8 {
			enc = domain.EncodingPCMUnsigned
		}
	case waveFormatIEEEFloat:
		enc = domain.EncodingPCMFloat
	case waveFormatALaw:
		enc = domain.EncodingALaw
	case waveFormatMuLaw:
		enc = domain.EncodingULaw
	default:
		return domain.AudioFormat{}, 0, apperrors.UnsupportedFormatf("%s: unsupported WAVE format tag %#04x", path, tag)
	}

	frameSize := blockAlign
	if frameSize == 0 {
		frameSize = pcmFrameSize(channels, bits)
	}

	return domain.AudioFormat{
		Encoding:   enc,
		SampleRate: rate,
		FrameRate:  rate,
		Channels:   channels,
		BitDepth:   bits,
	}, frameSize, nil
}
