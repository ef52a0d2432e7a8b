package audio

import (
	"encoding/binary"
	"io"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

var auMagic = []byte(".snd")

// auUnknownSize marks a stream whose data length was not known when written.
const auUnknownSize = 0xFFFFFFFF

// parseAU reads a Sun/NeXT AU header: six big-endian words.
func parseAU(r *chunkReader, file io.ReaderAt) (*domain.AudioDescription, error) {
	be := binary.BigEndian

	hdr, err := r.read(0, 24, "AU header")
	if err != nil {
		return nil, err
	}

	dataOffset := int64(be.Uint32(hdr[4:8]))
	dataSize := be.Uint32(hdr[8:12])
	encoding := be.Uint32(hdr[12:16])
	rate := float64(be.Uint32(hdr[16:20]))
	channels := int(be.Uint32(hdr[20:24]))

	if dataOffset < 24 || dataOffset > r.size {
		return nil, corrupt(r.path, 4, "data offset outside file")
	}
	if channels == 0 || rate == 0 {
		return nil, corrupt(r.path, 16, "zero channels or rate")
	}

	format := domain.AudioFormat{
		SampleRate: rate,
		FrameRate:  rate,
		Channels:   channels,
		BigEndian:  true,
	}
	switch encoding {
	case 1:
		format.Encoding, format.BitDepth = domain.EncodingULaw, 8
	case 2, 3, 4, 5:
		format.Encoding, format.BitDepth = domain.EncodingPCMSigned, int(encoding-1)*8
	case 6:
		format.Encoding, format.BitDepth = domain.EncodingPCMFloat, 32
	case 7:
		format.Encoding, format.BitDepth = domain.EncodingPCMFloat, 64
	case 27:
		format.Encoding, format.BitDepth = domain.EncodingALaw, 8
	default:
		return nil, apperrors.UnsupportedFormatf("%s: unsupported AU encoding %d", r.path, encoding)
	}

	frameSize := frameSizeFor(format)
	length := r.size - dataOffset
	var frames int64
	if dataSize != auUnknownSize {
		length = min(int64(dataSize), length)
		frames = length / int64(frameSize)
	}

	closer, _ := file.(io.Closer)
	return &domain.AudioDescription{
		Stream:           domain.NewAudioStream(file, closer, dataOffset, length),
		Container:        domain.ContainerAU,
		Format:           format,
		LengthInFrames:   frames,
		FrameSizeInBytes: frameSize,
	}, nil
}
