package audio

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

type aiffComm struct {
	format domain.AudioFormat
	frames int64
}

// parseAIFF reads the COMM and SSND chunks of an AIFF or AIFF-C file.
// The chunks may appear in either order.
func parseAIFF(r *chunkReader, file io.ReaderAt, aifc bool) (*domain.AudioDescription, error) {
	be := binary.BigEndian

	var (
		comm       *aiffComm
		dataOffset int64 = -1
		dataLength int64
	)

	for off := int64(12); off+8 <= r.size; {
		hdr, err := r.read(off, 8, "chunk header")
		if err != nil {
			return nil, err
		}
		id := string(hdr[0:4])
		chunkSize := int64(be.Uint32(hdr[4:8]))
		body := off + 8

		switch id {
		case "COMM":
			comm, err = readComm(r, body, chunkSize, aifc)
			if err != nil {
				return nil, err
			}
		case "SSND":
			ssnd, err := r.read(body, 8, "SSND header")
			if err != nil {
				return nil, err
			}
			dataOffset = body + 8 + int64(be.Uint32(ssnd[0:4]))
			dataLength = min(chunkSize-8-int64(be.Uint32(ssnd[0:4])), r.size-dataOffset)
			if dataLength < 0 {
				return nil, corrupt(r.path, off, "SSND offset beyond chunk")
			}
		}

		off = body + chunkSize + chunkSize%2
	}

	if comm == nil {
		return nil, corrupt(r.path, 12, "missing COMM chunk")
	}
	if dataOffset < 0 {
		return nil, corrupt(r.path, 12, "missing SSND chunk")
	}

	container := domain.ContainerAIFF
	if aifc {
		container = domain.ContainerAIFC
	}
	closer, _ := file.(io.Closer)

	return &domain.AudioDescription{
		Stream:           domain.NewAudioStream(file, closer, dataOffset, dataLength),
		Container:        container,
		Format:           comm.format,
		LengthInFrames:   comm.frames,
		FrameSizeInBytes: frameSizeFor(comm.format),
	}, nil
}

func readComm(r *chunkReader, body, chunkSize int64, aifc bool) (*aiffComm, error) {
	be := binary.BigEndian

	want := 18
	if aifc {
		want = 22
	}
	if chunkSize < int64(want) {
		return nil, corrupt(r.path, body-8, "COMM chunk too short")
	}
	buf, err := r.read(body, want, "COMM chunk")
	if err != nil {
		return nil, err
	}

	channels := int(be.Uint16(buf[0:2]))
	frames := int64(be.Uint32(buf[2:6]))
	bits := int(be.Uint16(buf[6:8]))
	rate := extendedToFloat(buf[8:18])

	if channels == 0 || bits == 0 || rate <= 0 {
		return nil, corrupt(r.path, body, "COMM chunk has zero channels, bits or rate")
	}

	format := domain.AudioFormat{
		Encoding:   domain.EncodingPCMSigned,
		SampleRate: rate,
		FrameRate:  rate,
		Channels:   channels,
		BitDepth:   bits,
		BigEndian:  true,
	}

	if aifc {
		switch compression := string(buf[18:22]); compression {
		case "NONE", "twos":
		case "sowt":
			format.BigEndian = false
		case "fl32", "FL32", "fl64", "FL64":
			format.Encoding = domain.EncodingPCMFloat
		case "ulaw", "ULAW":
			format.Encoding = domain.EncodingULaw
			format.BitDepth = 8
		case "alaw", "ALAW":
			format.Encoding = domain.EncodingALaw
			format.BitDepth = 8
		default:
			return nil, apperrors.UnsupportedFormatf("%s: unsupported AIFF-C compression %q", r.path, compression)
		}
	}

	return &aiffComm{format: format, frames: frames}, nil
}

func frameSizeFor(f domain.AudioFormat) int {
	return pcmFrameSize(f.Channels, f.BitDepth)
}

// extendedToFloat decodes an IEEE 754 80-bit extended precision number,
// the encoding AIFF uses for its sample rate.
func extendedToFloat(b []byte) float64 {
	be := binary.BigEndian

	signExp := be.Uint16(b[0:2])
	mantissa := be.Uint64(b[2:10])
	if signExp&0x7FFF == 0 && mantissa == 0 {
		return 0
	}
	exp := int(signExp&0x7FFF) - 16383 - 63
	v := math.Ldexp(float64(mantissa), exp)
	if signExp&0x8000 != 0 {
		v = -v
	}
	return v
}
