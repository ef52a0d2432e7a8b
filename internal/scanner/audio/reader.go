package audio

import (
	"io"

	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// chunkReader reads header fields with bounds checks against the file size.
type chunkReader struct {
	src  io.ReaderAt
	path string
	size int64
}

// read returns n bytes at off. Reads past the end of the file mean the
// header lies about its layout and are reported as an unsupported format.
func (r *chunkReader) read(off int64, n int, what string) ([]byte, error) {
	if off < 0 || n < 0 || off+int64(n) > r.size {
		return nil, corrupt(r.path, off, what+" extends beyond end of file")
	}
	buf := make([]byte, n)
	got, err := r.src.ReadAt(buf, off)
	if got < n {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: read %s at offset %d", r.path, what, off)
	}
	return buf, nil
}

func corrupt(path string, off int64, reason string) error {
	return apperrors.UnsupportedFormatf("%s: corrupt header at offset %d: %s", path, off, reason)
}

// pcmFrameSize is the byte size of one frame of integer or float samples.
func pcmFrameSize(channels, bits int) int {
	return channels * ((bits + 7) / 8)
}
