package audio

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/simonhull/audiometa"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// sniffTagged recognises the compressed containers audiometa can read.
func sniffTagged(head []byte) (domain.Container, bool) {
	switch {
	case bytes.HasPrefix(head, []byte("fLaC")):
		return domain.ContainerFLAC, true
	case bytes.HasPrefix(head, []byte("ID3")):
		return domain.ContainerMP3, true
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// Bare MPEG audio frame sync.
		return domain.ContainerMP3, true
	case len(head) >= 12 && bytes.Equal(head[4:8], []byte("ftyp")):
		if bytes.Equal(head[8:12], []byte("M4B ")) {
			return domain.ContainerM4B, true
		}
		return domain.ContainerM4A, true
	}
	return "", false
}

// probeTagged reads stream properties through audiometa. Compressed payloads
// have no fixed frame size, so FrameSizeInBytes stays 0 and the stream spans
// the whole file. LengthInFrames counts decoded sample frames.
func probeTagged(ctx context.Context, path string, container domain.Container) (*domain.AudioDescription, error) {
	format, frames, err := readTaggedInfo(ctx, path, container)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //#nosec G304 -- probing user library files is the point
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: reopen", path)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: stat", path)
	}

	return &domain.AudioDescription{
		Stream:         domain.NewAudioStream(f, f, 0, info.Size()),
		Container:      container,
		Format:         format,
		LengthInFrames: frames,
	}, nil
}

func readTaggedInfo(ctx context.Context, path string, container domain.Container) (domain.AudioFormat, int64, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.AudioFormat{}, 0, apperrors.Canceled(ctxErr)
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return domain.AudioFormat{}, 0, apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: open", path)
		}
		return domain.AudioFormat{}, 0, apperrors.Wrapf(err, apperrors.CodeUnsupportedFormat, "%s: parse %s", path, container)
	}
	defer file.Close()

	rate := float64(file.Audio.SampleRate)
	format := domain.AudioFormat{
		Encoding:   encodingFor(container),
		SampleRate: rate,
		FrameRate:  rate,
		Channels:   file.Audio.Channels,
		BitDepth:   file.Audio.BitDepth,
	}

	var frames int64
	if rate > 0 && file.Audio.Duration > 0 {
		frames = int64(file.Audio.Duration.Seconds() * rate)
	}
	return format, frames, nil
}

func encodingFor(c domain.Container) domain.Encoding {
	switch c {
	case domain.ContainerFLAC:
		return domain.EncodingFLAC
	case domain.ContainerMP3:
		return domain.EncodingMP3
	default:
		return domain.EncodingAAC
	}
}
