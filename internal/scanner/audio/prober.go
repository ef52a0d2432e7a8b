// Package audio probes audio containers for their sample format and frame count
// without decoding the payload.
package audio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
)

// Prober reads an audio container header.
type Prober interface {
	// Probe opens path and describes its audio payload. On success the
	// returned description holds an open stream positioned at the payload;
	// the caller owns it and must close it.
	Probe(ctx context.Context, path string) (*domain.AudioDescription, error)
}

// sniffLen is enough for every magic number checked below.
const sniffLen = 12

// NativeProber parses PCM containers (WAVE, AIFF, AU) itself and hands
// compressed containers (FLAC, MP3, M4A/M4B) to audiometa.
type NativeProber struct {
	logger *slog.Logger
}

// NewNativeProber creates a new prober.
func NewNativeProber(logger *slog.Logger) *NativeProber {
	return &NativeProber{logger: logger}
}

// Probe implements Prober.
func (p *NativeProber) Probe(ctx context.Context, path string) (*domain.AudioDescription, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Canceled(err)
	}

	f, err := os.Open(path) //#nosec G304 -- probing user library files is the point
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: open", path)
	}

	desc, container, err := p.probePCM(f, path)
	if desc != nil {
		return desc, nil
	}
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	if container == "" {
		return nil, apperrors.UnsupportedFormatf("%s: not a recognised audio container", path)
	}
	p.logger.Debug("delegating compressed container", "path", path, "container", container)
	return probeTagged(ctx, path, container)
}

// probePCM parses the containers handled natively. A nil description with a
// nil error means the file is not one of them; container is then set when the
// magic number matches a compressed format. On success the stream owns f.
func (p *NativeProber) probePCM(f *os.File, path string) (*domain.AudioDescription, domain.Container, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, "", apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: stat", path)
	}

	head := make([]byte, sniffLen)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return nil, "", apperrors.Wrapf(err, apperrors.CodeIOFailure, "%s: read header", path)
	}
	head = head[:n]

	r := &chunkReader{src: f, size: info.Size(), path: path}

	var desc *domain.AudioDescription
	switch {
	case isRIFFWave(head):
		desc, err = parseWAVE(r, f)
	case isAIFF(head):
		desc, err = parseAIFF(r, f, bytes.Equal(head[8:12], []byte("AIFC")))
	case bytes.HasPrefix(head, auMagic):
		desc, err = parseAU(r, f)
	default:
		container, _ := sniffTagged(head)
		return nil, container, nil
	}
	return desc, "", err
}

func isRIFFWave(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE"))
}

func isAIFF(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[0:4], []byte("FORM")) &&
		(bytes.Equal(head[8:12], []byte("AIFF")) || bytes.Equal(head[8:12], []byte("AIFC")))
}
