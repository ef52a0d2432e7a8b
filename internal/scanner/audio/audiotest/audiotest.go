// Package audiotest builds minimal audio container files for tests.
package audiotest

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"os"
	"path/filepath"
	"testing"
)

// PCM describes the payload of a generated file.
type PCM struct {
	SampleRate uint32
	Channels   uint16
	BitDepth   uint16
	Frames     uint32
}

// CDStereo is 16-bit stereo at 44.1kHz: four bytes per frame.
func CDStereo(frames uint32) PCM {
	return PCM{SampleRate: 44100, Channels: 2, BitDepth: 16, Frames: frames}
}

// FrameSize returns the bytes per frame.
func (p PCM) FrameSize() int {
	return int(p.Channels) * int((p.BitDepth+7)/8)
}

func (p PCM) payload() []byte {
	return make([]byte, int(p.Frames)*p.FrameSize())
}

// WAV returns a RIFF/WAVE file with a PCM fmt chunk, a LIST chunk before
// the data chunk, and silent samples.
func WAV(p PCM) []byte {
	le := binary.LittleEndian
	data := p.payload()

	var fmtChunk bytes.Buffer
	_ = binary.Write(&fmtChunk, le, uint16(1))
	_ = binary.Write(&fmtChunk, le, p.Channels)
	_ = binary.Write(&fmtChunk, le, p.SampleRate)
	_ = binary.Write(&fmtChunk, le, p.SampleRate*uint32(p.FrameSize())) //nolint:gosec // test fixture
	_ = binary.Write(&fmtChunk, le, uint16(p.FrameSize()))              //nolint:gosec // test fixture
	_ = binary.Write(&fmtChunk, le, p.BitDepth)

	var body bytes.Buffer
	body.WriteString("WAVE")
	writeChunk(&body, le, "fmt ", fmtChunk.Bytes())
	writeChunk(&body, le, "LIST", []byte("INFOISFT\x03\x00\x00\x00go\x00\x00"))
	writeChunk(&body, le, "data", data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, le, uint32(body.Len())) //nolint:gosec // test fixture
	out.Write(body.Bytes())
	return out.Bytes()
}

// AIFF returns a big-endian AIFF file with SSND before COMM.
func AIFF(p PCM) []byte {
	be := binary.BigEndian

	var comm bytes.Buffer
	_ = binary.Write(&comm, be, p.Channels)
	_ = binary.Write(&comm, be, p.Frames)
	_ = binary.Write(&comm, be, p.BitDepth)
	comm.Write(Extended(p.SampleRate))

	var ssnd bytes.Buffer
	_ = binary.Write(&ssnd, be, uint32(0))
	_ = binary.Write(&ssnd, be, uint32(0))
	ssnd.Write(p.payload())

	var body bytes.Buffer
	body.WriteString("AIFF")
	writeChunk(&body, be, "SSND", ssnd.Bytes())
	writeChunk(&body, be, "COMM", comm.Bytes())

	var out bytes.Buffer
	out.WriteString("FORM")
	_ = binary.Write(&out, be, uint32(body.Len())) //nolint:gosec // test fixture
	out.Write(body.Bytes())
	return out.Bytes()
}

// AU returns a Sun AU file with linear PCM samples.
func AU(p PCM) []byte {
	be := binary.BigEndian
	data := p.payload()

	var out bytes.Buffer
	out.WriteString(".snd")
	_ = binary.Write(&out, be, uint32(24))
	_ = binary.Write(&out, be, uint32(len(data))) //nolint:gosec // test fixture
	_ = binary.Write(&out, be, uint32(p.BitDepth/8)+1)
	_ = binary.Write(&out, be, p.SampleRate)
	_ = binary.Write(&out, be, uint32(p.Channels))
	out.Write(data)
	return out.Bytes()
}

// Extended encodes an integer sample rate as an 80-bit IEEE extended float.
func Extended(rate uint32) []byte {
	out := make([]byte, 10)
	if rate == 0 {
		return out
	}
	e := bits.Len32(rate) - 1
	binary.BigEndian.PutUint16(out[0:2], uint16(16383+e))        //nolint:gosec // e < 32
	binary.BigEndian.PutUint64(out[2:10], uint64(rate)<<(63-e)) //nolint:gosec // e < 32
	return out
}

// WriteFile writes data to dir/name, creating parent directories, and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeChunk(buf *bytes.Buffer, order binary.ByteOrder, id string, data []byte) {
	buf.WriteString(id)
	_ = binary.Write(buf, order, uint32(len(data))) //nolint:gosec // test fixture
	buf.Write(data)
	if len(data)%2 == 1 {
		buf.WriteByte(0)
	}
}
