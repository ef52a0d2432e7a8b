package scanner

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
	"github.com/listenupapp/bookpeer/internal/scanner/audio"
	"github.com/listenupapp/bookpeer/internal/scanner/audio/audiotest"
)

type staticOwner struct {
	err   error
	owner domain.BookOwner
	calls int
}

func (s *staticOwner) Resolve(context.Context) (domain.BookOwner, error) {
	s.calls++
	return s.owner, s.err
}

func localOwner(t *testing.T) *staticOwner {
	t.Helper()
	owner, err := domain.NewBookOwner(netip.MustParseAddr("127.0.0.1"), 5005)
	require.NoError(t, err)
	return &staticOwner{owner: owner}
}

// recordingProber wraps a prober and remembers every stream it handed out.
type recordingProber struct {
	next    audio.Prober
	hook    func(path string)
	mu      sync.Mutex
	paths   []string
	streams []*domain.AudioStream
}

func (p *recordingProber) Probe(ctx context.Context, path string) (*domain.AudioDescription, error) {
	if p.hook != nil {
		p.hook(path)
	}
	desc, err := p.next.Probe(ctx, path)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	if desc != nil && desc.Stream != nil {
		p.streams = append(p.streams, desc.Stream)
	}
	return desc, err
}

func newRecordingProber() *recordingProber {
	return &recordingProber{next: audio.NewNativeProber(discardLogger())}
}

func writeWAV(t *testing.T, root, name string) string {
	t.Helper()
	return audiotest.WriteFile(t, root, name, audiotest.WAV(audiotest.CDStereo(441)))
}

func discover(t *testing.T, root string, opts Options) (*domain.Catalog, error) {
	t.Helper()
	finder := NewFinder(discardLogger(), audio.NewNativeProber(discardLogger()), localOwner(t))
	catalog, err := finder.Discover(context.Background(), root, ".wav", opts)
	if catalog != nil {
		t.Cleanup(func() { _ = catalog.Close() })
	}
	return catalog, err
}

func titles(c *domain.Catalog) []string {
	out := make([]string, 0, c.Len())
	for _, b := range c.Books {
		out = append(out, b.Info.Title)
	}
	return out
}

func TestDiscover_OneBookAmongNonAudio(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "Author_One-My_Book.wav")
	audiotest.WriteFile(t, root, "not_audio.wav", []byte("plain text pretending to be audio"))
	audiotest.WriteFile(t, root, "Some_One-Fake.wav", []byte("plain text with a well-formed name"))

	catalog, err := discover(t, root, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, catalog.Len())

	book := catalog.Books[0]
	assert.Equal(t, "Author One", book.Info.Author)
	assert.Equal(t, "My Book", book.Info.Title)
	assert.Equal(t, filepath.Join(root, "Author_One-My_Book.wav"), book.Path)
	assert.Equal(t, "127.0.0.1:5005", book.Owner.Endpoint())
	assert.True(t, book.Owner.Online)
	assert.Equal(t, domain.ContainerWAVE, book.Description.Container)
	assert.Equal(t, int64(441), book.Description.LengthInFrames)
	require.NotNil(t, book.Description.Stream)
	assert.False(t, book.Description.Stream.Closed())

	report := catalog.Report
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.FilesSeen)
	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 1, report.Cataloged)

	// Failures follow traversal order: "Some_One-Fake.wav" sorts before "not_audio.wav".
	require.Len(t, report.Failures, 2)
	assert.Equal(t, filepath.Join(root, "Some_One-Fake.wav"), report.Failures[0].Path)
	assert.Equal(t, domain.StageProbe, report.Failures[0].Stage)
	assert.Equal(t, apperrors.CodeUnsupportedFormat, report.Failures[0].Code())

	// The name is parsed before the file is opened, so a nameless file never reaches the probe.
	assert.Equal(t, filepath.Join(root, "not_audio.wav"), report.Failures[1].Path)
	assert.Equal(t, domain.StageFilename, report.Failures[1].Stage)
	assert.Equal(t, apperrors.CodeMalformedName, report.Failures[1].Code())
}

func TestDiscover_MissingRoot(t *testing.T) {
	owner := localOwner(t)
	finder := NewFinder(discardLogger(), audio.NewNativeProber(discardLogger()), owner)

	catalog, err := finder.Discover(context.Background(), filepath.Join(t.TempDir(), "nope"), ".wav", Options{})
	assert.Nil(t, catalog)
	assert.True(t, apperrors.Is(err, apperrors.ErrPathNotFound))
	assert.Zero(t, owner.calls, "owner should not be resolved for a missing root")
}

func TestDiscover_RootIsFile(t *testing.T) {
	path := writeWAV(t, t.TempDir(), "A-B.wav")

	catalog, err := discover(t, path, Options{})
	assert.Nil(t, catalog)
	assert.Equal(t, apperrors.CodePathNotFound, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "not a directory")
}

func TestDiscover_EmptyExtension(t *testing.T) {
	finder := NewFinder(discardLogger(), audio.NewNativeProber(discardLogger()), localOwner(t))
	_, err := finder.Discover(context.Background(), t.TempDir(), "", Options{})
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func TestDiscover_EmptyRoot(t *testing.T) {
	catalog, err := discover(t, t.TempDir(), Options{})
	require.NoError(t, err)
	require.NotNil(t, catalog)
	assert.Zero(t, catalog.Len())
	assert.NotNil(t, catalog.Books)
	assert.Empty(t, catalog.Report.Failures)
}

func TestDiscover_NoMatchingExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "A-B.mp3", "C-D.WAV")

	catalog, err := discover(t, root, Options{})
	require.NoError(t, err)
	assert.Zero(t, catalog.Len())
	assert.Equal(t, 2, catalog.Report.FilesSeen)
	assert.Zero(t, catalog.Report.Candidates)
}

func TestDiscover_ResolveFailure(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "A-B.wav")
	prober := newRecordingProber()
	owner := &staticOwner{err: apperrors.Wrapf(fmt.Errorf("no such host"), apperrors.CodeResolveFailed, "resolve owner")}

	catalog, err := NewFinder(discardLogger(), prober, owner).Discover(context.Background(), root, ".wav", Options{})
	assert.Nil(t, catalog)
	assert.True(t, apperrors.Is(err, apperrors.ErrResolveFailed))
	assert.Empty(t, prober.paths, "nothing should be probed without an owner")
}

func TestDiscover_MalformedNamesNeverProbed(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "NoSeparator.wav")
	writeWAV(t, root, "Good-Book.wav")
	prober := newRecordingProber()

	catalog, err := NewFinder(discardLogger(), prober, localOwner(t)).Discover(context.Background(), root, ".wav", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	assert.Equal(t, []string{"Book"}, titles(catalog))
	assert.Equal(t, []string{filepath.Join(root, "Good-Book.wav")}, prober.paths)
	require.Len(t, catalog.Report.Failures, 1)
	assert.Equal(t, domain.StageFilename, catalog.Report.Failures[0].Stage)
	assert.Equal(t, apperrors.CodeMalformedName, catalog.Report.Failures[0].Code())
}

func TestDiscover_TraversalOrderWithWorkers(t *testing.T) {
	root := t.TempDir()
	var want []string
	for i := range 24 {
		title := fmt.Sprintf("Book_%02d", i)
		writeWAV(t, root, filepath.Join(fmt.Sprintf("shelf%d", i/8), "Author-"+title+".wav"))
		want = append(want, fmt.Sprintf("Book %02d", i))
	}

	catalog, err := discover(t, root, Options{Workers: 6})
	require.NoError(t, err)
	assert.Equal(t, want, titles(catalog))
}

func TestDiscover_MetadataOnly(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "A-B.wav")
	prober := newRecordingProber()

	catalog, err := NewFinder(discardLogger(), prober, localOwner(t)).Discover(context.Background(), root, ".wav", Options{MetadataOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, catalog.Len())

	desc := catalog.Books[0].Description
	assert.Nil(t, desc.Stream)
	assert.Equal(t, 44100.0, desc.Format.SampleRate)
	require.Len(t, prober.streams, 1)
	assert.True(t, prober.streams[0].Closed())
	assert.NoError(t, catalog.Close())
}

func TestDiscover_CanceledClosesStreams(t *testing.T) {
	root := t.TempDir()
	for i := range 10 {
		writeWAV(t, root, fmt.Sprintf("Author-Book_%d.wav", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prober := newRecordingProber()
	var once sync.Once
	prober.hook = func(string) {
		prober.mu.Lock()
		n := len(prober.paths)
		prober.mu.Unlock()
		if n >= 3 {
			once.Do(cancel)
		}
	}

	catalog, err := NewFinder(discardLogger(), prober, localOwner(t)).Discover(ctx, root, ".wav", Options{Workers: 1})
	assert.Nil(t, catalog)
	assert.True(t, apperrors.Is(err, apperrors.ErrCanceled))

	require.NotEmpty(t, prober.streams)
	for _, stream := range prober.streams {
		assert.True(t, stream.Closed())
	}
}

func TestDiscover_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "A-First.wav")
	writeWAV(t, root, "B-Second.wav")
	audiotest.WriteFile(t, root, "C-Broken.wav", []byte("nope"))

	first, err := discover(t, root, Options{})
	require.NoError(t, err)
	second, err := discover(t, root, Options{})
	require.NoError(t, err)

	assert.Equal(t, titles(first), titles(second))
	assert.Equal(t, len(first.Report.Failures), len(second.Report.Failures))
	assert.NotEqual(t, first.Report.RunID, second.Report.RunID)
}

func TestDiscover_CloseReleasesEveryStream(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "A-First.wav")
	writeWAV(t, root, "B-Second.wav")

	catalog, err := discover(t, root, Options{})
	require.NoError(t, err)
	require.NoError(t, catalog.Close())
	for _, b := range catalog.Books {
		assert.True(t, b.Description.Stream.Closed())
	}
}

func TestDiscover_UnreadableRoot(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeWAV(t, root, "A-B.wav")
	require.NoError(t, os.Chmod(root, 0o311))
	t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

	owner := localOwner(t)
	finder := NewFinder(discardLogger(), audio.NewNativeProber(discardLogger()), owner)

	catalog, err := finder.Discover(context.Background(), root, ".wav", Options{})
	assert.Nil(t, catalog)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrPathNotFound), "got %v", err)
	assert.Contains(t, err.Error(), "not readable")
	assert.Zero(t, owner.calls)
}

func TestDiscover_UnreadableDirectoryRecorded(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeWAV(t, root, "A-Open.wav")
	locked := filepath.Join(root, "locked")
	writeWAV(t, locked, "B-Hidden.wav")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	catalog, err := discover(t, root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Open"}, titles(catalog))
	require.Len(t, catalog.Report.Failures, 1)
	assert.Equal(t, domain.StageWalk, catalog.Report.Failures[0].Stage)
	assert.Equal(t, locked, catalog.Report.Failures[0].Path)
}

func TestDiscover_ProgressPhases(t *testing.T) {
	root := t.TempDir()
	writeWAV(t, root, "A-B.wav")

	var phases []Phase
	_, err := discover(t, root, Options{OnProgress: func(p *Progress) {
		if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
			phases = append(phases, p.Phase)
		}
	}})
	require.NoError(t, err)
	assert.Equal(t, []Phase{PhaseWalking, PhaseFiltering, PhaseProbing, PhaseComplete}, phases)
}
