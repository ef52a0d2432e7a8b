package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/bookpeer/internal/domain"
	apperrors "github.com/listenupapp/bookpeer/internal/errors"
	"github.com/listenupapp/bookpeer/internal/scanner"
	"github.com/listenupapp/bookpeer/internal/watcher"
)

type fakeFinder struct {
	err   error
	mu    sync.Mutex
	calls int
	made  []*domain.Catalog
}

func (f *fakeFinder) Discover(_ context.Context, root, ext string, _ scanner.Options) (*domain.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	stream := domain.NewAudioStream(bytes.NewReader(make([]byte, 8)), io.NopCloser(nil), 0, 8)
	c := &domain.Catalog{
		Report: &domain.Report{RunID: "scan-test", Root: root, Extension: ext},
		Books: []*domain.AudioBook{
			domain.NewAudioBook(root+"/A-B"+ext, domain.AudioDescription{Stream: stream}, domain.BookInfo{Title: "B", Author: "A"}, domain.BookOwner{}),
		},
	}
	f.made = append(f.made, c)
	return c, nil
}

func (f *fakeFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(f Finder, debounce time.Duration) *Service {
	return NewService(f, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		Root:      "/books",
		Extension: ".wav",
		Debounce:  debounce,
	})
}

func streamOf(c *domain.Catalog) *domain.AudioStream {
	return c.Books[0].Description.Stream
}

func TestService_RebuildSwapsAndClosesPrevious(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, time.Second)
	assert.Nil(t, svc.Current())

	first, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, svc.Current())

	second, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Same(t, second, svc.Current())
	assert.True(t, streamOf(first).Closed())
	assert.False(t, streamOf(second).Closed())
}

func TestService_FailedRebuildKeepsCurrent(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, time.Second)

	first, err := svc.Rebuild(context.Background())
	require.NoError(t, err)

	finder.err = apperrors.PathNotFoundf("library path /books does not exist")
	_, err = svc.Rebuild(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrPathNotFound))
	assert.Same(t, first, svc.Current())
	assert.False(t, streamOf(first).Closed())
}

func TestService_Close(t *testing.T) {
	svc := newTestService(&fakeFinder{}, time.Second)
	c, err := svc.Rebuild(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	assert.True(t, streamOf(c).Closed())
	assert.Nil(t, svc.Current())

	_, err = svc.Rebuild(context.Background())
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
}

func TestService_RunDebouncesRelevantEvents(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, 50*time.Millisecond)

	events := make(chan watcher.Event)
	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background(), events) }()

	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/A-B.wav"}
	events <- watcher.Event{Type: watcher.EventModified, Path: "/books/A-B.wav"}
	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/C-D.wav"}
	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/cover.jpg"}

	assert.Eventually(t, func() bool { return finder.callCount() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, finder.callCount(), "a burst of changes should rebuild once")

	close(events)
	require.NoError(t, <-done)
	require.NoError(t, svc.Close())
}

func TestService_RunIgnoresIrrelevantEvents(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, 20*time.Millisecond)

	events := make(chan watcher.Event, 2)
	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/notes.txt"}
	events <- watcher.Event{Type: watcher.EventModified, Path: "/books/A-B.WAV"}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	require.NoError(t, svc.Run(ctx, events))
	assert.Zero(t, finder.callCount())
}

func TestService_RunRebuildsOnRemoval(t *testing.T) {
	finder := &fakeFinder{}
	svc := newTestService(finder, 20*time.Millisecond)

	events := make(chan watcher.Event, 1)
	events <- watcher.Event{Type: watcher.EventRemoved, Path: "/books/shelf"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx, events) }()

	assert.Eventually(t, func() bool { return finder.callCount() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, svc.Close())
}

func TestService_RunSurvivesFailedRebuild(t *testing.T) {
	finder := &fakeFinder{err: errors.New("disk on fire")}
	svc := newTestService(finder, 10*time.Millisecond)

	events := make(chan watcher.Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx, events) }()

	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/A-B.wav"}
	assert.Eventually(t, func() bool { return finder.callCount() == 1 }, time.Second, 5*time.Millisecond)

	events <- watcher.Event{Type: watcher.EventAdded, Path: "/books/A-B.wav"}
	assert.Eventually(t, func() bool { return finder.callCount() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
