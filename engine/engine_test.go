package engine

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
	_ "github.com/duskweb/dusk/backend/headless"
	"github.com/duskweb/dusk/dom"
	"github.com/duskweb/dusk/media"
	"github.com/duskweb/dusk/text"
)

var testShaper = text.NewShaper(text.NewSource())

// fakeBackend hands out surfaces the test controls: it feeds events in
// and observes presented frames.
type fakeBackend struct {
	surfaces chan *fakeSurface
	// failNext seeds the surface's present failure count so failures
	// are in place before the engine's first frame.
	failNext int
}

func (b *fakeBackend) Name() string    { return "fake" }
func (b *fakeBackend) Available() bool { return true }

func (b *fakeBackend) NewSurface(cfg backend.Config) (backend.Surface, error) {
	s := &fakeSurface{
		width:     cfg.Width,
		height:    cfg.Height,
		scale:     1,
		failNext:  b.failNext,
		events:    make(chan backend.Event, 16),
		presented: make(chan *dusk.Pixmap, 8),
	}
	s.events <- backend.FrameReadyEvent{}
	b.surfaces <- s
	return s, nil
}

type fakeSurface struct {
	mu        sync.Mutex
	width     float64
	height    float64
	scale     float64
	failNext  int
	events    chan backend.Event
	presented chan *dusk.Pixmap
	closeOnce sync.Once
}

func (s *fakeSurface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *fakeSurface) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scale
}

func (s *fakeSurface) Events() <-chan backend.Event { return s.events }

func (s *fakeSurface) Present(pm *dusk.Pixmap) error {
	s.mu.Lock()
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		return errors.New("transient present failure")
	}
	s.mu.Unlock()
	s.presented <- pm
	return nil
}

func (s *fakeSurface) Close() error {
	s.closeOnce.Do(func() { close(s.events) })
	return nil
}

func (s *fakeSurface) resize(w, h float64) {
	s.mu.Lock()
	s.width, s.height = w, h
	s.mu.Unlock()
	s.events <- backend.ResizeEvent{Width: w, Height: h}
}

// start registers the fake backend, launches Run, and returns the
// surface once the engine has opened it.
func start(t *testing.T, cfg Config, html string) (*fakeSurface, chan error) {
	t.Helper()
	fb := &fakeBackend{surfaces: make(chan *fakeSurface, 1)}
	backend.Register("fake", func() backend.Backend { return fb })
	t.Cleanup(func() { backend.Unregister("fake") })

	cfg.Backend = "fake"
	eng := New(cfg, dom.Parse([]byte(html)), testShaper, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()

	select {
	case s := <-fb.surfaces:
		return s, errc
	case <-time.After(2 * time.Second):
		t.Fatal("engine never opened a surface")
		return nil, nil
	}
}

func waitFrame(t *testing.T, s *fakeSurface) *dusk.Pixmap {
	t.Helper()
	select {
	case pm := <-s.presented:
		return pm
	case <-time.After(2 * time.Second):
		t.Fatal("no frame presented")
		return nil
	}
}

func waitErr(t *testing.T, errc chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
		return nil
	}
}

func TestRun_RendersInitialFrame(t *testing.T) {
	s, errc := start(t, Config{Width: 100, Height: 80}, "<p>hello</p>")

	pm := waitFrame(t, s)
	assert.Equal(t, 100, pm.Width())
	assert.Equal(t, 80, pm.Height())

	s.events <- backend.CloseRequestedEvent{}
	assert.NoError(t, waitErr(t, errc))
}

func TestRun_CoalescesInvalidations(t *testing.T) {
	fb := &fakeBackend{surfaces: make(chan *fakeSurface, 1)}
	backend.Register("fake", func() backend.Backend { return fb })
	t.Cleanup(func() { backend.Unregister("fake") })

	eng := New(Config{Width: 100, Height: 80, Backend: "fake"},
		dom.Parse([]byte("<p>hello</p>")), testShaper, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()
	s := <-fb.surfaces

	waitFrame(t, s)

	// Five invalidations with no FrameReady in between must produce a
	// single frame once the backend is ready again.
	for i := 0; i < 5; i++ {
		eng.Invalidate()
	}
	s.events <- backend.FrameReadyEvent{}
	waitFrame(t, s)

	s.events <- backend.CloseRequestedEvent{}
	require.NoError(t, waitErr(t, errc))
	assert.Empty(t, s.presented, "coalesced invalidations presented extra frames")
}

func TestRun_ResizeAppliesOnNextCycle(t *testing.T) {
	s, errc := start(t, Config{Width: 800, Height: 600}, "<p>hello</p>")

	pm := waitFrame(t, s)
	require.Equal(t, 800, pm.Width())

	s.resize(400, 300)
	s.events <- backend.FrameReadyEvent{}
	pm = waitFrame(t, s)
	assert.Equal(t, 400, pm.Width())
	assert.Equal(t, 300, pm.Height())

	s.events <- backend.CloseRequestedEvent{}
	require.NoError(t, waitErr(t, errc))
}

func TestRun_RescaleRerenders(t *testing.T) {
	s, errc := start(t, Config{Width: 100, Height: 50}, "<p>hello</p>")
	waitFrame(t, s)

	s.mu.Lock()
	s.scale = 2
	s.mu.Unlock()
	s.events <- backend.RescaleEvent{Scale: 2}
	s.events <- backend.FrameReadyEvent{}

	pm := waitFrame(t, s)
	assert.Equal(t, 200, pm.Width())
	assert.Equal(t, 100, pm.Height())

	s.events <- backend.CloseRequestedEvent{}
	require.NoError(t, waitErr(t, errc))
}

func TestRun_PresentRetriedAfterTransientFailure(t *testing.T) {
	fb := &fakeBackend{surfaces: make(chan *fakeSurface, 1), failNext: 1}
	backend.Register("fake", func() backend.Backend { return fb })
	t.Cleanup(func() { backend.Unregister("fake") })

	eng := New(Config{Width: 100, Height: 80, Backend: "fake"},
		dom.Parse([]byte("<p>hello</p>")), testShaper, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()
	s := <-fb.surfaces

	// The first attempt fails, the bounded retry succeeds.
	waitFrame(t, s)

	s.events <- backend.CloseRequestedEvent{}
	require.NoError(t, waitErr(t, errc))
}

func TestRun_PresentFailureBounded(t *testing.T) {
	fb := &fakeBackend{surfaces: make(chan *fakeSurface, 1), failNext: 10}
	backend.Register("fake", func() backend.Backend { return fb })
	t.Cleanup(func() { backend.Unregister("fake") })

	eng := New(Config{Width: 100, Height: 80, Backend: "fake"},
		dom.Parse([]byte("<p>hello</p>")), testShaper, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- eng.Run(ctx) }()
	<-fb.surfaces

	assert.Error(t, waitErr(t, errc))
}

func TestRun_UnknownBackend(t *testing.T) {
	eng := New(Config{Backend: "nope"}, dom.Parse([]byte("<p>x</p>")), testShaper, nil)
	err := eng.Run(context.Background())
	assert.ErrorIs(t, err, backend.ErrNotAvailable)
}

func TestRun_ExternalStylesheet(t *testing.T) {
	dir := t.TempDir()
	sheet := []byte("body { background: red; }\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.css"), sheet, 0o644))

	out := filepath.Join(dir, "shot.png")
	doc := dom.Parse([]byte(`<head><link rel="stylesheet" href="page.css"></head><body><p>Hi</p></body>`))
	eng := New(Config{Width: 200, Height: 100, Backend: "headless", Output: out},
		doc, testShaper, media.NewLoader(dir))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Run(ctx))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	b := img.Bounds()
	r, g, bl, _ := img.At(b.Max.X-1, b.Max.Y-1).RGBA()
	assert.Equal(t, uint32(0xffff), r, "linked sheet did not apply")
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), bl)
}

func TestRun_HeadlessScreenshot(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shot.png")
	eng := New(Config{Width: 200, Height: 100, Backend: "headless", Output: out},
		dom.Parse([]byte(`<body style="background:red"><p>Hi</p></body>`)),
		testShaper, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, eng.Run(ctx))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	b := img.Bounds()
	require.Equal(t, 200, b.Dx())
	require.Equal(t, 100, b.Dy())
	r, g, bl, _ := img.At(b.Max.X-1, b.Max.Y-1).RGBA()
	assert.Equal(t, uint32(0xffff), r, "background not red")
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), bl)
}
