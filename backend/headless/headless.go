// Package headless provides a windowless backend that writes the
// first presented frame to a PNG file and then requests close. It is
// always available and serves as the final fallback when no display
// server can be reached.
package headless

import (
	"fmt"
	"math"
	"sync"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
)

// DefaultOutput is the screenshot path used when the config does not
// name one.
const DefaultOutput = "screenshot.png"

func init() {
	backend.Register("headless", func() backend.Backend { return Backend{} })
}

// Backend creates headless surfaces.
type Backend struct{}

func (Backend) Name() string    { return "headless" }
func (Backend) Available() bool { return true }

func (Backend) NewSurface(cfg backend.Config) (backend.Surface, error) {
	w, h := cfg.Width, cfg.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("headless: invalid surface size %gx%g", w, h)
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}
	out := cfg.Output
	if out == "" {
		out = DefaultOutput
	}
	s := &surface{
		width:  w,
		height: h,
		scale:  scale,
		output: out,
		events: make(chan backend.Event, 8),
	}
	// The surface is ready immediately; the first frame can render
	// without waiting.
	s.events <- backend.FrameReadyEvent{}
	return s, nil
}

type surface struct {
	width  float64
	height float64
	scale  float64
	output string
	events chan backend.Event

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	presented bool
}

func (s *surface) Size() (float64, float64) { return s.width, s.height }
func (s *surface) Scale() float64           { return s.scale }
func (s *surface) Events() <-chan backend.Event {
	return s.events
}

// Present writes the frame to the output path. After the first frame
// the surface requests close, making a render loop exit after one
// complete frame.
func (s *surface) Present(pm *dusk.Pixmap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return backend.ErrClosed
	}
	dw := int(math.Round(s.width * s.scale))
	dh := int(math.Round(s.height * s.scale))
	if pm.Width() != dw || pm.Height() != dh {
		return fmt.Errorf("headless: got %dx%d, want %dx%d: %w",
			pm.Width(), pm.Height(), dw, dh, backend.ErrSizeMismatch)
	}
	if err := pm.SavePNG(s.output); err != nil {
		return fmt.Errorf("headless: write %s: %w", s.output, err)
	}
	dusk.Logger().Info("frame written", "path", s.output, "width", dw, "height", dh)

	if !s.presented {
		s.presented = true
		s.push(backend.CloseRequestedEvent{})
	} else {
		s.push(backend.FrameReadyEvent{})
	}
	return nil
}

// push delivers an event without blocking Present; a full channel
// drops the event, which only delays pacing, never correctness.
func (s *surface) push(ev backend.Event) {
	select {
	case s.events <- ev:
	default:
	}
}

func (s *surface) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}
