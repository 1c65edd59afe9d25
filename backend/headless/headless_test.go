package headless

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
)

func newSurface(t *testing.T, cfg backend.Config) backend.Surface {
	t.Helper()
	if cfg.Output == "" {
		cfg.Output = filepath.Join(t.TempDir(), "out.png")
	}
	s, err := Backend{}.NewSurface(cfg)
	if err != nil {
		t.Fatalf("NewSurface: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegistered(t *testing.T) {
	if b := backend.Get("headless"); b == nil || !b.Available() {
		t.Fatalf("headless not registered or unavailable: %v", b)
	}
}

func TestSurface_InitialFrameReady(t *testing.T) {
	s := newSurface(t, backend.Config{Width: 100, Height: 50})
	select {
	case ev := <-s.Events():
		if _, ok := ev.(backend.FrameReadyEvent); !ok {
			t.Errorf("first event = %T, want FrameReadyEvent", ev)
		}
	default:
		t.Error("no initial event queued")
	}
}

func TestSurface_PresentWritesAndRequestsClose(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	s := newSurface(t, backend.Config{Width: 100, Height: 50, Output: out})
	<-s.Events() // drain initial FrameReady

	pm := dusk.NewPixmap(100, 50)
	pm.Clear(dusk.RGB(1, 0, 0))
	if err := s.Present(pm); err != nil {
		t.Fatalf("Present: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	ev := <-s.Events()
	if _, ok := ev.(backend.CloseRequestedEvent); !ok {
		t.Errorf("event after first frame = %T, want CloseRequestedEvent", ev)
	}
}

func TestSurface_ScaleAppliesToDeviceSize(t *testing.T) {
	s := newSurface(t, backend.Config{Width: 100, Height: 50, Scale: 2})
	if s.Scale() != 2 {
		t.Fatalf("scale = %v", s.Scale())
	}
	// A logical-size pixmap must be rejected at scale 2.
	if err := s.Present(dusk.NewPixmap(100, 50)); !errors.Is(err, backend.ErrSizeMismatch) {
		t.Errorf("Present wrong size: %v", err)
	}
	if err := s.Present(dusk.NewPixmap(200, 100)); err != nil {
		t.Errorf("Present device size: %v", err)
	}
}

func TestSurface_ClosedPresent(t *testing.T) {
	s := newSurface(t, backend.Config{Width: 10, Height: 10})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := s.Present(dusk.NewPixmap(10, 10)); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Present after close: %v", err)
	}
	if _, open := <-s.Events(); open {
		// The initial FrameReady may still be buffered; drain until
		// the channel closes.
		for range s.Events() {
		}
	}
}

func TestNewSurface_InvalidSize(t *testing.T) {
	if _, err := (Backend{}).NewSurface(backend.Config{Width: 0, Height: 10}); err == nil {
		t.Error("zero width accepted")
	}
}
