package backend

import (
	"errors"
	"testing"
)

type stubBackend struct {
	name      string
	available bool
}

func (s *stubBackend) Name() string    { return s.name }
func (s *stubBackend) Available() bool { return s.available }
func (s *stubBackend) NewSurface(Config) (Surface, error) {
	return nil, ErrNotAvailable
}

func register(t *testing.T, name string, available bool) {
	t.Helper()
	Register(name, func() Backend { return &stubBackend{name: name, available: available} })
	t.Cleanup(func() { Unregister(name) })
}

func TestRegistry_GetAndRegistered(t *testing.T) {
	register(t, "stub", true)
	if b := Get("stub"); b == nil || b.Name() != "stub" {
		t.Fatalf("Get = %v", b)
	}
	if Get("nope") != nil {
		t.Error("unregistered name returned a backend")
	}
	found := false
	for _, name := range Registered() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Error("stub missing from Registered()")
	}
}

func TestRegistry_PriorityOrder(t *testing.T) {
	register(t, "wayland", true)
	register(t, "x11", true)
	register(t, "headless", true)
	if b := Default(); b == nil || b.Name() != "wayland" {
		t.Errorf("Default = %v, want wayland", b)
	}
}

func TestRegistry_FallsPastUnavailable(t *testing.T) {
	register(t, "wayland", false)
	register(t, "x11", false)
	register(t, "headless", true)
	if b := Default(); b == nil || b.Name() != "headless" {
		t.Errorf("Default = %v, want headless", b)
	}
}

func TestSelect(t *testing.T) {
	register(t, "headless", true)
	register(t, "x11", false)

	if b, err := Select("auto"); err != nil || b == nil {
		t.Errorf("auto: %v, %v", b, err)
	}
	if b, err := Select("headless"); err != nil || b.Name() != "headless" {
		t.Errorf("explicit: %v, %v", b, err)
	}
	if _, err := Select("x11"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("unavailable hint: %v", err)
	}
	if _, err := Select("bogus"); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("unknown hint: %v", err)
	}
}

// Compile-time checks that event types satisfy the interface.
var (
	_ Event = ResizeEvent{}
	_ Event = RescaleEvent{}
	_ Event = CloseRequestedEvent{}
	_ Event = FrameReadyEvent{}
)
