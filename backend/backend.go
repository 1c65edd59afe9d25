// Package backend abstracts the presentation surface: a Wayland or
// X11 window, or a headless target that writes screenshots. Backends
// register themselves from their packages' init functions; the
// registry picks the best available one at startup.
package backend

import (
	"errors"

	"github.com/duskweb/dusk"
)

// Common backend errors.
var (
	// ErrNotAvailable is returned when a requested backend cannot run
	// in this environment, for example X11 without a DISPLAY.
	ErrNotAvailable = errors.New("backend: not available")

	// ErrClosed is returned by operations on a closed surface.
	ErrClosed = errors.New("backend: surface closed")

	// ErrSizeMismatch is returned by Present when the pixmap does not
	// match the surface's current device size.
	ErrSizeMismatch = errors.New("backend: pixmap size does not match surface")
)

// Config holds the initial surface parameters. Width and Height are
// logical pixels; the backend reports the real scale and size through
// events once the surface is mapped.
type Config struct {
	Title  string
	Width  float64
	Height float64
	// Scale forces the device scale. Zero lets the backend pick:
	// headless and x11 default to 1, wayland follows the compositor's
	// preferred scale. Wayland rounds a forced value to the nearest
	// whole factor, since core-protocol buffer scale is integral.
	Scale float64
	// Output names a backend-specific destination, such as the PNG
	// path for the headless backend.
	Output string
}

// Event is a surface event delivered on the surface's event channel.
type Event interface {
	isEvent()
}

// ResizeEvent reports a new logical surface size.
type ResizeEvent struct {
	Width  float64
	Height float64
}

// RescaleEvent reports a new device scale factor.
type RescaleEvent struct {
	Scale float64
}

// CloseRequestedEvent reports that the user asked to close the
// surface. The surface stays usable until Close is called.
type CloseRequestedEvent struct{}

// FrameReadyEvent reports that the surface can accept the next frame.
// Backends with frame pacing (Wayland frame callbacks) emit it after
// each presented frame; others emit it immediately after Present.
type FrameReadyEvent struct{}

func (ResizeEvent) isEvent()         {}
func (RescaleEvent) isEvent()        {}
func (CloseRequestedEvent) isEvent() {}
func (FrameReadyEvent) isEvent()     {}

// Surface is a presentation target. Present expects a pixmap sized to
// the surface's device pixels (logical size times scale). Events
// delivers resize, rescale, close, and frame pacing events until the
// surface closes, when the channel is closed.
type Surface interface {
	Size() (w, h float64)
	Scale() float64
	Present(pm *dusk.Pixmap) error
	Events() <-chan Event
	Close() error
}

// Backend creates surfaces for one platform.
type Backend interface {
	// Name returns the backend identifier ("wayland", "x11",
	// "headless").
	Name() string

	// Available reports whether the backend can run in this
	// environment without creating a surface.
	Available() bool

	// NewSurface creates and maps a surface.
	NewSurface(cfg Config) (Surface, error)
}
