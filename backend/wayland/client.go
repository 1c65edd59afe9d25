package wayland

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
)

func init() {
	backend.Register("wayland", func() backend.Backend { return Backend{} })
}

// Request opcodes for the handful of interfaces the surface speaks.
const (
	displaySync        = 0
	displayGetRegistry = 1

	registryBind = 0

	compositorCreateSurface = 0

	surfaceDestroy        = 0
	surfaceAttach         = 1
	surfaceDamage         = 2
	surfaceFrame          = 3
	surfaceCommit         = 6
	surfaceSetBufferScale = 8

	wmBaseGetXdgSurface = 2
	wmBasePong          = 3

	xdgSurfaceDestroy      = 0
	xdgSurfaceGetToplevel  = 1
	xdgSurfaceAckConfigure = 4

	toplevelDestroy  = 0
	toplevelSetTitle = 2
	toplevelSetAppID = 3
)

// Backend creates Wayland surfaces.
type Backend struct{}

func (Backend) Name() string { return "wayland" }

func (Backend) Available() bool {
	path, err := socketPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (Backend) NewSurface(cfg backend.Config) (backend.Surface, error) {
	if cfg.Width < 1 || cfg.Height < 1 {
		return nil, fmt.Errorf("wayland: invalid surface size %gx%g", cfg.Width, cfg.Height)
	}
	c, err := dial()
	if err != nil {
		return nil, err
	}
	s := &surface{
		c:          c,
		width:      cfg.Width,
		height:     cfg.Height,
		scale:      1,
		events:     make(chan backend.Event, 16),
		configured: make(chan struct{}),
	}
	if cfg.Scale > 0 {
		// Core-protocol buffer scale is integral; a forced fractional
		// value rounds to the nearest whole factor.
		s.scale = int32(math.Round(cfg.Scale))
		if s.scale < 1 {
			s.scale = 1
		}
		s.scaleForced = true
	}
	c.setHandler(1, s.handleDisplay)
	c.onFail = func(err error) {
		dusk.Logger().Warn("wayland connection lost", "error", err)
		s.push(backend.CloseRequestedEvent{})
	}
	go c.readLoop()

	if err := s.bindGlobals(); err != nil {
		c.close()
		return nil, err
	}
	if err := s.createWindow(cfg.Title); err != nil {
		c.close()
		return nil, err
	}

	select {
	case <-s.configured:
	case <-time.After(5 * time.Second):
		c.close()
		return nil, errors.New("wayland: compositor never configured the surface")
	}
	dusk.Logger().Debug("wayland surface configured",
		"width", s.width, "height", s.height, "scale", s.scale)
	s.push(backend.FrameReadyEvent{})
	return s, nil
}

type surface struct {
	c      *conn
	events chan backend.Event

	registry      uint32
	compositor    uint32
	compositorVer uint32
	shm           uint32
	wmBase        uint32
	argbSeen      bool

	wlSurface  uint32
	xdgSurface uint32
	toplevel   uint32

	configured    chan struct{}
	configureOnce sync.Once

	mu       sync.Mutex
	width    float64 // logical
	height   float64
	pendingW float64
	pendingH float64
	scale    int32
	// scaleForced pins an explicitly configured scale; the
	// compositor's preferred scale is then ignored.
	scaleForced bool
	buffers     [2]*shmBuffer
	closed      bool

	closeOnce sync.Once
}

// bindGlobals enumerates the registry and binds the three interfaces a
// shm surface needs, then waits another roundtrip for the pixel format
// announcements.
func (s *surface) bindGlobals() error {
	s.registry = s.c.newID(s.handleRegistry)
	if err := s.c.send(1, displayGetRegistry, -1, s.registry); err != nil {
		return err
	}
	if err := s.roundtrip(); err != nil {
		return err
	}
	if s.compositor == 0 || s.shm == 0 || s.wmBase == 0 {
		return errors.New("wayland: compositor lacks wl_compositor, wl_shm, or xdg_wm_base")
	}
	if err := s.roundtrip(); err != nil {
		return err
	}
	if !s.argbSeen {
		return errors.New("wayland: compositor does not offer ARGB8888 buffers")
	}
	return nil
}

func (s *surface) handleRegistry(opcode uint16, data []byte) {
	if opcode != 0 { // global
		return
	}
	r := reader{data: data}
	name := r.uint32()
	iface := r.string()
	version := r.uint32()
	switch iface {
	case "wl_compositor":
		// Version 6 adds preferred_buffer_scale; older still works at
		// scale 1.
		s.compositorVer = minU32(version, 6)
		s.compositor = s.bind(name, iface, s.compositorVer, nil)
	case "wl_shm":
		s.shm = s.bind(name, iface, 1, s.handleShm)
	case "xdg_wm_base":
		s.wmBase = s.bind(name, iface, 1, s.handleWmBase)
	}
}

func (s *surface) bind(name uint32, iface string, version uint32, h handler) uint32 {
	id := s.c.newID(h)
	s.c.send(s.registry, registryBind, -1, name, iface, version, id)
	return id
}

func (s *surface) handleShm(opcode uint16, data []byte) {
	if opcode == 0 { // format
		r := reader{data: data}
		if r.uint32() == formatARGB8888 {
			s.argbSeen = true
		}
	}
}

func (s *surface) handleWmBase(opcode uint16, data []byte) {
	if opcode == 0 { // ping
		r := reader{data: data}
		s.c.send(s.wmBase, wmBasePong, -1, r.uint32())
	}
}

func (s *surface) handleDisplay(opcode uint16, data []byte) {
	switch opcode {
	case 0: // error
		r := reader{data: data}
		obj := r.uint32()
		code := r.uint32()
		msg := r.string()
		dusk.Logger().Error("wayland protocol error",
			"object", obj, "code", code, "message", msg)
		s.c.fail(fmt.Errorf("wayland: protocol error on object %d: %s", obj, msg))
	case 1: // delete_id
		r := reader{data: data}
		s.c.dropHandler(r.uint32())
	}
}

func (s *surface) createWindow(title string) error {
	s.wlSurface = s.c.newID(s.handleSurfaceEvents)
	if err := s.c.send(s.compositor, compositorCreateSurface, -1, s.wlSurface); err != nil {
		return err
	}
	s.xdgSurface = s.c.newID(s.handleXdgSurface)
	if err := s.c.send(s.wmBase, wmBaseGetXdgSurface, -1, s.xdgSurface, s.wlSurface); err != nil {
		return err
	}
	s.toplevel = s.c.newID(s.handleToplevel)
	if err := s.c.send(s.xdgSurface, xdgSurfaceGetToplevel, -1, s.toplevel); err != nil {
		return err
	}
	if title == "" {
		title = "dusk"
	}
	s.c.send(s.toplevel, toplevelSetTitle, -1, title)
	s.c.send(s.toplevel, toplevelSetAppID, -1, "dusk")
	// The initial commit with no buffer asks for the first configure.
	return s.c.send(s.wlSurface, surfaceCommit, -1)
}

// handleSurfaceEvents fields wl_surface events. Only the preferred
// buffer scale matters here; enter and leave are ignored.
func (s *surface) handleSurfaceEvents(opcode uint16, data []byte) {
	if opcode != 2 { // preferred_buffer_scale
		return
	}
	r := reader{data: data}
	factor := r.int32()
	if factor < 1 {
		return
	}
	s.mu.Lock()
	if s.scaleForced {
		s.mu.Unlock()
		return
	}
	changed := factor != s.scale
	s.scale = factor
	s.mu.Unlock()
	if changed {
		s.push(backend.RescaleEvent{Scale: float64(factor)})
	}
}

func (s *surface) handleXdgSurface(opcode uint16, data []byte) {
	if opcode != 0 { // configure
		return
	}
	r := reader{data: data}
	serial := r.uint32()
	s.c.send(s.xdgSurface, xdgSurfaceAckConfigure, -1, serial)

	s.mu.Lock()
	var resized bool
	var w, h float64
	if s.pendingW > 0 && s.pendingH > 0 {
		if s.pendingW != s.width || s.pendingH != s.height {
			s.width, s.height = s.pendingW, s.pendingH
			resized = true
		}
		w, h = s.width, s.height
		s.pendingW, s.pendingH = 0, 0
	}
	s.mu.Unlock()

	s.configureOnce.Do(func() { close(s.configured) })
	if resized {
		s.push(backend.ResizeEvent{Width: w, Height: h})
	}
}

func (s *surface) handleToplevel(opcode uint16, data []byte) {
	switch opcode {
	case 0: // configure
		r := reader{data: data}
		w := r.int32()
		h := r.int32()
		if w > 0 && h > 0 {
			s.mu.Lock()
			s.pendingW, s.pendingH = float64(w), float64(h)
			s.mu.Unlock()
		}
	case 1: // close
		s.push(backend.CloseRequestedEvent{})
	}
}

// roundtrip issues wl_display.sync and blocks until its callback
// fires, guaranteeing all prior events have been dispatched.
func (s *surface) roundtrip() error {
	done := make(chan struct{})
	cb := s.c.newID(nil)
	s.c.setHandler(cb, func(uint16, []byte) {
		s.c.dropHandler(cb)
		close(done)
	})
	if err := s.c.send(1, displaySync, -1, cb); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("wayland: roundtrip timed out")
	}
}

func (s *surface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *surface) Scale() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.scale)
}

func (s *surface) Events() <-chan backend.Event { return s.events }

func (s *surface) Present(pm *dusk.Pixmap) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return backend.ErrClosed
	}
	devW := int(math.Round(s.width * float64(s.scale)))
	devH := int(math.Round(s.height * float64(s.scale)))
	if pm.Width() != devW || pm.Height() != devH {
		s.mu.Unlock()
		return fmt.Errorf("wayland: got %dx%d, want %dx%d: %w",
			pm.Width(), pm.Height(), devW, devH, backend.ErrSizeMismatch)
	}
	buf, err := s.acquireBuffer(devW, devH)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	buf.fill(pm)
	buf.busy = true
	scale := s.scale
	s.mu.Unlock()

	s.c.send(s.wlSurface, surfaceAttach, -1, buf.bufID, int32(0), int32(0))
	s.c.send(s.wlSurface, surfaceDamage, -1, int32(0), int32(0), int32(math.MaxInt32), int32(math.MaxInt32))
	if s.compositorVer >= 3 {
		s.c.send(s.wlSurface, surfaceSetBufferScale, -1, scale)
	}
	cb := s.c.newID(nil)
	s.c.setHandler(cb, func(uint16, []byte) {
		s.c.dropHandler(cb)
		s.push(backend.FrameReadyEvent{})
	})
	s.c.send(s.wlSurface, surfaceFrame, -1, cb)
	return s.c.send(s.wlSurface, surfaceCommit, -1)
}

// acquireBuffer returns a free buffer of the given device size,
// replacing stale ones. Called with s.mu held.
func (s *surface) acquireBuffer(w, h int) (*shmBuffer, error) {
	for i, b := range s.buffers {
		if b != nil && !b.busy && (b.w != w || b.h != h) {
			b.destroy()
			s.buffers[i] = nil
			b = nil
		}
		if b != nil && !b.busy {
			return b, nil
		}
		if b == nil {
			var nb *shmBuffer
			nb, err := newShmBuffer(s.c, s.shm, w, h, func() { s.markReleased(nb) })
			if err != nil {
				return nil, err
			}
			s.buffers[i] = nb
			return nb, nil
		}
	}
	return nil, errors.New("wayland: all buffers busy")
}

// markReleased runs on the read loop when the compositor returns a
// buffer.
func (s *surface) markReleased(b *shmBuffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.busy = false
}

// push delivers an event without blocking. The channel close in Close
// happens under the same lock, so a send can never race it.
func (s *surface) push(ev backend.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

func (s *surface) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.events)
		for i, b := range s.buffers {
			if b != nil {
				b.destroy()
				s.buffers[i] = nil
			}
		}
		s.mu.Unlock()
		s.c.send(s.toplevel, toplevelDestroy, -1)
		s.c.send(s.xdgSurface, xdgSurfaceDestroy, -1)
		s.c.send(s.wlSurface, surfaceDestroy, -1)
		s.c.close()
	})
	return nil
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
