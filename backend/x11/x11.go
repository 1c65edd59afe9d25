// Package x11 presents surfaces through the X protocol using a pure
// Go connection. Frames are uploaded with PutImage; the window reacts
// to ConfigureNotify resizes, Expose damage, and the WM_DELETE_WINDOW
// protocol.
package x11

import (
	"fmt"
	"os"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
)

func init() {
	backend.Register("x11", func() backend.Backend { return Backend{} })
}

// Backend creates X11 surfaces.
type Backend struct{}

func (Backend) Name() string    { return "x11" }
func (Backend) Available() bool { return os.Getenv("DISPLAY") != "" }

func (Backend) NewSurface(cfg backend.Config) (backend.Surface, error) {
	if !(Backend{}).Available() {
		return nil, fmt.Errorf("x11: DISPLAY not set: %w", backend.ErrNotAvailable)
	}
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("x11: connect: %w", err)
	}

	s := &surface{
		conn:   conn,
		scale:  scaleOf(cfg),
		events: make(chan backend.Event, 16),
	}
	s.width = int(cfg.Width * s.scale)
	s.height = int(cfg.Height * s.scale)
	if s.width < 1 || s.height < 1 {
		conn.Close()
		return nil, fmt.Errorf("x11: invalid surface size %gx%g", cfg.Width, cfg.Height)
	}
	if err := s.createWindow(cfg.Title); err != nil {
		conn.Close()
		return nil, err
	}

	go s.eventLoop()
	// X11 has no frame pacing callback; the first frame may render
	// immediately.
	s.events <- backend.FrameReadyEvent{}
	return s, nil
}

// scaleOf picks the device scale. X11 does not report one per window,
// so an explicit config value wins and 1 is the default.
func scaleOf(cfg backend.Config) float64 {
	if cfg.Scale > 0 {
		return cfg.Scale
	}
	return 1
}

type surface struct {
	conn   *xgb.Conn
	win    xproto.Window
	gc     xproto.Gcontext
	depth  byte
	scale  float64
	events chan backend.Event

	delWindow xproto.Atom

	mu     sync.Mutex
	width  int // device pixels
	height int
	last   []byte // BGRX pixels of the last presented frame
	lastW  int
	lastH  int
	closed bool

	closeOnce sync.Once
}

func (s *surface) createWindow(title string) error {
	setup := xproto.Setup(s.conn)
	screen := setup.DefaultScreen(s.conn)
	s.depth = screen.RootDepth

	win, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("x11: window id: %w", err)
	}
	s.win = win

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		screen.WhitePixel,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify | xproto.EventMaskKeyPress,
	}
	err = xproto.CreateWindowChecked(s.conn, screen.RootDepth, win, screen.Root,
		0, 0, uint16(s.width), uint16(s.height), 0,
		xproto.WindowClassInputOutput, screen.RootVisual, mask, values).Check()
	if err != nil {
		return fmt.Errorf("x11: create window: %w", err)
	}

	if title == "" {
		title = "dusk"
	}
	xproto.ChangeProperty(s.conn, xproto.PropModeReplace, win,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(title)), []byte(title))

	if err := s.setupDeleteProtocol(); err != nil {
		return err
	}

	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return fmt.Errorf("x11: gc id: %w", err)
	}
	s.gc = gc
	if err := xproto.CreateGCChecked(s.conn, gc, xproto.Drawable(win), 0, nil).Check(); err != nil {
		return fmt.Errorf("x11: create gc: %w", err)
	}

	if err := xproto.MapWindowChecked(s.conn, win).Check(); err != nil {
		return fmt.Errorf("x11: map window: %w", err)
	}
	dusk.Logger().Debug("x11 window mapped", "width", s.width, "height", s.height)
	return nil
}

// setupDeleteProtocol opts into WM_DELETE_WINDOW so closing the window
// arrives as a ClientMessage instead of a killed connection.
func (s *surface) setupDeleteProtocol() error {
	protocols, err := xproto.InternAtom(s.conn, true, uint16(len("WM_PROTOCOLS")), "WM_PROTOCOLS").Reply()
	if err != nil {
		return fmt.Errorf("x11: intern WM_PROTOCOLS: %w", err)
	}
	del, err := xproto.InternAtom(s.conn, true, uint16(len("WM_DELETE_WINDOW")), "WM_DELETE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("x11: intern WM_DELETE_WINDOW: %w", err)
	}
	s.delWindow = del.Atom
	buf := make([]byte, 4)
	xgbPut32(buf, uint32(del.Atom))
	xproto.ChangeProperty(s.conn, xproto.PropModeReplace, s.win,
		protocols.Atom, xproto.AtomAtom, 32, 1, buf)
	return nil
}

func xgbPut32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (s *surface) Size() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.width) / s.scale, float64(s.height) / s.scale
}

func (s *surface) Scale() float64 { return s.scale }

func (s *surface) Events() <-chan backend.Event { return s.events }

func (s *surface) Present(pm *dusk.Pixmap) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return backend.ErrClosed
	}
	if pm.Width() != s.width || pm.Height() != s.height {
		w, h := s.width, s.height
		s.mu.Unlock()
		return fmt.Errorf("x11: got %dx%d, want %dx%d: %w",
			pm.Width(), pm.Height(), w, h, backend.ErrSizeMismatch)
	}
	bgrx := toBGRX(pm)
	s.last, s.lastW, s.lastH = bgrx, pm.Width(), pm.Height()
	s.mu.Unlock()

	if err := s.putImage(bgrx, pm.Width(), pm.Height()); err != nil {
		return err
	}
	// No pacing protocol: the surface is ready again as soon as the
	// upload is queued.
	s.push(backend.FrameReadyEvent{})
	return nil
}

// putImage uploads the frame in row chunks that stay under the X
// request size limit.
func (s *surface) putImage(data []byte, w, h int) error {
	const maxBytes = 256 * 1024
	rowBytes := w * 4
	rowsPerChunk := maxBytes / rowBytes
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}
	for y := 0; y < h; y += rowsPerChunk {
		rows := rowsPerChunk
		if y+rows > h {
			rows = h - y
		}
		chunk := data[y*rowBytes : (y+rows)*rowBytes]
		err := xproto.PutImageChecked(s.conn, xproto.ImageFormatZPixmap,
			xproto.Drawable(s.win), s.gc,
			uint16(w), uint16(rows), 0, int16(y),
			0, s.depth, chunk).Check()
		if err != nil {
			return fmt.Errorf("x11: put image: %w", err)
		}
	}
	return nil
}

// toBGRX converts the pixmap to the 24-bit ZPixmap layout. The final
// frame is opaque, so alpha is dropped.
func toBGRX(pm *dusk.Pixmap) []byte {
	src := pm.Data()
	out := make([]byte, len(src))
	for i := 0; i < len(src); i += 4 {
		out[i] = src[i+2]
		out[i+1] = src[i+1]
		out[i+2] = src[i]
		out[i+3] = 0xff
	}
	return out
}

func (s *surface) eventLoop() {
	for {
		ev, err := s.conn.WaitForEvent()
		if ev == nil && err == nil {
			// Connection closed.
			s.push(backend.CloseRequestedEvent{})
			return
		}
		if err != nil {
			dusk.Logger().Debug("x11 event error", "error", err)
			continue
		}
		switch e := ev.(type) {
		case xproto.ConfigureNotifyEvent:
			s.handleConfigure(int(e.Width), int(e.Height))
		case xproto.ExposeEvent:
			if e.Count == 0 {
				s.redraw()
			}
		case xproto.ClientMessageEvent:
			if len(e.Data.Data32) > 0 && xproto.Atom(e.Data.Data32[0]) == s.delWindow {
				s.push(backend.CloseRequestedEvent{})
			}
		}
	}
}

func (s *surface) handleConfigure(w, h int) {
	s.mu.Lock()
	changed := w != s.width || h != s.height
	if changed {
		s.width, s.height = w, h
	}
	scale := s.scale
	s.mu.Unlock()
	if changed {
		s.push(backend.ResizeEvent{Width: float64(w) / scale, Height: float64(h) / scale})
	}
}

// redraw re-uploads the last frame after exposure damage.
func (s *surface) redraw() {
	s.mu.Lock()
	data, w, h := s.last, s.lastW, s.lastH
	closed := s.closed
	s.mu.Unlock()
	if closed || data == nil || w != s.widthNow() {
		return
	}
	if err := s.putImage(data, w, h); err != nil {
		dusk.Logger().Debug("x11 redraw failed", "error", err)
	}
}

func (s *surface) widthNow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
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
		s.mu.Unlock()
		xproto.DestroyWindow(s.conn, s.win)
		s.conn.Close()
	})
	return nil
}
