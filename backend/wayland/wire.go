// Package wayland presents surfaces on a Wayland compositor by
// speaking the wire protocol directly over the compositor socket: no
// cgo, no libwayland. Buffers are shared memory created with memfd
// and handed over with fd passing.
package wayland

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/duskweb/dusk"
)

// ErrDisconnected is returned once the compositor connection is gone.
var ErrDisconnected = errors.New("wayland: display connection lost")

// handler consumes one event for an object.
type handler func(opcode uint16, data []byte)

// conn is a Wayland display connection. Object IDs are allocated
// client-side; each live object has a handler for its events.
type conn struct {
	sock *net.UnixConn

	// onFail, when set, is called once when the connection dies.
	onFail func(error)

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   uint32
	handlers map[uint32]handler
	closed   bool
	readErr  error
}

// socketPath resolves the compositor socket per the standard
// environment contract.
func socketPath() (string, error) {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	if filepath.IsAbs(display) {
		return display, nil
	}
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		return "", errors.New("wayland: XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtime, display), nil
}

func dial() (*conn, error) {
	path, err := socketPath()
	if err != nil {
		return nil, err
	}
	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("wayland: connect %s: %w", path, err)
	}
	c := &conn{
		sock:     sock,
		nextID:   2, // 1 is wl_display
		handlers: make(map[uint32]handler),
	}
	return c, nil
}

// newID allocates an object ID and installs its event handler.
func (c *conn) newID(h handler) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	if h != nil {
		c.handlers[id] = h
	}
	return id
}

func (c *conn) setHandler(id uint32, h handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[id] = h
}

func (c *conn) dropHandler(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, id)
}

// arg types accepted by send: uint32, int32, string, []byte (array).
// Strings are written length-prefixed including the NUL, padded to 32
// bits, matching the wire format.
func argSize(a any) int {
	switch v := a.(type) {
	case uint32, int32:
		return 4
	case string:
		return 4 + pad4(len(v)+1)
	case []byte:
		return 4 + pad4(len(v))
	default:
		panic(fmt.Sprintf("wayland: unsupported arg type %T", a))
	}
}

func pad4(n int) int { return (n + 3) &^ 3 }

// send writes one request. fd >= 0 is passed out of band via
// SCM_RIGHTS alongside the message.
func (c *conn) send(obj uint32, opcode uint16, fd int, args ...any) error {
	size := 8
	for _, a := range args {
		size += argSize(a)
	}
	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:], obj)
	binary.LittleEndian.PutUint32(buf[4:], uint32(size)<<16|uint32(opcode))
	off := 8
	for _, a := range args {
		switch v := a.(type) {
		case uint32:
			binary.LittleEndian.PutUint32(buf[off:], v)
			off += 4
		case int32:
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
			off += 4
		case string:
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(v)+1))
			off += 4
			copy(buf[off:], v)
			off += pad4(len(v) + 1)
		case []byte:
			binary.LittleEndian.PutUint32(buf[off:], uint32(len(v)))
			off += 4
			copy(buf[off:], v)
			off += pad4(len(v))
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if fd >= 0 {
		rights := syscall.UnixRights(fd)
		_, _, err := c.sock.WriteMsgUnix(buf, rights, nil)
		if err != nil {
			return fmt.Errorf("wayland: send: %w", err)
		}
		return nil
	}
	if _, err := c.sock.Write(buf); err != nil {
		return fmt.Errorf("wayland: send: %w", err)
	}
	return nil
}

// readLoop parses events off the socket and dispatches them to object
// handlers until the connection dies.
func (c *conn) readLoop() {
	var pending []byte
	buf := make([]byte, 64<<10)
	oob := make([]byte, 256)
	for {
		n, _, _, _, err := c.sock.ReadMsgUnix(buf, oob)
		if err != nil {
			c.fail(err)
			return
		}
		pending = append(pending, buf[:n]...)
		for len(pending) >= 8 {
			obj := binary.LittleEndian.Uint32(pending[0:])
			sizeOp := binary.LittleEndian.Uint32(pending[4:])
			size := int(sizeOp >> 16)
			opcode := uint16(sizeOp & 0xffff)
			if size < 8 || len(pending) < size {
				break
			}
			c.dispatch(obj, opcode, pending[8:size])
			pending = pending[size:]
		}
	}
}

func (c *conn) dispatch(obj uint32, opcode uint16, data []byte) {
	c.mu.Lock()
	h := c.handlers[obj]
	c.mu.Unlock()
	if h != nil {
		h(opcode, data)
		return
	}
	dusk.Logger().Debug("wayland event for unknown object", "object", obj, "opcode", opcode)
}

func (c *conn) fail(err error) {
	c.mu.Lock()
	first := !c.closed
	if first {
		c.closed = true
		c.readErr = err
	}
	c.mu.Unlock()
	if first && c.onFail != nil {
		c.onFail(err)
	}
}

func (c *conn) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.sock.Close()
}

// event payload decoding helpers.

type reader struct {
	data []byte
	off  int
}

func (r *reader) uint32() uint32 {
	if r.off+4 > len(r.data) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) int32() int32 { return int32(r.uint32()) }

func (r *reader) string() string {
	n := int(r.uint32())
	if n == 0 || r.off+n > len(r.data) {
		return ""
	}
	s := string(r.data[r.off : r.off+n-1]) // strip NUL
	r.off += pad4(n)
	return s
}
