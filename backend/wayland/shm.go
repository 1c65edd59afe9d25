package wayland

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/duskweb/dusk"
)

// wl_shm pixel formats.
const formatARGB8888 = 0

// shmBuffer is one shared-memory frame buffer. The compositor reads
// it until wl_buffer.release arrives, so the surface keeps two and
// alternates.
type shmBuffer struct {
	c     *conn
	bufID uint32
	data  []byte
	w, h  int
	busy  bool
}

// newShmBuffer creates a memfd-backed pool, carves one buffer out of
// it, and maps it. The pool is destroyed immediately; the buffer
// keeps the storage alive.
func newShmBuffer(c *conn, shmID uint32, w, h int, onRelease func()) (*shmBuffer, error) {
	stride := w * 4
	size := stride * h
	fd, err := unix.MemfdCreate("dusk-frame", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("wayland: memfd: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("wayland: ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("wayland: mmap: %w", err)
	}

	b := &shmBuffer{c: c, data: data, w: w, h: h}
	poolID := c.newID(nil)
	if err := c.send(shmID, 0, fd, poolID, int32(size)); err != nil {
		unix.Munmap(data)
		unix.Close(fd)
		return nil, err
	}
	b.bufID = c.newID(func(opcode uint16, _ []byte) {
		if opcode == 0 { // release
			onRelease()
		}
	})
	if err := c.send(poolID, 0, -1, b.bufID, int32(0), int32(w), int32(h), int32(stride), uint32(formatARGB8888)); err != nil {
		unix.Munmap(data)
		unix.Close(fd)
		return nil, err
	}
	// The buffer holds its own reference to the pool storage.
	c.send(poolID, 1, -1)
	c.dropHandler(poolID)
	unix.Close(fd)
	return b, nil
}

// fill copies the pixmap into the buffer, premultiplying into the
// little-endian ARGB8888 layout wl_shm expects.
func (b *shmBuffer) fill(pm *dusk.Pixmap) {
	src := pm.Data()
	for i := 0; i+3 < len(src) && i+3 < len(b.data); i += 4 {
		r, g, bl, a := uint32(src[i]), uint32(src[i+1]), uint32(src[i+2]), uint32(src[i+3])
		b.data[i] = uint8(bl * a / 255)
		b.data[i+1] = uint8(g * a / 255)
		b.data[i+2] = uint8(r * a / 255)
		b.data[i+3] = uint8(a)
	}
}

func (b *shmBuffer) destroy() {
	if b.bufID != 0 {
		b.c.send(b.bufID, 0, -1)
		b.c.dropHandler(b.bufID)
		b.bufID = 0
	}
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
}
