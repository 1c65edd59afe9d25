// Package text loads fonts and shapes runs for measurement and
// rasterization. The embedded Go fonts serve as the default family;
// callers may override individual slots with their own font data.
package text

import (
	"bytes"
	"fmt"
	"sync"

	tfont "github.com/go-text/typesetting/font"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/duskweb/dusk/layout"
)

// FaceKey selects a face slot within the source.
type FaceKey struct {
	Bold      bool
	Italic    bool
	Monospace bool
}

// KeyOf maps a layout font to its face slot.
func KeyOf(f layout.Font) FaceKey {
	return FaceKey{Bold: f.Bold, Italic: f.Italic, Monospace: f.Monospace}
}

// Face is one parsed font, usable both for shaping and for glyph
// outline extraction.
type Face struct {
	// Font is the parsed go-text font. It is read-only and safe for
	// concurrent use; shaping wraps it in a fresh font.Face per call.
	Font *tfont.Font
	// SFNT exposes metrics and glyph outlines for rasterization.
	SFNT *sfnt.Font

	mu  sync.Mutex
	buf sfnt.Buffer
}

// Metrics returns the face's vertical metrics at the given pixel size.
func (f *Face) Metrics(size float64) layout.Metrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	ppem := fixed.Int26_6(size * 64)
	m, err := f.SFNT.Metrics(&f.buf, ppem, xfont.HintingNone)
	if err != nil {
		// Fall back to conventional proportions.
		return layout.Metrics{Ascent: size * 0.8, Descent: size * 0.2}
	}
	ascent := abs(fixedToFloat(m.Ascent))
	descent := abs(fixedToFloat(m.Descent))
	gap := fixedToFloat(m.Height) - ascent - descent
	if gap < 0 {
		gap = 0
	}
	return layout.Metrics{Ascent: ascent, Descent: descent, LineGap: gap}
}

// Outline loads the glyph's contour segments at the given pixel size.
// The caller must not retain the segments across calls.
func (f *Face) Outline(g sfnt.GlyphIndex, size float64) (sfnt.Segments, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ppem := fixed.Int26_6(size * 64)
	return f.SFNT.LoadGlyph(&f.buf, g, ppem, nil)
}

// Source resolves face slots lazily from raw font data.
type Source struct {
	mu    sync.Mutex
	data  map[FaceKey][]byte
	faces map[FaceKey]*Face
}

// NewSource builds a source preloaded with the embedded Go fonts for
// every bold/italic/monospace combination.
func NewSource() *Source {
	return &Source{
		data: map[FaceKey][]byte{
			{}: goregular.TTF,
			{Bold: true}:                 gobold.TTF,
			{Italic: true}:               goitalic.TTF,
			{Bold: true, Italic: true}:   gobolditalic.TTF,
			{Monospace: true}:            gomono.TTF,
			{Monospace: true, Bold: true}: gomonobold.TTF,
			{Monospace: true, Italic: true}:             gomonoitalic.TTF,
			{Monospace: true, Bold: true, Italic: true}: gomonobolditalic.TTF,
		},
		faces: make(map[FaceKey]*Face),
	}
}

// Load replaces the font data for one slot. Parsed faces for the slot
// are discarded and rebuilt on next use.
func (s *Source) Load(key FaceKey, ttf []byte) error {
	if _, err := tfont.ParseTTF(bytes.NewReader(ttf)); err != nil {
		return fmt.Errorf("text: parse font: %w", err)
	}
	if _, err := sfnt.Parse(ttf); err != nil {
		return fmt.Errorf("text: parse font tables: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = ttf
	delete(s.faces, key)
	return nil
}

// Face returns the parsed face for a slot, falling back to the regular
// face when the exact combination is missing.
func (s *Source) Face(key FaceKey) *Face {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.faces[key]; ok {
		return f
	}
	raw, ok := s.data[key]
	if !ok {
		raw = s.data[FaceKey{}]
	}
	f, err := parseFace(raw)
	if err != nil {
		if key == (FaceKey{}) {
			panic(fmt.Sprintf("text: embedded font unusable: %v", err))
		}
		f = s.faceLocked(FaceKey{})
	}
	s.faces[key] = f
	return f
}

func (s *Source) faceLocked(key FaceKey) *Face {
	if f, ok := s.faces[key]; ok {
		return f
	}
	f, err := parseFace(s.data[key])
	if err != nil {
		panic(fmt.Sprintf("text: embedded font unusable: %v", err))
	}
	s.faces[key] = f
	return f
}

func parseFace(ttf []byte) (*Face, error) {
	shaped, err := tfont.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, err
	}
	sf, err := sfnt.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return &Face{Font: shaped.Font, SFNT: sf}, nil
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
