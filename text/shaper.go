package text

import (
	"sync"

	"github.com/go-text/typesetting/di"
	tfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/duskweb/dusk/layout"
)

// Glyph is one positioned glyph of a shaped run. X and Y are offsets
// from the run origin on the baseline, in logical pixels.
type Glyph struct {
	ID sfnt.GlyphIndex
	X  float64
	Y  float64
}

// Run is the result of shaping one text fragment.
type Run struct {
	Face    *Face
	Size    float64
	Glyphs  []Glyph
	Advance float64
}

// Shaper turns text into positioned glyphs via HarfBuzz shaping. It
// implements layout.Measurer. Safe for concurrent use: font.Face is
// not concurrency safe, so each Shape call wraps the cached read-only
// font in a fresh face, and the HarfbuzzShaper instances are pooled.
type Shaper struct {
	src  *Source
	pool sync.Pool
}

// NewShaper builds a shaper over the given font source.
func NewShaper(src *Source) *Shaper {
	return &Shaper{
		src: src,
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}
}

// Source returns the shaper's font source.
func (s *Shaper) Source() *Source { return s.src }

// Shape shapes a text fragment with the face selected by the font.
func (s *Shaper) Shape(textRun string, f layout.Font) Run {
	face := s.src.Face(KeyOf(f))
	run := Run{Face: face, Size: f.Size}
	if textRun == "" {
		return run
	}

	runes := []rune(textRun)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      tfont.NewFace(face.Font),
		Size:      fixed.Int26_6(f.Size * 64),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	s.pool.Put(hb)

	run.Glyphs = make([]Glyph, 0, len(out.Glyphs))
	var x float64
	for _, g := range out.Glyphs {
		run.Glyphs = append(run.Glyphs, Glyph{
			ID: sfnt.GlyphIndex(g.GlyphID),
			X:  x + fixedToFloat(g.XOffset),
			Y:  -fixedToFloat(g.YOffset),
		})
		x += fixedToFloat(g.Advance)
	}
	run.Advance = x
	return run
}

// Measure returns the advance width of the text in logical pixels.
func (s *Shaper) Measure(textRun string, f layout.Font) float64 {
	return s.Shape(textRun, f).Advance
}

// Metrics returns the vertical metrics of the selected face.
func (s *Shaper) Metrics(f layout.Font) layout.Metrics {
	return s.src.Face(KeyOf(f)).Metrics(f.Size)
}

// detectScript returns the script of the first non-space rune. Mixed
// script runs shape with the first script found, which is enough for
// the documents this engine targets.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
