package text

import (
	"sync"
	"testing"

	"github.com/duskweb/dusk/layout"
)

func testShaper() *Shaper { return NewShaper(NewSource()) }

func TestShape_Basics(t *testing.T) {
	s := testShaper()
	f := layout.Font{Size: 16}

	if got := s.Measure("", f); got != 0 {
		t.Errorf("empty measure = %v", got)
	}
	run := s.Shape("Hello", f)
	if len(run.Glyphs) == 0 {
		t.Fatal("no glyphs")
	}
	if run.Advance <= 0 {
		t.Errorf("advance = %v", run.Advance)
	}
	if s.Measure("Hello world", f) <= s.Measure("Hello", f) {
		t.Error("longer text must measure wider")
	}
}

func TestShape_Deterministic(t *testing.T) {
	s := testShaper()
	f := layout.Font{Size: 16}
	a := s.Shape("determinism", f)
	b := s.Shape("determinism", f)
	if a.Advance != b.Advance || len(a.Glyphs) != len(b.Glyphs) {
		t.Fatalf("runs differ: %v vs %v", a, b)
	}
	for i := range a.Glyphs {
		if a.Glyphs[i] != b.Glyphs[i] {
			t.Fatalf("glyph %d differs: %+v vs %+v", i, a.Glyphs[i], b.Glyphs[i])
		}
	}
}

func TestShape_SizeScalesAdvance(t *testing.T) {
	s := testShaper()
	small := s.Measure("scale", layout.Font{Size: 12})
	large := s.Measure("scale", layout.Font{Size: 24})
	if large <= small {
		t.Errorf("24px (%v) not wider than 12px (%v)", large, small)
	}
}

func TestShape_FaceSelection(t *testing.T) {
	src := NewSource()
	regular := src.Face(FaceKey{})
	bold := src.Face(FaceKey{Bold: true})
	mono := src.Face(FaceKey{Monospace: true})
	if regular == bold || regular == mono {
		t.Error("style variants must map to distinct faces")
	}
	if again := src.Face(FaceKey{}); again != regular {
		t.Error("faces must be cached")
	}
}

func TestShape_MonospaceFixedAdvance(t *testing.T) {
	s := testShaper()
	f := layout.Font{Size: 16, Monospace: true}
	wi := s.Measure("iiii", f)
	wm := s.Measure("mmmm", f)
	if wi != wm {
		t.Errorf("monospace advances differ: %v vs %v", wi, wm)
	}
}

func TestMetrics(t *testing.T) {
	s := testShaper()
	m := s.Metrics(layout.Font{Size: 16})
	if m.Ascent <= 0 || m.Descent <= 0 {
		t.Fatalf("metrics = %+v", m)
	}
	if m.Ascent <= m.Descent {
		t.Errorf("ascent %v should exceed descent %v", m.Ascent, m.Descent)
	}
	double := s.Metrics(layout.Font{Size: 32})
	if double.Ascent <= m.Ascent {
		t.Error("metrics must scale with size")
	}
}

func TestOutline(t *testing.T) {
	s := testShaper()
	run := s.Shape("A", layout.Font{Size: 16})
	if len(run.Glyphs) != 1 {
		t.Fatalf("glyphs = %d", len(run.Glyphs))
	}
	segs, err := run.Face.Outline(run.Glyphs[0].ID, 16)
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	if len(segs) == 0 {
		t.Error("empty outline for visible glyph")
	}
}

func TestSource_LoadRejectsGarbage(t *testing.T) {
	src := NewSource()
	if err := src.Load(FaceKey{Bold: true}, []byte("not a font")); err == nil {
		t.Error("garbage font data accepted")
	}
	// The slot still resolves to a usable face.
	if f := src.Face(FaceKey{Bold: true}); f == nil {
		t.Error("slot unusable after rejected load")
	}
}

func TestShaper_Concurrent(t *testing.T) {
	s := testShaper()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Measure("concurrent shaping", layout.Font{Size: 14, Bold: j%2 == 0})
			}
		}()
	}
	wg.Wait()
}
