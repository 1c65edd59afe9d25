// Package engine drives the frame loop: it owns the surface, reacts
// to backend events, and runs the render pipeline (style, layout,
// paint, raster) for each frame. One goroutine runs the loop; pipeline
// stages never execute concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/backend"
	"github.com/duskweb/dusk/css"
	"github.com/duskweb/dusk/dom"
	"github.com/duskweb/dusk/layout"
	"github.com/duskweb/dusk/media"
	"github.com/duskweb/dusk/paint"
	"github.com/duskweb/dusk/raster"
	"github.com/duskweb/dusk/style"
	"github.com/duskweb/dusk/text"
)

// maxPresentRetries bounds consecutive present failures before the
// loop gives up.
const maxPresentRetries = 3

// Config selects the surface and initial viewport.
type Config struct {
	Title  string
	Width  float64
	Height float64
	// Scale forces a device scale where the backend supports it; 0
	// lets the backend report its own.
	Scale float64
	// Backend is a backend name, or "auto" (or empty) for the priority
	// order.
	Backend string
	// Output is the screenshot path for the headless backend.
	Output string
}

// Engine renders one document to one surface.
type Engine struct {
	cfg    Config
	doc    *dom.Document
	shaper *text.Shaper
	loader *media.Loader
	rast   *raster.Rasterizer

	surface backend.Surface

	// external holds linked stylesheets, fetched once before the first
	// frame. They sort before the document's <style> sheets.
	external []*css.Stylesheet

	// invalidate carries at most one pending invalidation. Multiple
	// invalidations between frames coalesce; the frame rendered after
	// the signal reflects the latest state.
	invalidate chan struct{}

	presentFailures int
}

// New builds an engine for a parsed document. loader may be nil for
// documents without images.
func New(cfg Config, doc *dom.Document, shaper *text.Shaper, loader *media.Loader) *Engine {
	if cfg.Width <= 0 {
		cfg.Width = dusk.DefaultViewport().Width
	}
	if cfg.Height <= 0 {
		cfg.Height = dusk.DefaultViewport().Height
	}
	var images raster.ImageProvider
	if loader != nil {
		images = loader
	}
	return &Engine{
		cfg:        cfg,
		doc:        doc,
		shaper:     shaper,
		loader:     loader,
		rast:       raster.New(shaper, images),
		invalidate: make(chan struct{}, 1),
	}
}

// Invalidate schedules a re-render. Safe to call from any goroutine;
// calls made before the next frame coalesce into one.
func (e *Engine) Invalidate() {
	select {
	case e.invalidate <- struct{}{}:
	default:
	}
}

// Run opens a surface and drives the frame loop until the surface is
// closed, the context is cancelled, or presenting fails repeatedly.
func (e *Engine) Run(ctx context.Context) error {
	surface, err := e.openSurface()
	if err != nil {
		return err
	}
	e.surface = surface
	defer surface.Close()

	// Resource fetch happens before the first frame so single-shot
	// presentation captures a complete document.
	if e.loader != nil {
		for _, href := range style.StylesheetLinks(e.doc) {
			raw, err := e.loader.FetchText(ctx, href)
			if err != nil {
				dusk.Logger().Warn("stylesheet load failed", "href", href, "error", err)
				continue
			}
			e.external = append(e.external, css.Parse(string(raw)))
		}
		if err := e.loader.FetchAll(ctx, e.doc); err != nil {
			dusk.Logger().Warn("image fetch incomplete", "error", err)
		}
	}

	dirty := true
	frameReady := false
	for {
		if dirty && frameReady {
			dirty = false
			frameReady = false
			retry, err := e.renderFrame()
			if err != nil {
				return err
			}
			if retry {
				dirty = true
				frameReady = true
			}
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.invalidate:
			dirty = true
		case ev, ok := <-surface.Events():
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case backend.FrameReadyEvent:
				frameReady = true
			case backend.ResizeEvent:
				dusk.Logger().Debug("surface resized", "width", ev.Width, "height", ev.Height)
				dirty = true
			case backend.RescaleEvent:
				dusk.Logger().Debug("surface rescaled", "scale", ev.Scale)
				dirty = true
			case backend.CloseRequestedEvent:
				return nil
			}
		}
	}
}

// openSurface resolves the backend hint. An explicit hint is tried
// alone and fails fast; "auto" walks the fallback order, trying each
// available backend once.
func (e *Engine) openSurface() (backend.Surface, error) {
	bcfg := backend.Config{
		Title:  e.cfg.Title,
		Width:  e.cfg.Width,
		Height: e.cfg.Height,
		Scale:  e.cfg.Scale,
		Output: e.cfg.Output,
	}
	if e.cfg.Backend != "" && e.cfg.Backend != "auto" {
		b, err := backend.Select(e.cfg.Backend)
		if err != nil {
			return nil, err
		}
		return b.NewSurface(bcfg)
	}

	var errs []error
	for _, b := range backend.Fallback() {
		s, err := b.NewSurface(bcfg)
		if err != nil {
			dusk.Logger().Warn("backend failed, trying next",
				"backend", b.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		dusk.Logger().Info("backend selected", "backend", b.Name())
		return s, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("engine: no backend registered: %w", backend.ErrNotAvailable)
	}
	return nil, fmt.Errorf("engine: no usable backend: %w", errors.Join(errs...))
}

// renderFrame runs the full pipeline at the surface's current size and
// presents the result. It reports whether the frame should be retried
// after a transient present failure.
func (e *Engine) renderFrame() (retry bool, err error) {
	w, h := e.surface.Size()
	vp := dusk.Viewport{
		Width:      w,
		Height:     h,
		Scale:      e.surface.Scale(),
		Background: dusk.White,
	}

	sheets := append(append([]*css.Stylesheet(nil), e.external...), style.CollectStylesheets(e.doc)...)
	styles := style.NewResolver(sheets...).Resolve(e.doc)
	var sizer layout.ImageSizer
	if e.loader != nil {
		sizer = e.loader
	}
	res := layout.Layout(&layout.Context{
		Doc:      e.doc,
		Styles:   styles,
		Measure:  e.shaper,
		Images:   sizer,
		Viewport: vp,
	})
	list := paint.Build(res, vp)
	pm := e.rast.Rasterize(list, vp)

	if err := e.surface.Present(pm); err != nil {
		if errors.Is(err, backend.ErrClosed) {
			return false, nil
		}
		e.presentFailures++
		if e.presentFailures >= maxPresentRetries {
			return false, fmt.Errorf("engine: present failed %d times: %w", e.presentFailures, err)
		}
		dusk.Logger().Warn("present failed, retrying",
			"attempt", e.presentFailures, "error", err)
		return true, nil
	}
	e.presentFailures = 0
	return false, nil
}
