// Package dusk renders HTML documents to pixel buffers and presents
// them on a native window or captures them to a file.
//
// The pipeline runs in five stages, each a pure function of its input:
//
//	dom.Parse -> style.Resolve -> layout.Layout -> paint.Build -> raster.Rasterize
//
// The resulting Pixmap is handed to a display backend (see the backend
// package) which owns the platform surface. The engine package drives
// the whole cycle from a single-goroutine event loop.
//
// This root package holds the value types shared by every stage:
// geometry (Rect, Edges, Size), Color, Viewport and Pixmap.
package dusk
