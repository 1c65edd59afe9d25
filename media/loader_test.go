package media

import (
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskweb/dusk/dom"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf []byte
	f := &writerFunc{buf: &buf}
	require.NoError(t, png.Encode(f, img))
	return buf
}

type writerFunc struct{ buf *[]byte }

func (w *writerFunc) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 10, 6), 0o644))

	l := NewLoader(dir)
	img, err := l.Fetch(context.Background(), "pic.png")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())

	w, h, ok := l.SizeOf("pic.png")
	require.True(t, ok)
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 6.0, h)
}

func TestLoader_BaseIsDocumentFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("<p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pic.png"), pngBytes(t, 4, 4), 0o644))

	l := NewLoader(filepath.Join(dir, "page.html"))
	_, err := l.Fetch(context.Background(), "pic.png")
	assert.NoError(t, err)
}

func TestLoader_HTTP(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/pic.png":
			w.Write(pngBytes(t, 8, 8))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewLoader(srv.URL + "/index.html")
	_, err := l.Fetch(context.Background(), "pic.png")
	require.NoError(t, err)

	// Second fetch is served from cache.
	_, err = l.Fetch(context.Background(), "pic.png")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestLoader_NegativeCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	l := NewLoader(srv.URL)
	_, err := l.Fetch(context.Background(), "missing.png")
	require.Error(t, err)
	_, err = l.Fetch(context.Background(), "missing.png")
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load(), "failures must be cached")

	_, _, ok := l.SizeOf("missing.png")
	assert.False(t, ok, "failed resource must lay out as placeholder")
}

func TestLoader_ImageWithoutFetch(t *testing.T) {
	l := NewLoader("")
	_, err := l.Image("never.png")
	assert.ErrorIs(t, err, ErrNotFetched)
	_, _, ok := l.SizeOf("never.png")
	assert.False(t, ok)
}

func TestLoader_DataURI(t *testing.T) {
	// A 1x1 black PNG.
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)
	var buf []byte
	require.NoError(t, png.Encode(&writerFunc{buf: &buf}, img))

	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf)
	l := NewLoader("")
	got, err := l.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Bounds().Dx())
}

func TestLoader_FetchText(t *testing.T) {
	dir := t.TempDir()
	sheet := []byte("p { color: red; }\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.css"), sheet, 0o644))

	l := NewLoader(dir)
	got, err := l.FetchText(context.Background(), "page.css")
	require.NoError(t, err)
	assert.Equal(t, sheet, got)

	_, err = l.FetchText(context.Background(), "missing.css")
	assert.Error(t, err)
}

func TestLoader_FetchTextHTTP(t *testing.T) {
	sheet := "body { background: blue; }"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/style/page.css" {
			w.Write([]byte(sheet))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	// Relative hrefs resolve against the document URL.
	l := NewLoader(srv.URL + "/style/index.html")
	got, err := l.FetchText(context.Background(), "page.css")
	require.NoError(t, err)
	assert.Equal(t, sheet, string(got))
}

func TestLoader_FetchAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 3, 3), 0o644))

	doc := dom.Parse([]byte(`<img src="a.png"><img src="b.png"><img>`))
	l := NewLoader(dir)
	require.NoError(t, l.FetchAll(context.Background(), doc))

	_, _, ok := l.SizeOf("a.png")
	assert.True(t, ok)
	_, err := l.Image("b.png")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFetched, "b.png was fetched and failed")
}
