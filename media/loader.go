// Package media fetches and decodes image resources referenced by a
// document. Results are cached, including failures, so a broken
// reference is fetched once and degrades to a placeholder from then
// on.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Decoders register themselves with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/duskweb/dusk"
	"github.com/duskweb/dusk/dom"
)

// ErrNotFetched marks a resource that no fetch pass has loaded yet.
var ErrNotFetched = errors.New("media: resource not fetched")

// maxResourceSize caps a single decoded resource fetch.
const maxResourceSize = 32 << 20

type entry struct {
	img image.Image
	err error
}

// Loader resolves, fetches, decodes, and caches images. Safe for
// concurrent use.
type Loader struct {
	client *http.Client
	// base resolves relative references: the page URL for http
	// documents, or a file path directory for local ones.
	base *url.URL

	mu    sync.Mutex
	cache map[string]entry
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// NewLoader builds a loader resolving relative references against
// base. Base may be an http(s) URL, a local path, or empty for
// current-directory relative files.
func NewLoader(base string, opts ...Option) *Loader {
	l := &Loader{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  make(map[string]entry),
	}
	if base != "" {
		if u, err := url.Parse(base); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			l.base = u
		} else {
			l.base = &url.URL{Scheme: "file", Path: absDir(base)}
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// absDir normalizes a base path to the directory relative references
// resolve against. A path to the document file itself yields its
// directory.
func absDir(p string) string {
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		p = filepath.Dir(p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Fetch loads and decodes one resource, caching the outcome either
// way. A second fetch of a failed resource returns the cached error
// without touching the network again.
func (l *Loader) Fetch(ctx context.Context, src string) (image.Image, error) {
	l.mu.Lock()
	if e, ok := l.cache[src]; ok {
		l.mu.Unlock()
		return e.img, e.err
	}
	l.mu.Unlock()

	img, err := l.load(ctx, src)
	if err != nil {
		dusk.Logger().Warn("image load failed", "src", src, "error", err)
	}

	l.mu.Lock()
	l.cache[src] = entry{img: img, err: err}
	l.mu.Unlock()
	return img, err
}

// FetchAll fetches every <img> source in the document. Failures are
// cached and degrade to placeholders; the first context error aborts
// the pass.
func (l *Loader) FetchAll(ctx context.Context, doc *dom.Document) error {
	var ctxErr error
	doc.Walk(doc.Root(), func(id dom.NodeID, n *dom.Node) bool {
		if n.Kind != dom.KindElement || n.Tag != "img" {
			return true
		}
		src := strings.TrimSpace(n.AttrValue("src"))
		if src == "" {
			return true
		}
		if _, err := l.Fetch(ctx, src); err != nil && ctx.Err() != nil {
			ctxErr = err
			return false
		}
		return true
	})
	return ctxErr
}

// Image returns the cached decoded image for a source. It never
// fetches; run Fetch or FetchAll first.
func (l *Loader) Image(src string) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.cache[src]; ok {
		return e.img, e.err
	}
	return nil, ErrNotFetched
}

// SizeOf reports the intrinsic size of a cached image. It implements
// the layout sizing interface; unfetched and failed resources report
// false and lay out as placeholders.
func (l *Loader) SizeOf(src string) (w, h float64, ok bool) {
	img, err := l.Image(src)
	if err != nil || img == nil {
		return 0, 0, false
	}
	b := img.Bounds()
	return float64(b.Dx()), float64(b.Dy()), true
}

// FetchText retrieves a text resource, such as a linked stylesheet,
// resolved against the same base as images. Text resources are not
// cached; stylesheets are fetched once when the document loads.
func (l *Loader) FetchText(ctx context.Context, src string) ([]byte, error) {
	return l.fetchBytes(ctx, src)
}

func (l *Loader) load(ctx context.Context, src string) (image.Image, error) {
	raw, err := l.fetchBytes(ctx, src)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("media: decode %q: %w", src, err)
	}
	return img, nil
}

// fetchBytes resolves a reference against the loader's base and reads
// it: data URIs inline, http(s) over the client, anything else from
// the filesystem.
func (l *Loader) fetchBytes(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:") {
		return dataURIBytes(src)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("media: parse %q: %w", src, err)
	}
	if l.base != nil && l.base.Scheme != "file" {
		return l.readHTTP(ctx, l.base.ResolveReference(ref).String())
	}
	if ref.Scheme == "http" || ref.Scheme == "https" {
		return l.readHTTP(ctx, src)
	}
	return l.readFile(src)
}

func (l *Loader) readHTTP(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("media: request %q: %w", u, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetch %q: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: fetch %q: status %s", u, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("media: read %q: %w", u, err)
	}
	return data, nil
}

func (l *Loader) readFile(src string) ([]byte, error) {
	p := strings.TrimPrefix(src, "file://")
	if !filepath.IsAbs(p) && l.base != nil {
		p = filepath.Join(l.base.Path, p)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("media: open %q: %w", p, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("media: read %q: %w", p, err)
	}
	return data, nil
}

// dataURIBytes handles base64 and percent-encoded data URIs.
func dataURIBytes(src string) ([]byte, error) {
	meta, data, found := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !found {
		return nil, errors.New("media: malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("media: data URI base64: %w", err)
		}
		return decoded, nil
	}
	unescaped, err := url.QueryUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("media: data URI escape: %w", err)
	}
	return []byte(unescaped), nil
}
