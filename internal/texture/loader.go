// Package texture implements the Texture Loader (spec.md 4.9, C9): an
// on-demand async fetch of an image URL into a cached handle. Textures are
// cached by URL at this layer so repeat requests for the same URL return
// the same handle rather than re-fetching (spec.md 4.9: "first resolved
// texture wins"); concurrent requests for a URL not yet in the cache are
// deduplicated onto a single in-flight fetch.
package texture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Handle is an opaque resolved texture: the decoded bytes plus the
// content type the fetch reported. There is no GPU in this engine, so
// "GPU texture" (spec.md 4.9) is represented as the decoded image payload
// the renderer would otherwise upload.
type Handle struct {
	URL         string
	ContentType string
	Bytes       []byte
	FetchedAt   time.Time
}

// Fetcher performs the actual network fetch. The default uses
// http.DefaultClient; tests supply a stub.
type Fetcher func(ctx context.Context, url string) (contentType string, body []byte, err error)

// Loader caches resolved Handles by URL and deduplicates concurrent
// fetches of the same URL via singleflight, the same dependency the wider
// Go ecosystem reaches for request coalescing (grounded on the pack's
// docker/moby manifests, which vendor the equivalent resenje.org/singleflight
// for the identical purpose — coalescing concurrent callers onto one
// in-flight operation).
type Loader struct {
	mu      sync.RWMutex
	cache   map[string]Handle
	group   singleflight.Group
	fetch   Fetcher
	onError func(url string, err error) // logged once per URL (spec.md 7 taxonomy #4)
	logged  map[string]bool
	loggedM sync.Mutex
}

// New constructs a Loader using http.DefaultClient as its fetcher.
func New() *Loader {
	return NewWithFetcher(httpFetch)
}

// NewWithFetcher constructs a Loader with a custom Fetcher, for tests and
// for swapping in the image-proxy contract's conditional-request semantics
// (spec.md 6.3).
func NewWithFetcher(f Fetcher) *Loader {
	return &Loader{
		cache:  make(map[string]Handle),
		fetch:  f,
		logged: make(map[string]bool),
	}
}

func httpFetch(ctx context.Context, url string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("texture: fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, err
	}
	return resp.Header.Get("Content-Type"), body, nil
}

// Get returns the cached handle for url without triggering a fetch.
func (l *Loader) Get(url string) (Handle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.cache[url]
	return h, ok
}

// Resolve returns the cached handle for url, or fetches it if absent.
// Concurrent callers resolving the same url share one fetch. A failed
// fetch is logged once per URL and returned as an error; the caller
// chooses the placeholder substitution (spec.md 4.9, 7 taxonomy #4).
func (l *Loader) Resolve(ctx context.Context, url string) (Handle, error) {
	if h, ok := l.Get(url); ok {
		return h, nil
	}

	v, err, _ := l.group.Do(url, func() (any, error) {
		if h, ok := l.Get(url); ok {
			return h, nil
		}
		contentType, body, err := l.fetch(ctx, url)
		if err != nil {
			l.logOnce(url, err)
			return Handle{}, err
		}
		h := Handle{URL: url, ContentType: contentType, Bytes: body, FetchedAt: time.Now()}
		l.mu.Lock()
		l.cache[url] = h
		l.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return Handle{}, err
	}
	return v.(Handle), nil
}

func (l *Loader) logOnce(url string, err error) {
	l.loggedM.Lock()
	defer l.loggedM.Unlock()
	if l.logged[url] {
		return
	}
	l.logged[url] = true
	if l.onError != nil {
		l.onError(url, err)
		return
	}
	fmt.Fprintf(os.Stderr, "texture: %s: %v\n", url, err)
}

// OnError overrides the default stderr logger for fetch failures.
func (l *Loader) OnError(cb func(url string, err error)) {
	l.onError = cb
}

// Evict drops url's cached handle, if any, forcing the next Resolve to
// re-fetch. The core does not require eviction (spec.md 5's shared-resource
// policy notes it "can be added without interface changes"); this exists
// for callers that need to invalidate a stale image-proxy response.
func (l *Loader) Evict(url string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, url)
}

// Count returns the number of cached handles.
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
