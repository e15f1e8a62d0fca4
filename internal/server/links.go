package server

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	qrcode "github.com/skip2/go-qrcode"

	"qrdrop/internal/store"
)

// BaseURLProvider yields the public base URL the service is reachable
// under. Implementations may block until the endpoint is known (tunnel
// discovery); callers bound the wait with ctx.
type BaseURLProvider interface {
	BaseURL(ctx context.Context) (string, error)
}

// StaticBaseURL is the provider for deployments with a fixed public
// address. It never blocks.
type StaticBaseURL string

func (s StaticBaseURL) BaseURL(ctx context.Context) (string, error) {
	return string(s), nil
}

// DiscoveredBaseURL blocks callers until a discovery mechanism publishes
// the base URL, then answers from the cached value. Publish is safe to
// call more than once; later values replace earlier ones for new callers.
type DiscoveredBaseURL struct {
	mu    sync.RWMutex
	url   string
	ready chan struct{}
	once  sync.Once
}

func NewDiscoveredBaseURL() *DiscoveredBaseURL {
	return &DiscoveredBaseURL{ready: make(chan struct{})}
}

// Publish records the discovered base URL and releases waiting callers.
func (d *DiscoveredBaseURL) Publish(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
	d.once.Do(func() { close(d.ready) })
}

func (d *DiscoveredBaseURL) BaseURL(ctx context.Context) (string, error) {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url, nil
}

// CodeEncoder renders a URL as a scannable image. Wiring injects the QR
// encoder below; tests may inject a stub.
type CodeEncoder func(url string) ([]byte, error)

// QRPNGEncoder renders the URL as a 256x256 QR PNG.
func QRPNGEncoder(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, 256)
}

func buildViewURL(base, filename string) string {
	return strings.TrimSuffix(base, "/") + "/view/" + filename
}

func codeName(filename string) string {
	return filename + ".png"
}

// issueCode builds the retrieval URL for the sealed object, renders it
// as a code image and persists the image in the codes namespace.
func (lc *Lifecycle) issueCode(ctx context.Context, name string) (url, codeRef string, err error) {
	base, err := lc.BaseURL.BaseURL(ctx)
	if err != nil {
		return "", "", fmt.Errorf("resolve base url: %w", err)
	}
	url = buildViewURL(base, name)

	img, err := lc.Encode(url)
	if err != nil {
		return "", "", fmt.Errorf("encode link image: %w", err)
	}

	ref := codeName(name)
	if err := lc.Store.Put(ctx, store.NSCodes, ref, bytes.NewReader(img)); err != nil {
		return "", "", fmt.Errorf("store link image: %w", err)
	}
	return url, "/codes/" + ref, nil
}
