package streams

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Handle represents an opened adaptive source. The playback manager owns it
// and must Close it on teardown or fallback.
type Handle interface {
	Close() error
}

// Engine is the adaptive-stream backend contract: a support check plus an
// open that either yields a usable handle or a fatal error. Manifest parsing
// itself is out of scope; the engine only needs to tell playable from broken.
type Engine interface {
	Supported() bool
	Open(ctx context.Context, url string) (Handle, error)
}

const manifestMagic = "#EXTM3U"

// ManifestProber is the default Engine. It fetches the manifest URL and
// checks the magic header, which is exactly the failure mode the embed
// fallback exists for: hosts that serve the page but block the manifest.
type ManifestProber struct {
	client  *http.Client
	timeout time.Duration
}

func NewManifestProber(timeout time.Duration) *ManifestProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ManifestProber{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

func (p *ManifestProber) Supported() bool { return true }

// Open fetches the manifest and verifies it looks like one. A reachable,
// well-formed manifest yields a handle; anything else is a fatal open error.
func (p *ManifestProber) Open(ctx context.Context, url string) (Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: status %d", resp.StatusCode)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(resp.Body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	if !strings.HasPrefix(strings.TrimSpace(string(head[:n])), manifestMagic) {
		return nil, fmt.Errorf("not an adaptive manifest: %s", url)
	}

	return &probeHandle{url: url}, nil
}

type probeHandle struct {
	url string
}

func (h *probeHandle) Close() error { return nil }
