// Package fetcher retrieves catalog listings and per-channel feed documents,
// either over HTTP or from a local filesystem mirror of the upstream host.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/guidevault/guidevault/internal/models"
)

// Options configures feed retrieval.
type Options struct {
	// UserAgent is sent on every HTTP request when non-empty.
	UserAgent string
	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration
	// RemotePrefix is the upstream host prefix feeds are published under,
	// e.g. "http://epg.example.org".
	RemotePrefix string
	// LocalDir, when non-empty, switches to local-mirror mode: RemotePrefix
	// is rewritten to this directory and feeds are read from disk.
	LocalDir string
	// USAPath is the URL path prefix that classifies a feed as the USA
	// provider. Feeds under any other path are Sky.
	USAPath string
}

// Fetcher reads feed documents per Options.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// New builds a Fetcher. The HTTP client is shared across requests so
// keep-alive connections are reused over a whole batch.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Fetcher{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Fetch retrieves one document by URL. In local-mirror mode the known remote
// prefix is rewritten to the mirror directory and the file is read from disk;
// otherwise the URL is fetched over the network.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.opts.LocalDir != "" {
		path := strings.Replace(url, f.opts.RemotePrefix, f.opts.LocalDir, 1)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mirror %s: %w", path, err)
		}
		return data, nil
	}
	return f.get(ctx, url)
}

// FetchRemote always goes over the network, regardless of mirror mode. The
// master catalog is served by the CMS host and has no mirror copy.
func (f *Fetcher) FetchRemote(ctx context.Context, url string) ([]byte, error) {
	return f.get(ctx, url)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("NewRequest: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ReadAll: %w", err)
	}
	return body, nil
}

// Provider classifies a feed URL by path prefix. URLs outside the USA prefix
// default to the Sky provider.
func (f *Fetcher) Provider(url string) string {
	if f.opts.USAPath != "" && strings.Contains(url, f.opts.USAPath) {
		return models.ProviderUSA
	}
	return models.ProviderSky
}
