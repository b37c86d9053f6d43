package goproxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/registry"
)

// Client resolves module versions through the Go module proxy protocol.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a proxy client backed by proxy.golang.org.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "goproxy:", cacheTTL, nil),
		baseURL: "https://proxy.golang.org",
	}
}

// LatestVersion returns the version reported by the proxy's @latest
// endpoint for the given module path.
func (c *Client) LatestVersion(ctx context.Context, modulePath string) (string, error) {
	modulePath = strings.TrimSpace(modulePath)
	if modulePath == "" {
		return "", fmt.Errorf("empty module path")
	}

	var data struct {
		Version string `json:"Version"`
	}
	err := c.Cached(ctx, modulePath, false, &data, func() error {
		url := fmt.Sprintf("%s/%s/@latest", c.baseURL, escapePath(modulePath))
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%w: module %s", err, modulePath)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if data.Version == "" {
		return "", fmt.Errorf("module %s: proxy returned no version", modulePath)
	}
	return data.Version, nil
}

// escapePath applies the module proxy's case encoding: every uppercase
// letter is replaced with '!' followed by its lowercase form.
func escapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if unicode.IsUpper(r) {
			b.WriteByte('!')
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
