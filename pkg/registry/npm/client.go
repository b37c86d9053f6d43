package npm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/registry"
)

// Client answers latest-version queries against the npm registry.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates an npm registry client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "npm:", cacheTTL, nil),
		baseURL: "https://registry.npmjs.org",
	}
}

// LatestVersion returns the latest published version of pkg via the
// registry's dist-tag endpoint.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	pkg = strings.ToLower(strings.TrimSpace(pkg))

	var data struct {
		Version string `json:"version"`
	}
	err := c.Cached(ctx, pkg, false, &data, func() error {
		url := c.baseURL + "/" + pkg + "/latest"
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%w: npm package %s", err, pkg)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if data.Version == "" {
		return "", fmt.Errorf("npm package %s: empty version in response", pkg)
	}
	return data.Version, nil
}
