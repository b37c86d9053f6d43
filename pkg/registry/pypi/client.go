package pypi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/registry"
)

// Client answers latest-version queries against PyPI.
//
// Package names are normalized following PEP 503 (lowercase,
// underscores to hyphens) before the lookup.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a PyPI client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "pypi:", cacheTTL, nil),
		baseURL: "https://pypi.org/pypi",
	}
}

// LatestVersion returns the latest published version of pkg.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	pkg = registry.NormalizePkgName(pkg)

	var data struct {
		Info struct {
			Version string `json:"version"`
		} `json:"info"`
	}
	err := c.Cached(ctx, pkg, false, &data, func() error {
		url := fmt.Sprintf("%s/%s/json", c.baseURL, pkg)
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%w: pypi package %s", err, pkg)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if data.Info.Version == "" {
		return "", fmt.Errorf("pypi package %s: empty version in response", pkg)
	}
	return data.Info.Version, nil
}
