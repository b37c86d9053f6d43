package nuget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/registry"
)

// Client answers latest-version queries against the NuGet flat
// container API, which exposes a plain version index per package id.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a NuGet client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "nuget:", cacheTTL, nil),
		baseURL: "https://api.nuget.org/v3-flatcontainer",
	}
}

// LatestVersion returns the last entry of the package's version index.
// The flat container lists versions in ascending order, so the last one
// is the newest (prereleases included, matching the index contract).
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	pkg = strings.ToLower(strings.TrimSpace(pkg))

	var data struct {
		Versions []string `json:"versions"`
	}
	err := c.Cached(ctx, pkg, false, &data, func() error {
		url := fmt.Sprintf("%s/%s/index.json", c.baseURL, pkg)
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%w: nuget package %s", err, pkg)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(data.Versions) == 0 {
		return "", fmt.Errorf("nuget package %s: empty version index", pkg)
	}
	return data.Versions[len(data.Versions)-1], nil
}
