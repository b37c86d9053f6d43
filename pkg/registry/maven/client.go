package maven

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/registry"
)

// Client answers latest-version queries against the Maven Central
// search API. Artifacts are identified by "groupId:artifactId"
// coordinates.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a Maven Central client with the given cache backend.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return &Client{
		Client:  registry.NewClient(backend, "maven:", cacheTTL, nil),
		baseURL: "https://search.maven.org/solrsearch/select",
	}
}

// LatestVersion returns the latest published version of the artifact at
// coordinate "groupId:artifactId".
func (c *Client) LatestVersion(ctx context.Context, coordinate string) (string, error) {
	group, artifact, ok := strings.Cut(strings.TrimSpace(coordinate), ":")
	if !ok || group == "" || artifact == "" {
		return "", fmt.Errorf("invalid maven coordinate %q (want groupId:artifactId)", coordinate)
	}

	var data searchResponse
	err := c.Cached(ctx, group+":"+artifact, false, &data, func() error {
		query := fmt.Sprintf(`g:%q AND a:%q`, group, artifact)
		url := fmt.Sprintf("%s?q=%s&rows=1&wt=json", c.baseURL, registry.URLEncode(query))
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%w: maven artifact %s", err, coordinate)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(data.Response.Docs) == 0 || data.Response.Docs[0].LatestVersion == "" {
		return "", fmt.Errorf("maven artifact %s: no version found", coordinate)
	}
	return data.Response.Docs[0].LatestVersion, nil
}

type searchResponse struct {
	Response struct {
		Docs []struct {
			LatestVersion string `json:"latestVersion"`
		} `json:"docs"`
	} `json:"response"`
}
