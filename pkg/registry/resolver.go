package registry

import (
	"context"
	"time"

	apperrors "github.com/depscout/depscout/pkg/errors"
)

// VersionClient resolves a package name to its latest published version.
type VersionClient interface {
	LatestVersion(ctx context.Context, name string) (string, error)
}

// Resolver fans latest-version lookups out to per-ecosystem clients.
// Unknown ecosystems and upstream failures come back as errors; callers
// in the scan pipeline treat both as a miss and keep the manifest
// version instead of failing the scan.
type Resolver struct {
	clients map[string]VersionClient
}

// NewResolver creates a resolver over the given ecosystem clients.
// Keys are ecosystem identifiers as reported by manifest analysis.
func NewResolver(clients map[string]VersionClient) *Resolver {
	return &Resolver{clients: clients}
}

// ResolveLatest returns the latest version of name in the given
// ecosystem, or an error when the ecosystem has no client or the
// upstream lookup fails.
func (r *Resolver) ResolveLatest(ctx context.Context, ecosystem, name string) (string, error) {
	client, ok := r.clients[ecosystem]
	if !ok {
		return "", errUnsupportedEcosystem(ecosystem)
	}

	ctx, cancel := context.WithTimeout(ctx, httpTimeout+time.Second)
	defer cancel()

	version, err := client.LatestVersion(ctx, name)
	if err != nil {
		return "", errLookupFailed(ecosystem, name, err)
	}
	return version, nil
}

// Supports reports whether the resolver has a client for ecosystem.
func (r *Resolver) Supports(ecosystem string) bool {
	_, ok := r.clients[ecosystem]
	return ok
}

func errUnsupportedEcosystem(ecosystem string) error {
	return apperrors.New(apperrors.ErrCodeUnsupported, "no registry client for ecosystem %q", ecosystem)
}

func errLookupFailed(ecosystem, name string, cause error) error {
	return apperrors.Wrap(apperrors.ErrCodeRegistryLookup, cause, "latest version lookup for %s package %s", ecosystem, name)
}
