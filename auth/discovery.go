package auth

import (
	"context"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
	"github.com/naotama2002/mcp-auth-go/internal/httpclient"
)

// Discoverer resolves OAuth authorization server metadata per RFC 8414.
// Only the fixed /.well-known/oauth-authorization-server path is tried;
// there is no fallback discovery mechanism.
type Discoverer struct {
	client *httpclient.Client
}

// NewDiscoverer creates a new metadata discoverer
func NewDiscoverer(client *httpclient.Client) *Discoverer {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &Discoverer{client: client}
}

// Discover fetches metadata from the well-known path on the origin of
// serverURL. Any network failure, non-2xx status, malformed body, or missing
// required field yields a single discovery error naming the attempted URL.
func (d *Discoverer) Discover(ctx context.Context, serverURL string) (*ServerMetadata, error) {
	wellKnownURL, err := buildWellKnownURL(serverURL)
	if err != nil {
		return nil, err
	}

	log.Debugf("Fetching OAuth server metadata from %s", wellKnownURL)

	resp, err := d.client.Get(ctx, wellKnownURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.DiscoveryError,
			fmt.Sprintf("failed to fetch OAuth server metadata from %s", wellKnownURL))
	}
	defer func() { _ = resp.SafeClose() }()

	var metadata ServerMetadata
	if err := resp.JSON(&metadata); err != nil {
		return nil, apperrors.Wrap(err, apperrors.DiscoveryError,
			fmt.Sprintf("failed to parse OAuth server metadata from %s", wellKnownURL))
	}

	if metadata.AuthorizationEndpoint == "" || metadata.TokenEndpoint == "" {
		return nil, apperrors.New(apperrors.DiscoveryError,
			fmt.Sprintf("OAuth server metadata from %s is missing authorization_endpoint or token_endpoint", wellKnownURL))
	}

	return &metadata, nil
}

// buildWellKnownURL derives the metadata URL from the server origin,
// stripping any path and query.
func buildWellKnownURL(serverURL string) (string, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.DiscoveryError,
			fmt.Sprintf("invalid server URL %q", serverURL))
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", apperrors.New(apperrors.DiscoveryError,
			fmt.Sprintf("server URL %q must have a scheme and host", serverURL))
	}
	return fmt.Sprintf("%s://%s/.well-known/oauth-authorization-server", parsed.Scheme, parsed.Host), nil
}
