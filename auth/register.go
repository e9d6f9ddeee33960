package auth

import (
	"context"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
	"github.com/naotama2002/mcp-auth-go/internal/httpclient"
)

// Registrar performs dynamic client registration per RFC 7591
type Registrar struct {
	client *httpclient.Client
}

// NewRegistrar creates a new client registrar
func NewRegistrar(client *httpclient.Client) *Registrar {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &Registrar{client: client}
}

// Register posts the client metadata document to the registration endpoint.
// The client always requests token_endpoint_auth_method "none", but a
// client_secret returned by the server is accepted and passed through.
func (r *Registrar) Register(ctx context.Context, registrationEndpoint, clientName, redirectURI string) (*ClientInformation, error) {
	regReq := &ClientRegistrationRequest{
		RedirectURIs:            []string{redirectURI},
		ClientName:              clientName,
		GrantTypes:              []string{"authorization_code", "refresh_token"},
		ResponseTypes:           []string{"code"},
		TokenEndpointAuthMethod: "none",
	}

	log.Debugf("Registering client %q at %s", clientName, registrationEndpoint)

	resp, err := r.client.Post(ctx, registrationEndpoint, regReq, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.RegistrationError, "client registration failed")
	}
	defer func() { _ = resp.SafeClose() }()

	var clientInfo ClientInformation
	if err := resp.JSON(&clientInfo); err != nil {
		return nil, apperrors.Wrap(err, apperrors.RegistrationError, "failed to parse client registration response")
	}

	// A 2xx response without client_id is malformed server behavior, distinct
	// from an HTTP-level failure.
	if clientInfo.ClientID == "" {
		return nil, apperrors.New(apperrors.RegistrationError, "registration response is missing client_id")
	}

	log.Debugf("Registered client_id %s", clientInfo.ClientID)
	return &clientInfo, nil
}
