package auth

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
	"github.com/naotama2002/mcp-auth-go/internal/httpclient"
)

// Exchanger trades an authorization code for tokens
type Exchanger struct {
	client *httpclient.Client
	now    func() time.Time
}

// NewExchanger creates a new token exchanger
func NewExchanger(client *httpclient.Client) *Exchanger {
	if client == nil {
		client = httpclient.New(nil)
	}
	return &Exchanger{
		client: client,
		now:    time.Now,
	}
}

// Exchange posts the authorization_code grant to the token endpoint. The
// absolute expiry is computed from expires_in here, at the moment the
// response is received, and never recomputed later.
func (e *Exchanger) Exchange(ctx context.Context, tokenEndpoint, code, codeVerifier, clientID, redirectURI string) (*TokenResponse, error) {
	formData := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"code_verifier": codeVerifier,
		"client_id":     clientID,
		"redirect_uri":  redirectURI,
	}

	log.Debugf("Exchanging authorization code at %s", tokenEndpoint)

	resp, err := e.client.PostForm(ctx, tokenEndpoint, formData, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.TokenExchangeError, "token exchange failed")
	}
	defer func() { _ = resp.SafeClose() }()

	var tokens TokenResponse
	if err := resp.JSON(&tokens); err != nil {
		return nil, apperrors.Wrap(err, apperrors.TokenExchangeError, "failed to parse token response")
	}

	if tokens.AccessToken == "" {
		return nil, apperrors.New(apperrors.TokenExchangeError, "token response is missing access_token")
	}

	// The only default substituted anywhere in the flow.
	if tokens.TokenType == "" {
		tokens.TokenType = "Bearer"
	}

	if tokens.ExpiresIn > 0 {
		tokens.ExpiresAt = e.now().Unix() + tokens.ExpiresIn
	}

	return &tokens, nil
}
