package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
	"github.com/naotama2002/mcp-auth-go/internal/httpclient"
	"github.com/naotama2002/mcp-auth-go/store"
)

// FlowOptions configures a single authentication attempt
type FlowOptions struct {
	// ServerName keys the resulting auth file entry
	ServerName string
	// ServerURL is the base URL of the remote server
	ServerURL string
	// ClientName is the name registered with the authorization server
	ClientName string
	// CallbackPort is the local port for the authorization redirect
	CallbackPort int
	// Timeout bounds the wait for the callback; zero means
	// DefaultCallbackTimeout
	Timeout time.Duration
	// RedirectUser is invoked with the authorization URL once the callback
	// listener is up. Typically prints the URL and opens a browser.
	RedirectUser func(authURL string)
}

// Flow runs the one-shot authorization-code + PKCE sequence: discover,
// register, checkpoint, authorize, exchange, persist. Every step is
// fail-fast; there are no retries.
type Flow struct {
	opts       FlowOptions
	store      *store.File
	discoverer *Discoverer
	registrar  *Registrar
	exchanger  *Exchanger
	newState   func() string
}

// NewFlow creates a flow bound to the given auth store
func NewFlow(opts FlowOptions, authStore *store.File) *Flow {
	client := httpclient.New(nil)
	return &Flow{
		opts:       opts,
		store:      authStore,
		discoverer: NewDiscoverer(client),
		registrar:  NewRegistrar(client),
		exchanger:  NewExchanger(client),
		newState:   uuid.NewString,
	}
}

// Run executes the flow. On success the store holds tokens for the server
// name with all transient flow state cleared.
func (f *Flow) Run(ctx context.Context) error {
	metadata, err := f.discoverer.Discover(ctx, f.opts.ServerURL)
	if err != nil {
		return err
	}
	log.Infof("Discovered authorization server %s", metadata.AuthorizationEndpoint)

	if metadata.RegistrationEndpoint == "" {
		return apperrors.New(apperrors.UnsupportedServerError,
			"server does not advertise a dynamic client registration endpoint; a pre-provisioned client is required")
	}

	redirectURI := fmt.Sprintf("http://localhost:%d%s", f.opts.CallbackPort, CallbackPath)

	clientInfo, err := f.registrar.Register(ctx, metadata.RegistrationEndpoint, f.opts.ClientName, redirectURI)
	if err != nil {
		return err
	}
	log.Infof("Registered as %q (client_id %s)", f.opts.ClientName, clientInfo.ClientID)

	pkce, err := GeneratePKCE()
	if err != nil {
		return err
	}
	state := f.newState()

	// Checkpoint before the browser step so an abandoned authorization does
	// not lose the registered client identity.
	entry := &store.AuthEntry{
		ServerURL:    f.opts.ServerURL,
		ClientInfo:   storedClientInfo(clientInfo),
		CodeVerifier: pkce.CodeVerifier,
		OAuthState:   state,
	}
	if err := f.store.Put(f.opts.ServerName, entry); err != nil {
		return fmt.Errorf("failed to checkpoint auth state: %w", err)
	}

	authURL, err := buildAuthorizationURL(metadata.AuthorizationEndpoint, clientInfo.ClientID, redirectURI, pkce.CodeChallenge, state)
	if err != nil {
		return err
	}

	callback := NewCallbackServer(f.opts.CallbackPort)
	if err := callback.Start(); err != nil {
		return err
	}

	if f.opts.RedirectUser != nil {
		f.opts.RedirectUser(authURL)
	}

	result, err := callback.Wait(f.timeout())
	if err != nil {
		return err
	}

	// Verify state before any token-exchange request is issued.
	if result.State != state {
		return apperrors.New(apperrors.StateMismatchError,
			"callback state does not match the request; possible forged callback")
	}

	tokens, err := f.exchanger.Exchange(ctx, metadata.TokenEndpoint, result.Code, pkce.CodeVerifier, clientInfo.ClientID, redirectURI)
	if err != nil {
		return err
	}

	// Final write clears the transient flow secrets.
	entry.Tokens = &store.Tokens{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
		Scope:        tokens.Scope,
	}
	entry.CodeVerifier = ""
	entry.OAuthState = ""
	if err := f.store.Put(f.opts.ServerName, entry); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	log.Infof("Tokens saved for %q in %s", f.opts.ServerName, f.store.Path())
	return nil
}

func (f *Flow) timeout() time.Duration {
	if f.opts.Timeout > 0 {
		return f.opts.Timeout
	}
	return DefaultCallbackTimeout
}

// buildAuthorizationURL constructs the browser-directed authorization
// request with the PKCE challenge and CSRF state.
func buildAuthorizationURL(authorizationEndpoint, clientID, redirectURI, codeChallenge, state string) (string, error) {
	baseURL, err := url.Parse(authorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	q := baseURL.Query()
	q.Set("response_type", "code")
	q.Set("client_id", clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)
	baseURL.RawQuery = q.Encode()

	return baseURL.String(), nil
}

func storedClientInfo(info *ClientInformation) *store.ClientInfo {
	return &store.ClientInfo{
		ClientID:        info.ClientID,
		ClientSecret:    info.ClientSecret,
		IssuedAt:        info.ClientIDIssuedAt,
		SecretExpiresAt: info.ClientSecretExpiresAt,
	}
}
