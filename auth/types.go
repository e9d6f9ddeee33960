package auth

// ServerMetadata holds the OAuth authorization server metadata (RFC 8414
// subset). RegistrationEndpoint stays empty when the server does not
// advertise dynamic registration.
type ServerMetadata struct {
	Issuer                string `json:"issuer,omitempty"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	RegistrationEndpoint  string `json:"registration_endpoint,omitempty"`
}

// ClientRegistrationRequest is the RFC 7591 client metadata document
type ClientRegistrationRequest struct {
	RedirectURIs            []string `json:"redirect_uris"`
	ClientName              string   `json:"client_name"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// ClientInformation holds the registration response. Optional fields are
// recorded exactly as the server returned them, never synthesized.
type ClientInformation struct {
	ClientID              string `json:"client_id"`
	ClientSecret          string `json:"client_secret,omitempty"`
	ClientIDIssuedAt      int64  `json:"client_id_issued_at,omitempty"`
	ClientSecretExpiresAt int64  `json:"client_secret_expires_at,omitempty"`
}

// TokenResponse holds the token endpoint response. ExpiresAt is derived from
// expires_in once, at the moment the response is received.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresAt    int64  `json:"-"`
}

// CallbackResult carries the authorization redirect parameters. It is
// consumed exactly once by the token exchange.
type CallbackResult struct {
	Code  string
	State string
}

// PKCEPair is a code verifier and its derived S256 challenge
type PKCEPair struct {
	CodeVerifier  string
	CodeChallenge string
}
