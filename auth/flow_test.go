package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/naotama2002/mcp-auth-go/internal/errors"
	"github.com/naotama2002/mcp-auth-go/store"
)

// oauthTestServer is an httptest server implementing discovery,
// registration, and token exchange for flow tests.
type oauthTestServer struct {
	*httptest.Server
	registrationCalls int
	tokenCalls        int
	expiresIn         int64
}

func newOAuthTestServer(t *testing.T) *oauthTestServer {
	t.Helper()
	ts := &oauthTestServer{expiresIn: 3600}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&ServerMetadata{
			AuthorizationEndpoint: ts.Server.URL + "/authorize",
			TokenEndpoint:         ts.Server.URL + "/token",
			RegistrationEndpoint:  ts.Server.URL + "/register",
		})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		ts.registrationCalls++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(&ClientInformation{ClientID: "cid123"})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		ts.tokenCalls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tok1",
			"token_type":   "Bearer",
			"expires_in":   ts.expiresIn,
		})
	})

	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Server.Close)
	return ts
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func newTestFlow(t *testing.T, serverURL string, redirect func(authURL string)) (*Flow, *store.File) {
	t.Helper()
	authStore := store.NewFile(filepath.Join(t.TempDir(), "auth.json"))
	flow := NewFlow(FlowOptions{
		ServerName:   "figma",
		ServerURL:    serverURL,
		ClientName:   "Codex",
		CallbackPort: freePort(t),
		Timeout:      5 * time.Second,
		RedirectUser: redirect,
	}, authStore)
	return flow, authStore
}

// sendCallback performs the authorization redirect a browser would,
// optionally overriding the state parameter.
func sendCallback(t *testing.T, authURL, stateOverride string) {
	t.Helper()
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Errorf("Invalid authorization URL: %v", err)
		return
	}
	q := parsed.Query()
	state := q.Get("state")
	if stateOverride != "" {
		state = stateOverride
	}
	callbackURL := fmt.Sprintf("%s?code=authcode1&state=%s", q.Get("redirect_uri"), url.QueryEscape(state))
	resp, err := http.Get(callbackURL)
	if err != nil {
		t.Errorf("Callback request failed: %v", err)
		return
	}
	_ = resp.Body.Close()
}

func TestFlowEndToEnd(t *testing.T) {
	oauth := newOAuthTestServer(t)

	var flow *Flow
	var authStore *store.File
	start := time.Now().Unix()

	flow, authStore = newTestFlow(t, oauth.URL, func(authURL string) {
		// The checkpoint must exist before the user is sent to the browser.
		entry, err := authStore.Get("figma")
		if err != nil || entry == nil {
			t.Errorf("Checkpoint entry missing before authorization: %v", err)
		} else {
			if entry.CodeVerifier == "" || entry.OAuthState == "" {
				t.Error("Checkpoint should hold transient codeVerifier and oauthState")
			}
			if entry.ClientInfo == nil || entry.ClientInfo.ClientID != "cid123" {
				t.Errorf("Checkpoint should hold the registered client: %+v", entry.ClientInfo)
			}
			if entry.Tokens != nil {
				t.Error("Checkpoint must not hold tokens yet")
			}
		}

		parsed, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("Invalid authorization URL: %v", err)
		}
		q := parsed.Query()
		if q.Get("response_type") != "code" || q.Get("client_id") != "cid123" {
			t.Errorf("Unexpected authorization parameters: %s", authURL)
		}
		if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
			t.Errorf("PKCE parameters missing: %s", authURL)
		}

		sendCallback(t, authURL, "")
	})

	if err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Flow failed: %v", err)
	}

	entry, err := authStore.Get("figma")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if entry == nil || entry.Tokens == nil {
		t.Fatal("Completed flow should persist tokens")
	}
	if entry.Tokens.AccessToken != "tok1" {
		t.Errorf("Expected access token tok1, got %s", entry.Tokens.AccessToken)
	}
	if entry.Tokens.ExpiresAt < start+3600 || entry.Tokens.ExpiresAt > time.Now().Unix()+3600 {
		t.Errorf("ExpiresAt should be receipt time + 3600, got %d", entry.Tokens.ExpiresAt)
	}
	if entry.CodeVerifier != "" || entry.OAuthState != "" {
		t.Error("Completed entry must not retain flow secrets")
	}
	if entry.ServerURL != oauth.URL {
		t.Errorf("ServerURL mismatch: %s", entry.ServerURL)
	}
	if oauth.tokenCalls != 1 {
		t.Errorf("Expected exactly one token exchange, got %d", oauth.tokenCalls)
	}
}

func TestFlowDiscoveryFailureWritesNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	flow, authStore := newTestFlow(t, server.URL, nil)
	err := flow.Run(context.Background())
	if err == nil {
		t.Fatal("Expected discovery failure")
	}
	if !apperrors.IsType(err, apperrors.DiscoveryError) {
		t.Errorf("Expected a discovery error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/.well-known/oauth-authorization-server") {
		t.Errorf("Error should name the attempted well-known URL: %v", err)
	}

	if _, statErr := os.Stat(authStore.Path()); !os.IsNotExist(statErr) {
		t.Error("No auth file may be written on discovery failure")
	}
}

func TestFlowUnsupportedServer(t *testing.T) {
	registrationCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/oauth-authorization-server", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&ServerMetadata{
			AuthorizationEndpoint: "https://example.com/authorize",
			TokenEndpoint:         "https://example.com/token",
		})
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		registrationCalls++
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	flow, _ := newTestFlow(t, server.URL, nil)
	err := flow.Run(context.Background())
	if err == nil {
		t.Fatal("Expected unsupported-server failure")
	}
	if !apperrors.IsType(err, apperrors.UnsupportedServerError) {
		t.Errorf("Expected an unsupported-server error, got %v", err)
	}
	if registrationCalls != 0 {
		t.Errorf("No registration request may be made, got %d", registrationCalls)
	}
}

func TestFlowStateMismatch(t *testing.T) {
	oauth := newOAuthTestServer(t)

	flow, _ := newTestFlow(t, oauth.URL, func(authURL string) {
		sendCallback(t, authURL, "forged-state")
	})

	err := flow.Run(context.Background())
	if err == nil {
		t.Fatal("Expected state mismatch failure")
	}
	if !apperrors.IsType(err, apperrors.StateMismatchError) {
		t.Errorf("Expected a state mismatch error, got %v", err)
	}
	if oauth.tokenCalls != 0 {
		t.Errorf("No token exchange may happen on state mismatch, got %d", oauth.tokenCalls)
	}
}

func TestFlowCallbackTimeout(t *testing.T) {
	oauth := newOAuthTestServer(t)

	port := freePort(t)
	authStore := store.NewFile(filepath.Join(t.TempDir(), "auth.json"))
	flow := NewFlow(FlowOptions{
		ServerName:   "figma",
		ServerURL:    oauth.URL,
		ClientName:   "Codex",
		CallbackPort: port,
		Timeout:      100 * time.Millisecond,
	}, authStore)

	err := flow.Run(context.Background())
	if err == nil {
		t.Fatal("Expected timeout failure")
	}
	if !apperrors.IsType(err, apperrors.TimeoutError) {
		t.Errorf("Expected a timeout error, got %v", err)
	}

	// The callback port must be released after the timeout.
	ln, bindErr := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if bindErr != nil {
		t.Fatalf("Port %d was not released after timeout: %v", port, bindErr)
	}
	_ = ln.Close()

	// The registered client identity survives the abandoned authorization.
	entry, err := authStore.Get("figma")
	if err != nil || entry == nil {
		t.Fatalf("Checkpoint should survive an abandoned flow: %v", err)
	}
	if entry.ClientInfo == nil || entry.ClientInfo.ClientID != "cid123" {
		t.Errorf("Checkpoint should hold the registered client: %+v", entry.ClientInfo)
	}
	if entry.Tokens != nil {
		t.Error("No tokens may be stored for an abandoned flow")
	}
}
