package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naotama2002/mcp-auth-go/auth"
	"github.com/naotama2002/mcp-auth-go/store"
)

const (
	defaultClientName   = "Codex"
	defaultCallbackPort = 19876
)

var (
	authServerURL    string
	authClientName   string
	authCallbackPort int
	authOutputPath   string
	authNoBrowser    bool
)

var authCmd = &cobra.Command{
	Use:   "auth <server-name>",
	Short: "Run the OAuth authorization flow for a server",
	Long: `Run the OAuth 2.0 authorization-code + PKCE flow against the server at
--url, registering dynamically under --client-name, and store the tokens
under <server-name> in the auth file.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authServerURL, "url", "", "Base URL of the server (required)")
	authCmd.Flags().StringVar(&authClientName, "client-name", defaultClientName, "Client name sent during dynamic registration")
	authCmd.Flags().IntVar(&authCallbackPort, "callback-port", defaultCallbackPort, "Local port for the OAuth callback")
	authCmd.Flags().StringVar(&authOutputPath, "output", "", "Path of the auth file (default ~/.codex/auth.json)")
	authCmd.Flags().BoolVar(&authNoBrowser, "no-browser", false, "Do not open a browser; print the authorization URL only")
	_ = authCmd.MarkFlagRequired("url")
}

func runAuth(cmd *cobra.Command, args []string) error {
	serverName := args[0]

	if err := validateCallbackPort(authCallbackPort); err != nil {
		return err
	}

	output := authOutputPath
	if output == "" {
		output = defaultAuthFilePath()
	}

	flow := auth.NewFlow(auth.FlowOptions{
		ServerName:   serverName,
		ServerURL:    authServerURL,
		ClientName:   authClientName,
		CallbackPort: authCallbackPort,
		RedirectUser: redirectUser,
	}, store.NewFile(output))

	if err := flow.Run(cmd.Context()); err != nil {
		return err
	}

	fmt.Printf("Authentication for %q saved to %s\n", serverName, output)
	return nil
}

// redirectUser prints the authorization URL and opens a browser best-effort.
// Browser failure is non-fatal; the printed URL always works manually.
func redirectUser(authURL string) {
	fmt.Printf("\nPlease authorize this client by visiting:\n%s\n\n", authURL)

	if authNoBrowser {
		return
	}
	if err := browser.OpenURL(authURL); err != nil {
		log.Debugf("Could not open browser automatically: %v", err)
	}
}

func validateCallbackPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid callback port %d: must be within 1-65535", port)
	}
	return nil
}

// defaultAuthFilePath resolves the per-user auth file consumed by the host
// application. Resolved once here and passed by value into the store.
func defaultAuthFilePath() string {
	if path := os.Getenv("MCP_AUTH_FILE"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to a relative path if the home dir can't be determined
		return filepath.Join(".codex", "auth.json")
	}
	return filepath.Join(homeDir, ".codex", "auth.json")
}
