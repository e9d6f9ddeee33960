package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "mcp-auth",
	Short: "Authenticate to OAuth-protected MCP servers",
	Long: `mcp-auth performs a one-shot OAuth 2.0 authorization-code flow with
PKCE against a remote server, registering dynamically under a chosen client
name, and stores the resulting tokens in an auth file keyed by server name.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
