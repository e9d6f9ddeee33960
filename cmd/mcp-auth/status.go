package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/naotama2002/mcp-auth-go/store"
)

var statusOutputPath string

var statusCmd = &cobra.Command{
	Use:   "status [server-name]",
	Short: "Show stored authentication state",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusOutputPath, "output", "", "Path of the auth file (default ~/.codex/auth.json)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	output := statusOutputPath
	if output == "" {
		output = defaultAuthFilePath()
	}

	entries, err := store.NewFile(output).Load()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		entry, ok := entries[args[0]]
		if !ok {
			return fmt.Errorf("no authentication state for %q in %s", args[0], output)
		}
		printEntry(args[0], entry)
		return nil
	}

	if len(entries) == 0 {
		fmt.Printf("No authentication state in %s\n", output)
		return nil
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printEntry(name, entries[name])
	}
	return nil
}

func printEntry(name string, entry *store.AuthEntry) {
	fmt.Printf("%s\n", name)
	fmt.Printf("  server:  %s\n", entry.ServerURL)
	if entry.ClientInfo != nil {
		fmt.Printf("  client:  %s\n", entry.ClientInfo.ClientID)
	}
	fmt.Printf("  tokens:  %s\n", tokenState(entry, time.Now()))
}

func tokenState(entry *store.AuthEntry, now time.Time) string {
	if entry.Tokens == nil || entry.Tokens.AccessToken == "" {
		if entry.CodeVerifier != "" || entry.OAuthState != "" {
			return "none (authorization incomplete)"
		}
		return "none"
	}
	if entry.Tokens.ExpiresAt > 0 {
		expiry := time.Unix(entry.Tokens.ExpiresAt, 0)
		if now.After(expiry) {
			return fmt.Sprintf("expired at %s", expiry.Format(time.RFC3339))
		}
		return fmt.Sprintf("valid until %s", expiry.Format(time.RFC3339))
	}
	return "valid (no expiry)"
}
