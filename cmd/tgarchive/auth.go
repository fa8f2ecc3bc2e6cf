package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"tgarchive/pkg/auth"
	"tgarchive/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage gateway API tokens",
	Long: `Manage stored gateway API tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - The TGARCHIVE_API_TOKEN environment variable (read-only fallback)

Never share your tokens or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Store a gateway API token securely",
	Long: `Store a gateway API token in the system keychain or an encrypted file.

The token is read from the terminal without echo. The optional label lets
you keep several tokens (for example different bots); the unlabeled token
is used by default.`,
	Example: `  # Store the default token
  tgarchive auth login

  # Store a token under a label
  tgarchive auth login staging`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [label]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	Run:   runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tokens",
	Long:  `List all stored tokens with their values masked.`,
	Run:   runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = args[0]
	}

	fmt.Print("Gateway API token: ")
	tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		// Not a terminal; fall back to a plain read
		reader := bufio.NewReader(os.Stdin)
		line, rerr := reader.ReadString('\n')
		if rerr != nil {
			ui.PrintError("Failed to read token", rerr.Error())
			os.Exit(1)
		}
		tokenBytes = []byte(strings.TrimSpace(line))
	}

	token := strings.TrimSpace(string(tokenBytes))
	if token == "" {
		ui.PrintError("Token cannot be empty")
		os.Exit(1)
	}

	cred := &auth.Credential{Label: label, Token: token}
	if err := manager.Store(cred); err != nil {
		ui.PrintError("Failed to store token", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Token stored as %q", label))
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = args[0]
	}

	if err := manager.Delete(label); err != nil {
		ui.PrintError("Failed to remove token", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Token %q removed", label))
}

func runList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	creds, err := manager.List()
	if err != nil || len(creds) == 0 {
		ui.PrintWarning("No stored tokens")
		return
	}

	for _, cred := range creds {
		safe := auth.Sanitize(cred)
		ui.PrintInfo(safe.Label, fmt.Sprintf("%s  (modified %s)",
			safe.Token, safe.LastModified.Format("2006-01-02 15:04")))
	}
}
