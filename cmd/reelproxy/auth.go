package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reelproxy/pkg/auth"
	"reelproxy/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram session cookies",
	Long: `Manage the Instagram session cookies used for media lookups.

Sessions are stored in the system keychain when available, otherwise in an
encrypted file under the reelproxy config directory. REELPROXY_SESSION_ID
and REELPROXY_CSRF_TOKEN are read as a fallback.

Never share your cookies or the credential file!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store Instagram session cookies",
	Long: `Store the sessionid and csrftoken cookies of a logged-in browser session.

The values are read without echo. Type 'help' at any prompt for
instructions on finding them.`,
	Example: `  reelproxy auth login
  reelproxy auth login myaccount`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove a stored session",
	Args:  cobra.ExactArgs(1),
	Run:   runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List stored Instagram sessions with their cookies masked.`,
	Args:  cobra.NoArgs,
	Run:   runList,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session lookups will use",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(statusCmd)
}

func credentialManager() *auth.Manager {
	manager, err := auth.NewManager(accountName)
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err)
		os.Exit(1)
	}
	return manager
}

func runLogin(cmd *cobra.Command, args []string) {
	manager := credentialManager()
	reader := bufio.NewReader(os.Stdin)

	auth.WriteCookieGuide(os.Stdout)

	var username string
	if len(args) > 0 {
		username = strings.TrimSpace(args[0])
	}
	for username == "" {
		fmt.Print("Instagram username: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err)
			os.Exit(1)
		}
		username = strings.TrimSpace(input)
		if username == "help" {
			auth.WriteCookieGuide(os.Stdout)
			username = ""
		}
	}

	if existing, _ := manager.Retrieve(username); existing != nil {
		fmt.Printf("Account '%s' already exists. Replace its cookies? (y/N): ", username)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Println("\nCookie values are hidden as you type.")
	sessionID := promptSecret(reader, "sessionid: ", func(v string) string {
		if len(v) < 20 || !strings.Contains(v, "%") {
			return "a sessionid is a long string containing %3A"
		}
		return ""
	})
	csrfToken := promptSecret(reader, "csrftoken: ", func(v string) string {
		if len(v) < 20 || len(v) > 64 {
			return "a csrftoken is about 32 characters"
		}
		return ""
	})

	fmt.Print("User agent (Enter for default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err)
		os.Exit(1)
	}

	ui.PrintSuccess("Session saved for " + username)
	fmt.Println("\nA running 'reelproxy serve' picks it up after: kill -HUP <pid>")
}

// promptSecret reads a hidden value until check accepts it or the user gives up
func promptSecret(reader *bufio.Reader, prompt string, check func(string) string) string {
	for {
		fmt.Print(prompt)
		value, err := readSecret(reader)
		if err != nil {
			ui.PrintError("Failed to read input", err)
			os.Exit(1)
		}
		if value == "help" {
			auth.WriteQuickGuide(os.Stdout)
			auth.WriteCookieGuide(os.Stdout)
			continue
		}
		problem := check(value)
		if problem == "" {
			return value
		}

		ui.PrintWarning("That does not look right: " + problem)
		fmt.Print("Use it anyway? (y/N): ")
		input, _ := reader.ReadString('\n')
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") && value != "" {
			return value
		}
	}
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func runLogout(cmd *cobra.Command, args []string) {
	manager := credentialManager()

	username := args[0]
	if err := manager.Delete(username); err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) {
			ui.PrintError("No stored session for " + username)
		} else {
			ui.PrintError("Failed to remove account", err)
		}
		os.Exit(1)
	}
	ui.PrintSuccess("Account removed: " + username)
}

func runList(cmd *cobra.Command, args []string) {
	manager := credentialManager()

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "use 'reelproxy auth login' to add one")
		return
	}

	ui.PrintHighlight("Stored accounts")
	for i, account := range accounts {
		printAccount(i+1, auth.SanitizeAccount(account))
	}
}

func runStatus(cmd *cobra.Command, args []string) {
	manager := credentialManager()

	active, err := manager.Active()
	if errors.Is(err, auth.ErrCredentialsNotFound) {
		ui.PrintWarning("No Instagram session; lookups are anonymous")
		auth.WriteQuickGuide(os.Stdout)
		return
	}
	if err != nil {
		ui.PrintError("Failed to read credentials", err)
		os.Exit(1)
	}

	ui.PrintHighlight("Active session")
	printAccount(0, auth.SanitizeAccount(active))
}

func printAccount(n int, account *auth.Account) {
	if n > 0 {
		fmt.Printf("%d. ", n)
	}
	fmt.Printf("Username: %s\n", account.Username)
	fmt.Printf("   Session ID: %s\n", account.SessionID)
	fmt.Printf("   CSRF Token: %s\n", account.CSRFToken)
	if account.UserAgent != "" {
		fmt.Printf("   User Agent: %s\n", account.UserAgent)
	}
	if !account.LastModified.IsZero() {
		fmt.Printf("   Last Modified: %s\n", account.LastModified.Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("   Source: environment")
	}
}
