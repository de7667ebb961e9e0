package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"imgfetch/pkg/auth"
	"imgfetch/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Unsplash access keys",
	Long: `Manage stored Unsplash access keys securely.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variable IMGFETCH_ACCESS_KEY (read only)

Never share your access key or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store an access key securely",
	Long: `Store an Unsplash access key in the system keychain or an encrypted file.

The key is stored under the given name, or 'default' when no name is given.
You will be prompted for the key; it is not echoed to the terminal.`,
	Example: `  # Store the default key
  imgfetch auth login

  # Store a second key under a name
  imgfetch auth login work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored access keys",
	Long: `Remove a stored access key.

If no name is provided, you will be shown a list of stored keys to choose
from. You can also remove all keys at once.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored access keys",
	Long:  `List stored access keys with the key itself masked.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return errReported
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)

	name := auth.DefaultAccountName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(out, "Key '%s' already exists. Replace it? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	auth.ShowQuickGuide(out)
	fmt.Fprintln(out)

	var key string
	for {
		fmt.Fprint(out, "Access key: ")
		key, err = readSecret(reader)
		if err != nil {
			ui.PrintError("Failed to read access key", err.Error())
			return errReported
		}

		if key == "help" {
			auth.ShowAccessKeyGuide(out)
			continue
		}

		if !looksLikeAccessKey(key) {
			fmt.Fprintln(out, "\nThat doesn't look like an access key.")
			fmt.Fprintln(out, "   It should be a long string of letters, digits, '-' and '_'.")
			fmt.Fprint(out, "\nTry again? (Y/n): ")
			again, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(again)) == "n" {
				return errReported
			}
			continue
		}
		break
	}

	account := &auth.Account{Name: name, AccessKey: key}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store access key", err.Error())
		return errReported
	}

	ui.PrintSuccess(fmt.Sprintf("Access key saved: %s (%s)", name, auth.SanitizeAccount(account).AccessKey))

	fmt.Fprintln(out, "\nStart downloading with:")
	if name == auth.DefaultAccountName {
		fmt.Fprintln(out, "   $ imgfetch fetch")
	} else {
		fmt.Fprintf(out, "   $ imgfetch fetch --account %s\n", name)
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func looksLikeAccessKey(key string) bool {
	if len(key) < 20 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return errReported
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)

	if len(args) > 0 {
		return removeAccount(manager, args[0])
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		ui.PrintError("No stored access keys found")
		return nil
	}

	if len(accounts) == 1 {
		fmt.Fprintf(out, "Remove key '%s'? (y/N): ", accounts[0].Name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
		return removeAccount(manager, accounts[0].Name)
	}

	fmt.Fprintln(out, "Select key to remove:")
	for i, account := range accounts {
		fmt.Fprintf(out, "  %d. %s\n", i+1, account.Name)
	}
	fmt.Fprintf(out, "  %d. Remove all keys\n", len(accounts)+1)
	fmt.Fprintf(out, "  0. Cancel\n\n")

	fmt.Fprint(out, "Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(accounts)+1:
		fmt.Fprint(out, "Remove ALL keys? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return nil
		}
		if err := manager.DeleteAll(); err != nil {
			ui.PrintError("Failed to remove all keys", err.Error())
			return errReported
		}
		ui.PrintSuccess("All access keys removed")
		return nil
	case choice > 0 && choice <= len(accounts):
		return removeAccount(manager, accounts[choice-1].Name)
	default:
		ui.PrintError("Invalid choice")
		return errReported
	}
}

func removeAccount(manager *auth.Manager, name string) error {
	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove access key", err.Error())
		return errReported
	}
	ui.PrintSuccess("Access key removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return errReported
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list access keys", err.Error())
		return errReported
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored access keys", "Use 'imgfetch auth login' to add one")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Magenta("Stored Access Keys"))
	fmt.Fprintln(out)

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Fprintf(out, "%d. Name: %s\n", i+1, sanitized.Name)
		fmt.Fprintf(out, "   Access Key: %s\n", sanitized.AccessKey)
		if !sanitized.CreatedAt.IsZero() {
			fmt.Fprintf(out, "   Created: %s\n", sanitized.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if sanitized.LastUsed.IsZero() {
			fmt.Fprintln(out, "   Last Used: never")
		} else {
			fmt.Fprintf(out, "   Last Used: %s\n", sanitized.LastUsed.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(out)
	}
	return nil
}
