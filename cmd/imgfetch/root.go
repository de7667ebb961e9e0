package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"imgfetch/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
	verbose    bool
)

// errReported marks a failure whose message has already been printed
var errReported = errors.New("already reported")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgfetch [keywords...]",
	Short: "Download stock photos for a list of search keywords",
	Long: `imgfetch searches the Unsplash photo API for each keyword and saves the
matching images to a local directory as <keyword>_<photo id>.jpg.

Features:
  - Per-keyword download target with orientation and quality filters
  - Secure access key storage using the system keychain
  - Optional parallel keywords, hourly request budget and retries
  - Optional JSON manifest of everything downloaded

Running imgfetch without a subcommand is the same as 'imgfetch fetch'.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColorEnabled(false)
		}

		// The logo is only for people watching a terminal
		if verbose && ui.IsTerminal(os.Stdout) && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			ui.PrintError("Error", err.Error())
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./imgfetch.yaml or ~/.config/imgfetch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show logo and keyword progress")

	rootCmd.SetVersionTemplate(`imgfetch {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
