package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"imgfetch/pkg/config"
	"imgfetch/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgfetch configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGFETCH_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is created in the current directory as 'imgfetch.yaml' unless a
different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source.

The access key is masked.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Keyword list and per-keyword target
  - Orientation and quality values
  - Output directory accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "imgfetch.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Fprintln(cmd.OutOrStdout(), "\nTo overwrite, first remove the existing file:")
		fmt.Fprintf(cmd.OutOrStdout(), "  rm %s\n", configPath)
		return errReported
	}

	// The access key belongs in the credential store, not in a file that may be shared
	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return errReported
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the keyword list and output directory")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Store your access key with 'imgfetch auth login'")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start downloading with 'imgfetch fetch'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return errReported
	}

	displayCfg := *cfg
	displayCfg.Unsplash.AccessKey = maskSecret(displayCfg.Unsplash.AccessKey)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return errReported
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Magenta("Current Configuration"))
	fmt.Fprintln(out)
	fmt.Fprint(out, string(data))

	fmt.Fprintln(out, "\nConfiguration sources (in order of priority):")
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "2. Environment variables (IMGFETCH_*)")
	fmt.Fprintln(out, "3. .env files (./.env, ~/.imgfetch.env)")
	if configFile != "" {
		fmt.Fprintf(out, "4. Configuration file: %s\n", configFile)
	} else {
		fmt.Fprintln(out, "4. Configuration file: (searched in standard locations)")
	}
	fmt.Fprintln(out, "5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		home, _ := os.UserHomeDir()
		possiblePaths := []string{
			"imgfetch.yaml",
			".imgfetch.yaml",
			".imgfetch.yml",
			filepath.Join(home, ".config", "imgfetch", "config.yaml"),
			filepath.Join(home, ".imgfetch.yaml"),
		}

		for _, p := range possiblePaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}

		if path == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			return errReported
		}
	}

	ui.PrintInfo("Validating configuration", path)

	cfg, err := config.Load(path, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return errReported
	}

	var warnings, problems []string

	if cfg.Unsplash.AccessKey == "" {
		warnings = append(warnings, "access key not configured; it must come from the credential store or IMGFETCH_ACCESS_KEY")
	}
	if cfg.Search.Orientation == "" {
		warnings = append(warnings, "orientation filter disabled; results may mix shapes")
	}
	if cfg.RateLimit.RequestsPerHour > 0 && cfg.RateLimit.RequestsPerHour < len(cfg.Search.Keywords) {
		warnings = append(warnings, fmt.Sprintf("requests_per_hour (%d) is lower than the number of keywords (%d)",
			cfg.RateLimit.RequestsPerHour, len(cfg.Search.Keywords)))
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	out := cmd.OutOrStdout()
	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Fprintf(out, "  - %s\n", p)
		}
		return errReported
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
		fmt.Fprintln(out)
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Keywords: %d\n", len(cfg.Search.Keywords))
	fmt.Fprintf(out, "  Per keyword: %d (%s, %s)\n", cfg.Search.PerKeyword, cfg.Search.Quality, orientationLabel(cfg.Search.Orientation))
	fmt.Fprintf(out, "  Output directory: %s\n", cfg.Output.Directory)
	fmt.Fprintf(out, "  Concurrent keywords: %d\n", cfg.Download.ConcurrentKeywords)
	fmt.Fprintf(out, "  Rate limit: %s\n", rateLimitLabel(cfg.RateLimit.RequestsPerHour))
	fmt.Fprintf(out, "  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 8 {
		return s[:4] + "..." + s[len(s)-4:]
	}
	return "***"
}

func orientationLabel(o string) string {
	if o == "" {
		return "any orientation"
	}
	return o
}

func rateLimitLabel(perHour int) string {
	if perHour <= 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d requests/hour", perHour)
}
