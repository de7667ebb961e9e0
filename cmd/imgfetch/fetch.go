package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"imgfetch/pkg/auth"
	"imgfetch/pkg/config"
	"imgfetch/pkg/errors"
	"imgfetch/pkg/fetcher"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/ui"
	"imgfetch/pkg/unsplash"
)

var (
	// Fetch command flags
	outputDir   string
	perKeyword  int
	orientation string
	quality     string
	accessKey   string
	accountName string
	concurrent  int
	rateLimit   int
	maxRetries  int
	timeout     time.Duration
	manifest    bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [keywords...]",
	Short: "Search and download images for each keyword",
	Long: `Search the photo API for each keyword and download up to --per-keyword
images into the output directory.

Keywords given on the command line replace the configured list. The access key
is taken from --access-key, IMGFETCH_ACCESS_KEY or the config file, and
otherwise from the credential store (see 'imgfetch auth login').

Failures for a single image or keyword are reported and the run continues.
The command only fails when the output directory cannot be created, the
configuration is invalid, or no access key is available.`,
	Example: `  # Download the default food keywords
  imgfetch fetch

  # Three portrait images per keyword into ./pics
  imgfetch fetch "steak dinner plating" "sushi platter" -n 3 --orientation portrait -o ./pics

  # Stay under the demo API budget and keep a manifest
  imgfetch fetch --rate-limit 50 --manifest`,
	Args: cobra.ArbitraryArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	addFetchFlags(fetchCmd)

	// Fetching is the default action of the root command
	addFetchFlags(rootCmd)
	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.RunE = runFetch
}

func addFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: downloaded_food_images)")
	cmd.Flags().IntVarP(&perKeyword, "per-keyword", "n", 0, "images to download per keyword (default: 5, max 30)")
	cmd.Flags().StringVar(&orientation, "orientation", "", "orientation filter: landscape, portrait or squarish (default: landscape)")
	cmd.Flags().StringVar(&quality, "quality", "", "image quality: raw, full, regular, small or thumb (default: regular)")
	cmd.Flags().StringVar(&accessKey, "access-key", "", "Unsplash access key")
	cmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored access key")
	cmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of keywords processed in parallel (default: 1)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "search requests per hour, 0 disables the budget")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "attempts per search request (default: 1, no retry)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP timeout per request, 0 waits forever")
	cmd.Flags().BoolVar(&manifest, "manifest", false, "write manifest.json describing the downloaded images")
}

// fetchFlags collects the flags the user actually set, keyed the way config.MergeCommandLineFlags expects
func fetchFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	var keywords []string
	for _, arg := range args {
		if k := strings.TrimSpace(arg); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) > 0 {
		flags["keywords"] = keywords
	}

	if changed("output") {
		flags["output"] = outputDir
	}
	if changed("per-keyword") {
		flags["per-keyword"] = perKeyword
	}
	if changed("orientation") {
		flags["orientation"] = orientation
	}
	if changed("quality") {
		flags["quality"] = quality
	}
	if changed("access-key") {
		flags["access-key"] = accessKey
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if changed("rate-limit") {
		flags["requests-per-hour"] = rateLimit
	}
	if changed("max-retries") {
		flags["max-attempts"] = maxRetries
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("manifest") {
		flags["manifest"] = manifest
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	return flags
}

func runFetch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configFile, fetchFlags(cmd, args))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return errReported
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		return errReported
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("imgfetch starting")

	if err := resolveAccessKey(cfg, out); err != nil {
		log.WithError(err).Error("No access key available")
		return errReported
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := fetchImages(ctx, cfg, out, log)
	if err != nil {
		return errReported
	}

	if summary.Interrupted {
		log.WithField("downloaded", summary.TotalDownloaded).Warn("Run interrupted")
	}
	log.InfoWithFields("Fetch finished", map[string]interface{}{
		"downloaded":  summary.TotalDownloaded,
		"output_dir":  summary.OutputDir,
		"duration_ms": summary.Duration.Milliseconds(),
	})
	return nil
}

// resolveAccessKey fills cfg with a stored key when neither flags, env nor the config file supplied one
func resolveAccessKey(cfg *config.Config, out io.Writer) error {
	if cfg.Unsplash.AccessKey != "" && accountName == "" {
		return nil
	}

	credManager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	key, err := credManager.ResolveAccessKey(accountName)
	if err != nil {
		if accountName != "" {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Available accounts", "Use 'imgfetch auth list' to see stored keys")
			return err
		}
		ui.PrintError("No Unsplash access key found", "")
		fmt.Fprintln(out, "\nTo store an access key securely, run:")
		fmt.Fprintln(out, "  imgfetch auth login")
		fmt.Fprintln(out, "\nOr provide it for a single run:")
		fmt.Fprintf(out, "  export %s=your_access_key\n", auth.AccessKeyEnv)
		return err
	}

	cfg.Unsplash.AccessKey = key
	return nil
}

// fetchImages runs one fetch with console reporting. It only fails when the
// output directory cannot be prepared.
func fetchImages(ctx context.Context, cfg *config.Config, out io.Writer, log logger.Logger) (*fetcher.Summary, error) {
	client := unsplash.NewClient(&cfg.Unsplash, cfg.Download.Timeout, log)

	reporter := ui.NewReporter(out, cfg.Search.PerKeyword, len(cfg.Search.Keywords))
	reporter.SetVerbose(verbose)

	f := fetcher.New(cfg, client, fetcher.Handlers(reporter.Handle, fetcher.LogEvents(log)), log)

	summary, err := f.Run(ctx)
	if err != nil {
		if errors.Is(err, errors.KindStorage) {
			reporter.PrintDirectoryError(cfg.Output.Directory, err)
		} else {
			ui.PrintError("Fetch failed", err.Error())
		}
		return nil, err
	}

	if summary.ManifestPath != "" {
		fmt.Fprintf(out, "%s %s\n", ui.Dim("Manifest:"), summary.ManifestPath)
	}
	return summary, nil
}
