package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"imgfetch/pkg/config"
	"imgfetch/pkg/logger"
	"imgfetch/pkg/ui"
	"imgfetch/pkg/unsplash"
)

func newFlagCommand(t *testing.T, argv ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFetchFlags(cmd)
	require.NoError(t, cmd.ParseFlags(argv))
	return cmd
}

func TestFetchFlagsOnlyIncludesChangedFlags(t *testing.T) {
	logLevel = ""
	cmd := newFlagCommand(t)

	flags := fetchFlags(cmd, nil)
	assert.Empty(t, flags)
}

func TestFetchFlagsMapsToConfigKeys(t *testing.T) {
	logLevel = "debug"
	t.Cleanup(func() { logLevel = "" })

	cmd := newFlagCommand(t,
		"-o", "pics", "-n", "3", "--orientation", "", "--quality", "small",
		"--concurrent", "2", "--rate-limit", "50", "--max-retries", "4",
		"--timeout", "15s", "--manifest",
	)

	flags := fetchFlags(cmd, []string{"steak dinner plating", "  ", "sushi"})

	assert.Equal(t, []string{"steak dinner plating", "sushi"}, flags["keywords"])
	assert.Equal(t, "pics", flags["output"])
	assert.Equal(t, 3, flags["per-keyword"])
	assert.Equal(t, "", flags["orientation"], "an explicit empty orientation disables the filter")
	assert.Equal(t, "small", flags["quality"])
	assert.Equal(t, 2, flags["concurrent"])
	assert.Equal(t, 50, flags["requests-per-hour"])
	assert.Equal(t, 4, flags["max-attempts"])
	assert.Equal(t, 15*time.Second, flags["timeout"])
	assert.Equal(t, true, flags["manifest"])
	assert.Equal(t, "debug", flags["log-level"])

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, []string{"steak dinner plating", "sushi"}, cfg.Search.Keywords)
	assert.Equal(t, "pics", cfg.Output.Directory)
	assert.Empty(t, cfg.Search.Orientation)
	assert.Equal(t, 50, cfg.RateLimit.RequestsPerHour)
	assert.True(t, cfg.Output.WriteManifest)
}

func TestFetchFlagsExplicitZeroFailsValidation(t *testing.T) {
	logLevel = ""
	cmd := newFlagCommand(t, "-n", "0")

	flags := fetchFlags(cmd, nil)
	assert.Equal(t, 0, flags["per-keyword"])

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flags)
	assert.Equal(t, 0, cfg.Search.PerKeyword)
	assert.Error(t, cfg.Validate())
}

func newSearchServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			fmt.Fprintf(w, "image-%s", strings.TrimPrefix(r.URL.Path, "/img/"))
			return
		}

		var resp unsplash.SearchResponse
		for _, id := range ids {
			resp.Results = append(resp.Results, unsplash.Photo{
				ID:   id,
				URLs: map[string]string{"regular": server.URL + "/img/" + id},
			})
		}
		resp.Total = len(resp.Results)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchImagesReportsTotal(t *testing.T) {
	ui.SetColorEnabled(false)
	server := newSearchServer(t, "a1", "b2")

	cfg := config.DefaultConfig()
	cfg.Unsplash.APIURL = server.URL
	cfg.Unsplash.AccessKey = "test-key"
	cfg.Search.Keywords = []string{"steak dinner plating"}
	cfg.Search.PerKeyword = 2
	cfg.Output.Directory = filepath.Join(t.TempDir(), "out")

	var out bytes.Buffer
	summary, err := fetchImages(context.Background(), cfg, &out, logger.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalDownloaded)
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "steak_dinner_plating_a1.jpg"))
	assert.FileExists(t, filepath.Join(cfg.Output.Directory, "steak_dinner_plating_b2.jpg"))
	assert.Contains(t, out.String(), "Downloaded 2 images to "+cfg.Output.Directory)
}

func TestFetchImagesDirectoryFailure(t *testing.T) {
	ui.SetColorEnabled(false)
	server := newSearchServer(t, "a1")

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	cfg := config.DefaultConfig()
	cfg.Unsplash.APIURL = server.URL
	cfg.Unsplash.AccessKey = "test-key"
	cfg.Output.Directory = filepath.Join(blocker, "out")

	var out bytes.Buffer
	summary, err := fetchImages(context.Background(), cfg, &out, logger.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.Contains(t, out.String(), "Cannot create directory")
}

func TestLooksLikeAccessKey(t *testing.T) {
	assert.True(t, looksLikeAccessKey("abcDEF123_-abcDEF123_-xyz"))
	assert.False(t, looksLikeAccessKey("short"))
	assert.False(t, looksLikeAccessKey("has spaces in the middle of it"))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "***", maskSecret("short"))
	assert.Equal(t, "abcd...6789", maskSecret("abcdefgh0123456789"))
}
