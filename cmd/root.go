package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dget-io/dget/internal/fetch"
	"github.com/dget-io/dget/internal/output"
	"github.com/dget-io/dget/internal/provider"
	"github.com/dget-io/dget/internal/utils"
)

var (
	outputPath   string
	archiveKind  string
	expectedHash string
	resume       bool
	replace      bool
	noProgress   bool
	debug        bool
	timeout      time.Duration
	userAgent    string
	proxyURL     string
	headers      []string
)

var DgetVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "dget [URL]",
	Short:   "dget fetches remote files with resume, checksum and archive support",
	Version: DgetVersion,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		kind, err := utils.ParseArchiveKind(archiveKind)
		if err != nil {
			output.PrintError(err.Error())
			os.Exit(1)
		}
		cfg := httpClientConfig()
		dest := outputPath
		if dest == "" {
			dest = inferDest(args[0], cfg)
		}
		job := utils.FetchJob{
			URL:              args[0],
			OutputPath:       dest,
			Kind:             kind,
			Resume:           resume,
			Replace:          replace,
			ExpectedHash:     expectedHash,
			HTTPClientConfig: cfg,
		}
		var bar *output.ProgressBar
		if !noProgress {
			bar = output.NewProgressBar(dest)
			job.ProgressFunc = bar.Update
		}
		finalPath, err := fetch.Download(&job)
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			output.PrintError(fmt.Sprintf("Download failed: %v", err))
			os.Exit(1)
		}
		output.PrintSuccess(fmt.Sprintf("%s %s", output.StyleSymbols["pass"], finalPath))
	},
}

func httpClientConfig() utils.HTTPClientConfig {
	return utils.HTTPClientConfig{
		Timeout:   timeout,
		UserAgent: userAgent,
		ProxyURL:  proxyURL,
		Headers:   utils.ParseHeaderArgs(headers),
	}
}

// inferDest derives a file name when --output is omitted: the server's
// Content-Disposition filename when it advertises one, the last URL path
// segment otherwise.
func inferDest(rawURL string, cfg utils.HTTPClientConfig) string {
	link := provider.Normalize(rawURL)
	if name := utils.RemoteFileName(link, utils.NewHTTPClient(cfg)); name != "" {
		return name
	}
	return utils.InferOutputPath(link)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 60*time.Second, "Network operation timeout (eg. 5s, 10m)")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", "", "User agent")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'Authorization: Basic ...'); can be specified multiple times")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file or directory path (inferred from the URL if not provided)")
	rootCmd.Flags().StringVarP(&archiveKind, "kind", "k", "none", "Artifact kind: none, zip, tar or tar.gz (non-none kinds are extracted)")
	rootCmd.Flags().StringVar(&expectedHash, "hash", "", "Expected hex digest of the downloaded file (md5 or sha256, chosen by length)")
	rootCmd.Flags().BoolVarP(&resume, "resume", "r", true, "Resume a partially completed download from its part file")
	rootCmd.Flags().BoolVar(&replace, "replace", false, "Re-download even if the destination already exists")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}
