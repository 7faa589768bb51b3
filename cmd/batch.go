package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dget-io/dget/internal/fetch"
	"github.com/dget-io/dget/internal/output"
	"github.com/dget-io/dget/internal/utils"
)

func newBatchCmd() *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "batch [LIST_FILE]",
		Short: "Download every entry of a YAML list file",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			utils.InitLogger(debug)
			entries, err := readDownloadList(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to read list file: %v", err))
				os.Exit(1)
			}
			if failed := runBatch(entries, workers); failed > 0 {
				output.PrintError(fmt.Sprintf("%d of %d downloads failed", failed, len(entries)))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Downloaded %d files", len(entries)))
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of entries to download in parallel")
	return cmd
}

func readDownloadList(path string) ([]utils.FetchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []utils.FetchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing %s: %v", path, err)
	}
	for i, entry := range entries {
		if entry.URL == "" {
			return nil, fmt.Errorf("entry %d has no link", i+1)
		}
	}
	return entries, nil
}

// runBatch drains the entries through a small worker pool. Entries must
// target distinct output paths; concurrent writers to one destination are
// not coordinated.
func runBatch(entries []utils.FetchEntry, workers int) int {
	log := utils.GetLogger("batch")
	if workers < 1 {
		workers = 1
	}
	entryCh := make(chan utils.FetchEntry, len(entries))
	for _, entry := range entries {
		entryCh <- entry
	}
	close(entryCh)

	var failed int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			logger := log.With().Int("workerID", workerID).Logger()
			for entry := range entryCh {
				kind, err := utils.ParseArchiveKind(entry.Kind)
				if err != nil {
					logger.Error().Err(err).Str("link", entry.URL).Msg("Skipping entry")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				cfg := httpClientConfig()
				dest := entry.OutputPath
				if dest == "" {
					dest = inferDest(entry.URL, cfg)
				}
				job := utils.FetchJob{
					URL:              entry.URL,
					OutputPath:       dest,
					Kind:             kind,
					Resume:           true,
					ExpectedHash:     entry.Hash,
					HTTPClientConfig: cfg,
				}
				if _, err := fetch.Download(&job); err != nil {
					logger.Error().Err(err).Str("link", entry.URL).Msg("Download failed")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				logger.Info().Str("path", dest).Msg("Downloaded")
			}
		}(i + 1)
	}
	wg.Wait()
	return failed
}
