package fetch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dget-io/dget/internal/archive"
	"github.com/dget-io/dget/internal/provider"
	"github.com/dget-io/dget/internal/utils"
)

// Download is the public entry point. It normalizes provider share links,
// decides between the skip / direct-file / archive branches and returns the
// final path written.
func Download(job *utils.FetchJob) (string, error) {
	log := utils.GetLogger("fetch")
	if job.OutputPath == "" {
		return "", &ValidationError{Reason: "destination path must not be empty (use . for the current directory)"}
	}
	if _, err := utils.ParseArchiveKind(string(job.Kind)); err != nil {
		return "", &ValidationError{Reason: err.Error()}
	}
	if job.ExpectedHash != "" {
		if err := ValidateHash(job.ExpectedHash); err != nil {
			return "", err
		}
	}

	if !job.Replace {
		if _, err := os.Stat(job.OutputPath); err == nil {
			log.Info().Str("path", job.OutputPath).Msg("Destination exists and replace is off, skipping download")
			return job.OutputPath, nil
		}
	}

	downloadURL := provider.Normalize(job.URL)
	if downloadURL != job.URL {
		log.Debug().Str("url", job.URL).Str("rewritten", downloadURL).Msg("Normalized provider share link")
	}
	engine := NewEngine(job.HTTPClientConfig, job.ProgressFunc)

	if job.Kind != "" && job.Kind != utils.KindNone {
		return downloadArchive(engine, job, downloadURL)
	}

	if dir := filepath.Dir(job.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("creating output directory: %v", err)
		}
	}
	if err := engine.Fetch(downloadURL, job.OutputPath, job.Resume, job.ExpectedHash); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}

// downloadArchive stages the artifact in a scoped temporary directory,
// extracts it into the destination directory and always removes the staged
// archive.
func downloadArchive(engine *Engine, job *utils.FetchJob, downloadURL string) (string, error) {
	log := utils.GetLogger("fetch")
	if err := os.MkdirAll(job.OutputPath, 0755); err != nil {
		return "", fmt.Errorf("creating destination directory: %v", err)
	}

	stageDir := filepath.Join(os.TempDir(), "dget-stage-"+uuid.NewString())
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %v", err)
	}
	defer os.RemoveAll(stageDir)

	staged := filepath.Join(stageDir, "artifact."+string(job.Kind))
	if err := engine.Fetch(downloadURL, staged, job.Resume, job.ExpectedHash); err != nil {
		return "", err
	}
	log.Info().Str("kind", string(job.Kind)).Str("dest", job.OutputPath).Msg("Extracting archive")
	if err := archive.Extract(staged, job.OutputPath, job.Kind); err != nil {
		return "", err
	}
	return job.OutputPath, nil
}
