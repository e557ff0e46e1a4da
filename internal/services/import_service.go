package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openninety/api/internal/archive"
	"github.com/openninety/api/internal/form990"
	"github.com/openninety/api/internal/logger"
	"github.com/openninety/api/internal/repository"
)

const (
	// errorSampleLimit caps how many per-document failures are echoed back
	// in the statistics; every failure is still logged in full.
	errorSampleLimit = 10

	// progressLogEvery controls how often the run logs a progress line.
	progressLogEvery = 100
)

// ErrArchiveUnavailable marks a run that died before any document was
// processed: the archive could not be downloaded or expanded.
var ErrArchiveUnavailable = errors.New("archive download or expansion failed")

// ImportError is one sampled per-document failure.
type ImportError struct {
	Document string `json:"document"`
	Reason   string `json:"reason"`
}

// ImportStats summarizes one ingestion run. Saved never exceeds Processed,
// and Processed never exceeds TotalFiles.
type ImportStats struct {
	TotalFiles      int           `json:"totalFiles"`
	Processed       int           `json:"processed"`
	Saved           int           `json:"saved"`
	ErrorCount      int           `json:"errorCount"`
	ErrorSample     []ImportError `json:"errorSample"`
	DurationSeconds float64       `json:"durationSeconds"`
}

// SuccessRatePercent reports saved as a share of processed documents.
func (s *ImportStats) SuccessRatePercent() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Saved) / float64(s.Processed) * 100
}

// ImportService defines the interface for archive ingestion runs.
type ImportService interface {
	// Run downloads the archive at archiveURL, expands it, and imports every
	// XML filing it contains. maxRecords > 0 caps how many documents are
	// processed. ctx governs only the acquisition of the archive; once
	// processing starts the run is detached from it and completes even if the
	// caller goes away. Per-document failures are recorded in the statistics
	// and do not abort the run; returns ErrArchiveUnavailable when the archive
	// itself cannot be fetched or expanded.
	Run(ctx context.Context, archiveURL string, maxRecords int) (*ImportStats, error)
}

// importService is the concrete implementation of ImportService.
type importService struct {
	fetcher *archive.Fetcher
	workDir string
	repo    repository.OrganizationRepository
	log     *logger.Logger
}

// NewImportService creates a new instance of ImportService. workDir may be
// empty to use the system temp directory.
func NewImportService(fetcher *archive.Fetcher, workDir string, repo repository.OrganizationRepository, log *logger.Logger) ImportService {
	return &importService{
		fetcher: fetcher,
		workDir: workDir,
		repo:    repo,
		log:     log,
	}
}

// Run executes one ingestion: acquire, expand, then a sequential
// per-document loop of parse, map, upsert. The workspace is removed on every
// exit path.
func (s *importService) Run(ctx context.Context, archiveURL string, maxRecords int) (*ImportStats, error) {
	start := time.Now()

	workspace, err := archive.NewWorkspace(s.workDir)
	if err != nil {
		s.log.Error("Failed to create import workspace", err, nil)
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}
	defer func() {
		if err := workspace.Close(); err != nil {
			s.log.Warn("Failed to remove import workspace", map[string]interface{}{
				"workspace": workspace.Root(),
				"error":     err.Error(),
			})
		}
	}()

	s.log.Info("Downloading filing archive", map[string]interface{}{
		"url": archiveURL,
	})
	size, err := s.fetcher.Download(ctx, archiveURL, workspace.ArchivePath())
	if err != nil {
		s.log.Error("Failed to download filing archive", err, map[string]interface{}{
			"url": archiveURL,
		})
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	extracted, err := workspace.Expand(workspace.ArchivePath())
	if err != nil {
		s.log.Error("Failed to expand filing archive", err, map[string]interface{}{
			"url": archiveURL,
		})
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	files, err := workspace.XMLFiles()
	if err != nil {
		s.log.Error("Failed to enumerate filing documents", err, nil)
		return nil, fmt.Errorf("%w: %v", ErrArchiveUnavailable, err)
	}

	s.log.Info("Filing archive ready", map[string]interface{}{
		"url":           archiveURL,
		"archive_bytes": size,
		"entries":       extracted,
		"xml_documents": len(files),
		"max_records":   maxRecords,
	})

	stats := &ImportStats{
		TotalFiles:  len(files),
		ErrorSample: make([]ImportError, 0, errorSampleLimit),
	}

	if maxRecords > 0 && len(files) > maxRecords {
		files = files[:maxRecords]
	}

	// Once processing starts the run is detached from the caller's context;
	// a dropped client connection must not truncate the batch.
	ctx = context.WithoutCancel(ctx)

	for _, path := range files {
		stats.Processed++

		content, err := os.ReadFile(path)
		if err != nil {
			s.recordFailure(stats, path, err)
			continue
		}
		tree, err := form990.Parse(content)
		if err != nil {
			s.recordFailure(stats, path, err)
			continue
		}
		filing, err := form990.Map(tree)
		if err != nil {
			s.recordFailure(stats, path, err)
			continue
		}
		if _, err := s.repo.Upsert(ctx, &filing.Organization, filing.Personnel, filing.Expenses); err != nil {
			s.recordFailure(stats, path, err)
			continue
		}

		stats.Saved++
		if stats.Saved%progressLogEvery == 0 {
			s.log.Info("Import progress", map[string]interface{}{
				"saved":     stats.Saved,
				"processed": stats.Processed,
				"total":     stats.TotalFiles,
			})
		}
		if maxRecords > 0 && stats.Saved == maxRecords {
			s.log.Info("Reached record limit, stopping early", map[string]interface{}{
				"max_records": maxRecords,
			})
			break
		}
	}

	stats.DurationSeconds = time.Since(start).Seconds()

	s.log.Info("Import run complete", map[string]interface{}{
		"total_files":      stats.TotalFiles,
		"processed":        stats.Processed,
		"saved":            stats.Saved,
		"errors":           stats.ErrorCount,
		"duration_seconds": stats.DurationSeconds,
	})

	return stats, nil
}

// recordFailure counts one per-document failure, samples it for the caller,
// and logs it in full.
func (s *importService) recordFailure(stats *ImportStats, path string, err error) {
	stats.ErrorCount++
	if len(stats.ErrorSample) < errorSampleLimit {
		stats.ErrorSample = append(stats.ErrorSample, ImportError{
			Document: filepath.Base(path),
			Reason:   err.Error(),
		})
	}
	s.log.Error("Failed to import document", err, map[string]interface{}{
		"document": filepath.Base(path),
	})
}
