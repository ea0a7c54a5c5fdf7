package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/italolelis/edge_downloader/internal/logctx"
	"github.com/italolelis/edge_downloader/internal/storage"
)

// Prune walks the download history. Records whose file is gone are forgotten.
// With a positive keep, files recorded longer ago than keep are deleted along
// with their record. Claims that are still downloading are left alone. It
// returns the number of records removed.
func Prune(ctx context.Context, repo storage.DownloadRepository, keep time.Duration) (int, error) {
	logger := logctx.LoggerFromContext(ctx)
	now := time.Now()

	records, err := repo.GetDownloads(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list download history: %w", err)
	}

	pruned := 0

	for _, rec := range records {
		if rec.Status == storage.StatusDownloading {
			continue
		}

		_, err := os.Stat(rec.Path)

		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Debug("forgetting missing file", "file", rec.Path)
		case err != nil:
			logger.Error("failed to stat file", "file", rec.Path, "err", err)

			return pruned, err
		case keep > 0 && now.Sub(rec.DownloadedAt) > keep:
			if err := os.Remove(rec.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
				logger.Error("failed to delete expired file", "file", rec.Path, "err", err)

				return pruned, err
			}

			logger.Info("deleted expired file", "file", rec.Path, "downloaded_at", rec.DownloadedAt)
		default:
			continue
		}

		if err := repo.DeleteDownload(ctx, rec.Path); err != nil {
			return pruned, fmt.Errorf("failed to delete record %s: %w", rec.Path, err)
		}

		pruned++
	}

	return pruned, nil
}
