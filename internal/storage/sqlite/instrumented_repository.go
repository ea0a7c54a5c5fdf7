package sqlite

import (
	"context"
	"database/sql"

	"github.com/italolelis/edge_downloader/internal/storage"
	"github.com/italolelis/edge_downloader/internal/telemetry"
)

// InstrumentedDownloadRepository wraps DownloadRepository with telemetry.
type InstrumentedDownloadRepository struct {
	repo      *DownloadRepository
	telemetry *telemetry.Telemetry
}

var _ storage.DownloadRepository = (*InstrumentedDownloadRepository)(nil)

// NewInstrumentedDownloadRepository creates a new instrumented download repository.
func NewInstrumentedDownloadRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedDownloadRepository {
	return &InstrumentedDownloadRepository{
		repo:      NewDownloadRepository(dbConn),
		telemetry: tel,
	}
}

// GetDownload retrieves a download with telemetry.
func (r *InstrumentedDownloadRepository) GetDownload(ctx context.Context, path string) (*storage.DownloadRecord, error) {
	var result *storage.DownloadRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_download", func(ctx context.Context) error {
		var err error
		result, err = r.repo.GetDownload(ctx, path)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetDownloads retrieves all downloads with telemetry.
func (r *InstrumentedDownloadRepository) GetDownloads(ctx context.Context) ([]storage.DownloadRecord, error) {
	var result []storage.DownloadRecord

	err := r.telemetry.InstrumentDBOperation(ctx, "get_downloads", func(ctx context.Context) error {
		var err error
		result, err = r.repo.GetDownloads(ctx)

		return err
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ClaimDownload claims a download with telemetry.
func (r *InstrumentedDownloadRepository) ClaimDownload(ctx context.Context, record storage.DownloadRecord) (bool, error) {
	var result bool

	err := r.telemetry.InstrumentDBOperation(ctx, "claim_download", func(ctx context.Context) error {
		var err error
		result, err = r.repo.ClaimDownload(ctx, record)

		return err
	})
	if err != nil {
		return false, err
	}

	return result, nil
}

// UpdateDownloadStatus updates download status with telemetry.
func (r *InstrumentedDownloadRepository) UpdateDownloadStatus(ctx context.Context, path, status string, size int64) error {
	return r.telemetry.InstrumentDBOperation(ctx, "update_download_status", func(ctx context.Context) error {
		return r.repo.UpdateDownloadStatus(ctx, path, status, size)
	})
}

// DeleteDownload removes a download record with telemetry.
func (r *InstrumentedDownloadRepository) DeleteDownload(ctx context.Context, path string) error {
	return r.telemetry.InstrumentDBOperation(ctx, "delete_download", func(ctx context.Context) error {
		return r.repo.DeleteDownload(ctx, path)
	})
}
