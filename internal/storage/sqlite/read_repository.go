package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/italolelis/edge_downloader/internal/storage"
)

type DownloadReadRepository struct {
	db *sql.DB
}

func NewDownloadReadRepository(dbConn *sql.DB) *DownloadReadRepository {
	return &DownloadReadRepository{db: dbConn}
}

const selectDownloads = `SELECT file_path, url, sha256, size, downloaded_at, status, locked_by FROM downloads`

// GetDownload returns the record for path, or storage.ErrNotFound.
func (r *DownloadReadRepository) GetDownload(ctx context.Context, path string) (*storage.DownloadRecord, error) {
	row := r.db.QueryRowContext(ctx, selectDownloads+` WHERE file_path = ?`, path)

	record, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	return record, nil
}

// GetDownloads returns every record ordered by path.
func (r *DownloadReadRepository) GetDownloads(ctx context.Context) ([]storage.DownloadRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectDownloads+` ORDER BY file_path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []storage.DownloadRecord

	for rows.Next() {
		record, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}

		downloads = append(downloads, *record)
	}

	return downloads, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*storage.DownloadRecord, error) {
	var (
		record       storage.DownloadRecord
		sum          sql.NullString
		downloadedAt sql.NullString
		lockedBy     sql.NullString
	)

	if err := s.Scan(&record.Path, &record.URL, &sum, &record.Size, &downloadedAt, &record.Status, &lockedBy); err != nil {
		return nil, err
	}

	if sum.Valid && sum.String != "" {
		b, err := hex.DecodeString(sum.String)
		if err != nil {
			return nil, fmt.Errorf("invalid stored digest for %s: %w", record.Path, err)
		}

		record.Sha256 = b
	}

	if downloadedAt.Valid {
		t, err := time.Parse(time.RFC3339, downloadedAt.String)
		if err == nil {
			record.DownloadedAt = t
		}
	}

	record.LockedBy = lockedBy.String

	return &record, nil
}
