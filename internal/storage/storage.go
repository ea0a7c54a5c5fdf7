package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDownloaded is returned when a file is already on disk and verified.
	ErrDownloaded = errors.New("file already downloaded")
	// ErrNotFound is returned when no record exists for a path.
	ErrNotFound = errors.New("download record not found")
	// ErrLocked is returned when another instance is downloading the same path.
	ErrLocked = errors.New("download in progress by another instance")
)

// Download statuses.
const (
	StatusDownloading = "downloading"
	StatusVerified    = "verified"
	StatusFailed      = "failed"
)

// DownloadRecord represents a record of a downloaded file.
type DownloadRecord struct {
	Path         string
	URL          string
	Sha256       []byte
	Size         int64
	DownloadedAt time.Time
	Status       string
	LockedBy     string
}

type DownloadReadRepository interface {
	GetDownload(ctx context.Context, path string) (*DownloadRecord, error)
	GetDownloads(ctx context.Context) ([]DownloadRecord, error)
}

type DownloadWriteRepository interface {
	// ClaimDownload atomically marks the path as being downloaded by
	// record.LockedBy. It reports false when another instance holds a live claim.
	ClaimDownload(ctx context.Context, record DownloadRecord) (bool, error)
	UpdateDownloadStatus(ctx context.Context, path, status string, size int64) error
	DeleteDownload(ctx context.Context, path string) error
}

type DownloadRepository interface {
	DownloadReadRepository
	DownloadWriteRepository
}
